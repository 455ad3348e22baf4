package backend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/model"
)

// RunFunc performs one job. report applies a progress delta to the job and
// pushes it to subscribers.
type RunFunc func(ctx context.Context, job model.DownloadJob, report func(model.ProgressPayload)) error

// Recorder receives engine metrics
type Recorder interface {
	DownloadStarted()
	DownloadFinished(outcome string, elapsed time.Duration)
	HealthChecked(ok bool)
}

type nopRecorder struct{}

func (nopRecorder) DownloadStarted() {}

func (nopRecorder) DownloadFinished(string, time.Duration) {}

func (nopRecorder) HealthChecked(bool) {}

// Download outcomes reported to the Recorder
const (
	OutcomeCompleted = "completed"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Manager keeps the authoritative job list and runs at most one job at a
// time, oldest queued job first. Every mutation stamps a new revision on the
// job and queues its events in an outbox while the lock is held. The outbox
// is published after the lock is released, in the order the changes
// happened.
type Manager struct {
	mu      sync.Mutex
	jobs    []model.DownloadJob
	cancels map[string]context.CancelFunc
	rev     uint64
	outbox  []outgoing

	// held by the goroutine publishing the outbox
	flushing sync.Mutex

	bus *bridge.Bus
	run RunFunc
	log *zap.Logger
	rec Recorder

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// NewManager creates a manager publishing on bus and running jobs with run
func NewManager(bus *bridge.Bus, run RunFunc, log *zap.Logger, rec Recorder) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		jobs:    []model.DownloadJob{},
		cancels: make(map[string]context.CancelFunc),
		bus:     bus,
		run:     run,
		log:     log.Named("manager"),
		rec:     rec,
		ctx:     ctx,
		stop:    stop,
	}
}

func (m *Manager) indexOf(id string) int {
	return slices.IndexFunc(m.jobs, func(j model.DownloadJob) bool { return j.ID == id })
}

func (m *Manager) stamp(j *model.DownloadJob) {
	m.rev++
	j.Revision = m.rev
}

func (m *Manager) snapshotLocked() []model.DownloadJob {
	out := make([]model.DownloadJob, len(m.jobs))
	for i, j := range m.jobs {
		out[i] = j.Clone()
	}
	return out
}

type outgoing struct {
	name    string
	payload any
}

func (m *Manager) emitLocked(name string, payload any) {
	m.outbox = append(m.outbox, outgoing{name: name, payload: payload})
}

func (m *Manager) emitListLocked() {
	m.emitLocked(bridge.EventListUpdated, m.snapshotLocked())
}

// flush publishes the outbox. Only one goroutine publishes at a time; the
// others leave their events to it and return at once.
func (m *Manager) flush() {
	for {
		if !m.flushing.TryLock() {
			return
		}
		m.mu.Lock()
		batch := m.outbox
		m.outbox = nil
		m.mu.Unlock()

		for _, out := range batch {
			m.bus.Emit(out.name, out.payload)
		}
		m.flushing.Unlock()

		m.mu.Lock()
		more := len(m.outbox) > 0
		m.mu.Unlock()
		if !more {
			return
		}
	}
}

// Jobs returns a copy of the job list
func (m *Manager) Jobs() []model.DownloadJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Add appends a queued job and admits it when nothing else runs. A finished
// job with the same id is replaced.
func (m *Manager) Add(url, id string, md model.Metadata) error {
	m.mu.Lock()
	defer m.flush()
	defer m.mu.Unlock()

	if i := m.indexOf(id); i >= 0 {
		if !m.jobs[i].Status.IsTerminal() {
			return fmt.Errorf("%w: %s", ErrAlreadyQueued, id)
		}
		m.jobs = slices.Delete(m.jobs, i, i+1)
	}

	job := model.NewJob(id, url, md, model.StatusQueued)
	m.stamp(&job)
	m.jobs = append(m.jobs, job)
	m.log.Info("job queued", zap.String("id", id), zap.String("url", url))

	m.emitListLocked()
	m.admitLocked()
	return nil
}

// admitLocked starts the first queued job if no job is pending, downloading
// or still winding down after cancellation
func (m *Manager) admitLocked() {
	if len(m.cancels) > 0 {
		return
	}
	for _, j := range m.jobs {
		if j.Status.IsInFlight() {
			return
		}
	}

	i := slices.IndexFunc(m.jobs, func(j model.DownloadJob) bool { return j.Status == model.StatusQueued })
	if i < 0 {
		return
	}
	job := &m.jobs[i]
	job.Status = model.StatusPending
	job.Progress = 0
	m.stamp(job)
	m.emitListLocked()

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancels[job.ID] = cancel
	m.wg.Add(1)
	go m.execute(ctx, job.Clone())
}

func (m *Manager) execute(ctx context.Context, job model.DownloadJob) {
	defer m.wg.Done()

	m.log.Info("download started", zap.String("id", job.ID))
	m.rec.DownloadStarted()
	start := time.Now()

	err := m.run(ctx, job, func(p model.ProgressPayload) {
		p.ID = job.ID
		m.report(p)
	})
	if err != nil && ctx.Err() != nil {
		err = ErrCancelled
	}
	m.finish(job.ID, err, time.Since(start))
}

// report merges a delta from the running job and emits it with its revision
func (m *Manager) report(p model.ProgressPayload) {
	m.mu.Lock()
	defer m.flush()
	defer m.mu.Unlock()

	i := m.indexOf(p.ID)
	if i < 0 {
		return
	}
	j := &m.jobs[i]
	if j.Status.IsTerminal() {
		return
	}

	statusChanged := false
	if p.Progress >= 0 {
		j.Progress = p.Progress
	}
	if p.Status.IsInFlight() && p.Status != j.Status && j.Status.CanMoveTo(p.Status) {
		j.Status = p.Status
		statusChanged = true
	}
	if p.DetailedStatus != "" {
		j.DetailedStatus = p.DetailedStatus
	}
	if p.Log != "" {
		j.AppendLog(p.Log)
	}
	m.stamp(j)
	p.Revision = j.Revision

	m.emitLocked(bridge.EventProgress, p)
	if statusChanged {
		m.emitListLocked()
	}
}

// finish records the outcome of a job and admits the next one. A failure
// always ends in error; only a clean run completes.
func (m *Manager) finish(id string, err error, elapsed time.Duration) {
	m.mu.Lock()
	defer m.flush()
	defer m.mu.Unlock()

	if cancel, ok := m.cancels[id]; ok {
		cancel()
		delete(m.cancels, id)
	}

	i := m.indexOf(id)
	switch {
	case errors.Is(err, ErrCancelled):
		m.rec.DownloadFinished(OutcomeCancelled, elapsed)
		m.log.Info("download cancelled", zap.String("id", id))
		m.rev++
		if i >= 0 {
			m.jobs = slices.Delete(m.jobs, i, i+1)
		}
		m.emitLocked(bridge.EventError, model.ErrorPayload{ID: id, Error: ErrCancelled.Error(), IsCancelled: true, Revision: m.rev})

	case err != nil:
		m.rec.DownloadFinished(OutcomeError, elapsed)
		m.log.Warn("download failed", zap.String("id", id), zap.Error(err))
		rev := uint64(0)
		if i >= 0 {
			j := &m.jobs[i]
			j.Status = model.StatusError
			j.Title = "Error: " + err.Error()
			j.AppendLog("Error: " + err.Error())
			m.stamp(j)
			rev = j.Revision
		}
		m.emitLocked(bridge.EventError, model.ErrorPayload{ID: id, Error: err.Error(), Revision: rev})

	default:
		m.rec.DownloadFinished(OutcomeCompleted, elapsed)
		m.log.Info("download completed", zap.String("id", id), zap.Duration("elapsed", elapsed))
		if i >= 0 {
			j := &m.jobs[i]
			j.Status = model.StatusCompleted
			j.Progress = 100
			m.stamp(j)
			m.emitLocked(bridge.EventProgress, model.ProgressPayload{
				ID:       id,
				Progress: 100,
				Status:   model.StatusCompleted,
				Revision: j.Revision,
			})
		}
	}

	m.emitListLocked()
	m.admitLocked()
}

// Cancel stops the process of a running job. The job leaves the list once
// the process has exited.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cancel, ok := m.cancels[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}
	cancel()
	return nil
}

// Remove drops a job from the list, stopping its process if it runs
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.flush()
	defer m.mu.Unlock()

	if cancel, ok := m.cancels[id]; ok {
		cancel()
	}
	if i := m.indexOf(id); i >= 0 {
		m.jobs = slices.Delete(m.jobs, i, i+1)
		m.emitListLocked()
	}
}

// ClearHistory drops completed and failed jobs
func (m *Manager) ClearHistory() {
	m.clearWhere(func(j model.DownloadJob) bool { return j.Status.IsTerminal() })
}

// ClearQueue drops jobs waiting for admission
func (m *Manager) ClearQueue() {
	m.clearWhere(func(j model.DownloadJob) bool { return j.Status == model.StatusQueued })
}

func (m *Manager) clearWhere(drop func(model.DownloadJob) bool) {
	m.mu.Lock()
	defer m.flush()
	defer m.mu.Unlock()

	m.jobs = slices.DeleteFunc(m.jobs, drop)
	m.emitListLocked()
}

// Reset cancels every running job and empties the list
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.flush()
	defer m.mu.Unlock()

	for _, cancel := range m.cancels {
		cancel()
	}
	m.jobs = []model.DownloadJob{}
	m.emitListLocked()
}

// Shutdown cancels running jobs and waits for them to exit
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stop()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
