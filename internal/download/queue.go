package download

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/model"
)

// Mode selects who owns admission
type Mode int

const (
	// ModeServer projects the engine's job list; the engine admits jobs
	ModeServer Mode = iota
	// ModeSelfManaged admits jobs locally, one at a time in FIFO order
	ModeSelfManaged
)

func (m Mode) String() string {
	if m == ModeSelfManaged {
		return "self"
	}
	return "server"
}

// ParseMode maps a config value to a Mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "server":
		return ModeServer, nil
	case "self":
		return ModeSelfManaged, nil
	}
	return ModeServer, fmt.Errorf("unknown queue mode %q", s)
}

var (
	// ErrClosed is returned once the queue loop has stopped
	ErrClosed = errors.New("download queue closed")
	// ErrRunning is returned by a second Run call
	ErrRunning = errors.New("download queue already running")
	// ErrDuplicate is returned when a live job already has the id
	ErrDuplicate = errors.New("job already queued")
	// ErrNotFound is returned for commands on an unknown id
	ErrNotFound = errors.New("job not found")
)

// NoticeKind classifies user-facing notices
type NoticeKind string

const (
	NoticeStartFailed NoticeKind = "start_failed"
	NoticeFailed      NoticeKind = "failed"
	NoticeCompleted   NoticeKind = "completed"
)

// Notice is a user-facing event. Cancellations never produce one.
type Notice struct {
	Kind    NoticeKind
	JobID   string
	Title   string
	Message string
}

// Options configures a Queue
type Options struct {
	Mode     Mode
	Logger   *zap.Logger
	Recorder Recorder
	// NewID generates ids for metadata without one
	NewID func() string
	// NoticeBuffer is the capacity of the notice channel
	NoticeBuffer int
}

const defaultNoticeBuffer = 64

type message struct {
	apply func() error
	reply chan error
}

// Queue is the download-queue view-model. Every mutation runs on the loop
// started by Run; readers get immutable snapshots.
type Queue struct {
	mode    Mode
	backend Backend
	log     *zap.Logger
	rec     Recorder
	newID   func() string

	inbox   chan message
	done    chan struct{}
	running atomic.Bool

	snapshot atomic.Pointer[[]model.DownloadJob]
	notices  chan Notice

	subMu   sync.Mutex
	subs    map[int]chan []model.DownloadJob
	nextSub int
	closed  bool

	// owned by the loop
	ctx        context.Context
	jobs       []model.DownloadJob
	dirty      bool
	inFlight   int
	waiters    []chan struct{}
	optimistic map[string]bool
	listSeen   bool
	// localOnly holds jobs the engine rejected; only this queue knows them
	localOnly map[string]bool
	// starting closes once the start or enqueue call for a job returns
	starting map[string]chan struct{}
}

// NewQueue creates a queue over backend. Call Run to start it.
func NewQueue(backend Backend, opts Options) *Queue {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.NoticeBuffer <= 0 {
		opts.NoticeBuffer = defaultNoticeBuffer
	}

	q := &Queue{
		mode:       opts.Mode,
		backend:    backend,
		log:        opts.Logger.Named("queue").With(zap.Stringer("mode", opts.Mode)),
		rec:        opts.Recorder,
		newID:      opts.NewID,
		inbox:      make(chan message),
		done:       make(chan struct{}),
		notices:    make(chan Notice, opts.NoticeBuffer),
		subs:       make(map[int]chan []model.DownloadJob),
		jobs:       []model.DownloadJob{},
		optimistic: make(map[string]bool),
		localOnly:  make(map[string]bool),
		starting:   make(map[string]chan struct{}),
	}
	empty := []model.DownloadJob{}
	q.snapshot.Store(&empty)
	return q
}

// Mode returns the admission mode
func (q *Queue) Mode() Mode {
	return q.mode
}

// Run subscribes to backend events and processes commands until ctx ends
func (q *Queue) Run(ctx context.Context) error {
	if !q.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer q.shutdown()

	q.ctx = ctx
	events, err := q.backend.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	if q.mode == ModeServer {
		q.seed()
	}
	q.log.Info("download queue started")

	for {
		select {
		case <-ctx.Done():
			q.log.Info("download queue stopped")
			return nil
		case ev, ok := <-events:
			if !ok {
				q.log.Warn("backend event stream closed")
				events = nil
				continue
			}
			q.handleEvent(ev)
			q.settle()
		case m := <-q.inbox:
			err := m.apply()
			q.settle()
			if m.reply != nil {
				m.reply <- err
			}
		}
	}
}

func (q *Queue) shutdown() {
	close(q.done)

	q.subMu.Lock()
	defer q.subMu.Unlock()
	q.closed = true
	for id, ch := range q.subs {
		delete(q.subs, id)
		close(ch)
	}
}

// seed loads the engine's current list once the loop is up
func (q *Queue) seed() {
	var jobs []model.DownloadJob
	q.async(func(ctx context.Context) error {
		var err error
		jobs, err = q.backend.GetDownloads(ctx)
		return err
	}, func(err error) {
		if err != nil {
			q.log.Warn("initial job list fetch failed", zap.Error(err))
			return
		}
		if q.listSeen {
			return
		}
		q.setJobs(applySnapshot(q.jobs, jobs, q.keepLocal))
	})
}

// do runs fn on the loop and waits for its result
func (q *Queue) do(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	select {
	case q.inbox <- message{apply: fn, reply: reply}:
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post schedules fn on the loop without waiting; it is dropped after shutdown
func (q *Queue) post(fn func()) {
	select {
	case q.inbox <- message{apply: func() error { fn(); return nil }}:
	case <-q.done:
	}
}

// async runs call off the loop and then onDone on the loop. Wait blocks
// until every such call has completed.
func (q *Queue) async(call func(ctx context.Context) error, onDone func(err error)) {
	q.inFlight++
	ctx := q.ctx
	go func() {
		err := call(ctx)
		q.post(func() {
			q.inFlight--
			onDone(err)
		})
	}()
}

func (q *Queue) setJobs(jobs []model.DownloadJob) {
	for _, j := range newlyFinished(q.jobs, jobs) {
		q.rec.JobFinished(j.Status)
		if j.Status == model.StatusCompleted {
			q.notify(Notice{Kind: NoticeCompleted, JobID: j.ID, Title: j.Title})
		}
	}
	q.jobs = jobs
	q.dirty = true
}

// keepLocal reports whether a job missing from an engine snapshot stays
func (q *Queue) keepLocal(id string) bool {
	return q.optimistic[id] || q.localOnly[id]
}

// startCall runs call, the start or enqueue request for id, through async and
// records it so a later cancel or remove for id is sent after it returns
func (q *Queue) startCall(id string, call func(ctx context.Context) error, onDone func(err error)) {
	started := make(chan struct{})
	q.starting[id] = started
	q.async(func(ctx context.Context) error {
		defer close(started)
		return call(ctx)
	}, func(err error) {
		if q.starting[id] == started {
			delete(q.starting, id)
		}
		onDone(err)
	})
}

// afterStart waits for started, if any, before the caller talks to the backend
func afterStart(ctx context.Context, started <-chan struct{}) error {
	if started == nil {
		return nil
	}
	select {
	case <-started:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle runs after every handler turn
func (q *Queue) settle() {
	if q.mode == ModeSelfManaged {
		q.reconcile()
	}
	if q.dirty {
		q.publish()
		q.dirty = false
	}
	if q.inFlight == 0 && len(q.waiters) > 0 {
		for _, w := range q.waiters {
			close(w)
		}
		q.waiters = nil
	}
}

// reconcile admits the next queued job if nothing is in flight
func (q *Queue) reconcile() {
	jobs, job, ok := admitNext(q.jobs)
	if !ok {
		return
	}
	q.setJobs(jobs)
	q.rec.JobAdmitted()
	q.log.Debug("job admitted", zap.String("id", job.ID))

	q.startCall(job.ID, func(ctx context.Context) error {
		return q.backend.DownloadAudio(ctx, job.URL, job.ID, job.Metadata)
	}, func(err error) {
		if err != nil {
			q.startFailed(job.ID, err)
		}
	})
}

func (q *Queue) startFailed(id string, err error) {
	q.log.Error("failed to start download", zap.String("id", id), zap.Error(err))
	jobs, changed := failStart(q.jobs, id, err)
	if !changed {
		return
	}
	q.setJobs(jobs)
	i := indexOf(jobs, id)
	q.notify(Notice{Kind: NoticeStartFailed, JobID: id, Title: jobs[i].Title, Message: err.Error()})
}

func (q *Queue) publish() {
	snap := q.jobs
	q.snapshot.Store(&snap)

	active, queued, history := Partition(snap)
	q.rec.QueueSize(len(active), len(queued), len(history))

	q.subMu.Lock()
	defer q.subMu.Unlock()
	for _, ch := range q.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (q *Queue) notify(n Notice) {
	q.rec.NoticeIssued(string(n.Kind))
	select {
	case q.notices <- n:
	default:
		q.log.Warn("notice dropped", zap.String("id", n.JobID), zap.String("kind", string(n.Kind)))
	}
}

func (q *Queue) handleEvent(ev bridge.Event) {
	switch ev.Name {
	case bridge.EventListUpdated:
		if q.mode == ModeSelfManaged {
			return
		}
		var incoming []model.DownloadJob
		if err := ev.Decode(&incoming); err != nil {
			q.log.Warn("bad list snapshot", zap.Error(err))
			return
		}
		q.listSeen = true
		for _, j := range incoming {
			delete(q.localOnly, j.ID)
		}
		q.setJobs(applySnapshot(q.jobs, incoming, q.keepLocal))

	case bridge.EventProgress:
		var p model.ProgressPayload
		if err := ev.Decode(&p); err != nil {
			q.log.Warn("bad progress delta", zap.Error(err))
			return
		}
		if jobs, changed := applyProgress(q.jobs, p); changed {
			q.setJobs(jobs)
		}

	case bridge.EventError:
		var e model.ErrorPayload
		if err := ev.Decode(&e); err != nil {
			q.log.Warn("bad error event", zap.Error(err))
			return
		}
		jobs, changed, notify := applyFailure(q.jobs, e)
		if !changed {
			return
		}
		if e.IsCancelled {
			q.log.Info("download cancelled", zap.String("id", e.ID))
		} else {
			q.log.Warn("download failed", zap.String("id", e.ID), zap.String("error", e.Error))
		}
		q.setJobs(jobs)
		if notify {
			i := indexOf(jobs, e.ID)
			q.notify(Notice{Kind: NoticeFailed, JobID: e.ID, Title: jobs[i].Title, Message: e.Error})
		}
	}
}

// Enqueue adds a job for url. The job id is md.ID, or a fresh id when empty.
// Start failures do not surface here: the job turns into an error entry and a
// notice is issued.
func (q *Queue) Enqueue(ctx context.Context, url string, md model.Metadata) error {
	return q.do(ctx, func() error {
		id := md.ID
		if id == "" {
			id = q.newID()
			md.ID = id
		}
		job := model.NewJob(id, url, md, model.StatusQueued)

		jobs, err := insertJob(q.jobs, job)
		if err != nil {
			return err
		}
		q.setJobs(jobs)
		delete(q.localOnly, id)
		q.rec.JobEnqueued(q.mode.String())
		q.log.Info("job enqueued", zap.String("id", id), zap.String("url", url))

		if q.mode == ModeServer {
			q.optimistic[id] = true
			q.startCall(id, func(ctx context.Context) error {
				return q.backend.AddToQueue(ctx, url, id, md)
			}, func(err error) {
				delete(q.optimistic, id)
				if err == nil {
					return
				}
				if indexOf(q.jobs, id) >= 0 {
					q.localOnly[id] = true
				}
				q.startFailed(id, err)
			})
		}
		return nil
	})
}

// Remove deletes a job. An in-flight job is cancelled first; cancellation
// errors are logged only. Backend requests for id are sent after its start
// call has returned. In ModeServer the engine performs the removal and the
// local list follows the next snapshot, except for jobs the engine rejected,
// which are removed here.
func (q *Queue) Remove(ctx context.Context, id string) error {
	return q.do(ctx, func() error {
		i := indexOf(q.jobs, id)
		if i < 0 {
			return ErrNotFound
		}
		inFlight := q.jobs[i].Status.IsInFlight()
		started := q.starting[id]

		if q.mode == ModeSelfManaged || q.localOnly[id] {
			if inFlight {
				q.async(func(ctx context.Context) error {
					if err := afterStart(ctx, started); err != nil {
						return err
					}
					return q.backend.CancelDownload(ctx, id)
				}, q.logCancelFailure(id))
			}
			delete(q.localOnly, id)
			jobs, _ := removeJob(q.jobs, id)
			q.setJobs(jobs)
			return nil
		}

		q.async(func(ctx context.Context) error {
			if err := afterStart(ctx, started); err != nil {
				return err
			}
			if inFlight {
				if err := q.backend.CancelDownload(ctx, id); err != nil {
					q.log.Warn("cancel request failed", zap.String("id", id), zap.Error(err))
				}
			}
			return q.backend.RemoveDownload(ctx, id)
		}, q.logFailure("remove download", zap.String("id", id)))
		return nil
	})
}

// ClearHistory removes every completed or failed job
func (q *Queue) ClearHistory(ctx context.Context) error {
	return q.do(ctx, func() error {
		if q.mode == ModeSelfManaged {
			jobs, n := clearHistory(q.jobs)
			if n > 0 {
				q.setJobs(jobs)
			}
			return nil
		}
		jobs, n := removeWhere(q.jobs, func(j model.DownloadJob) bool { return q.localOnly[j.ID] })
		if n > 0 {
			clear(q.localOnly)
			q.setJobs(jobs)
		}
		q.async(q.backend.ClearHistory, q.logFailure("clear history"))
		return nil
	})
}

// ClearQueue removes every job still waiting for admission
func (q *Queue) ClearQueue(ctx context.Context) error {
	return q.do(ctx, func() error {
		if q.mode == ModeSelfManaged {
			jobs, n := clearQueue(q.jobs)
			if n > 0 {
				q.setJobs(jobs)
			}
			return nil
		}
		q.async(q.backend.ClearQueue, q.logFailure("clear queue"))
		return nil
	})
}

// Dispatch applies a backend event on the loop, as if it had been pushed
func (q *Queue) Dispatch(ctx context.Context, ev bridge.Event) error {
	return q.do(ctx, func() error {
		q.handleEvent(ev)
		return nil
	})
}

// Wait blocks until every backend call issued so far has completed
func (q *Queue) Wait(ctx context.Context) error {
	ready := make(chan struct{})
	err := q.do(ctx, func() error {
		q.waiters = append(q.waiters, ready)
		return nil
	})
	if err != nil {
		return err
	}

	select {
	case <-ready:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) logCancelFailure(id string) func(error) {
	return func(err error) {
		if err != nil {
			q.log.Warn("cancel request failed", zap.String("id", id), zap.Error(err))
		}
	}
}

func (q *Queue) logFailure(op string, fields ...zap.Field) func(error) {
	return func(err error) {
		if err != nil {
			q.log.Error(op+" failed", append(fields, zap.Error(err))...)
		}
	}
}

// Jobs returns the latest snapshot. The slice must not be modified.
func (q *Queue) Jobs() []model.DownloadJob {
	return *q.snapshot.Load()
}

// Job returns the job with id from the latest snapshot
func (q *Queue) Job(id string) (model.DownloadJob, bool) {
	jobs := q.Jobs()
	if i := indexOf(jobs, id); i >= 0 {
		return jobs[i], true
	}
	return model.DownloadJob{}, false
}

// Has reports whether any job, live or finished, has id
func (q *Queue) Has(id string) bool {
	_, ok := q.Job(id)
	return ok
}

// Subscribe returns a channel that always holds the most recent snapshot
// not yet read, and a function to stop the subscription.
func (q *Queue) Subscribe() (<-chan []model.DownloadJob, func()) {
	ch := make(chan []model.DownloadJob, 1)

	q.subMu.Lock()
	defer q.subMu.Unlock()

	if q.closed {
		close(ch)
		return ch, func() {}
	}

	id := q.nextSub
	q.nextSub++
	q.subs[id] = ch
	ch <- q.Jobs()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			q.subMu.Lock()
			defer q.subMu.Unlock()
			if _, ok := q.subs[id]; ok {
				delete(q.subs, id)
				close(ch)
			}
		})
	}
}

// Notices returns user-facing notices. The channel is never closed.
func (q *Queue) Notices() <-chan Notice {
	return q.notices
}
