package backend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/model"
)

// gatedRun blocks every job until the test releases it with an outcome
type gatedRun struct {
	mu      sync.Mutex
	started []string
	running int
	maxRun  int
	outcome chan error
}

func newGatedRun() *gatedRun {
	return &gatedRun{outcome: make(chan error)}
}

func (g *gatedRun) run(ctx context.Context, job model.DownloadJob, report func(model.ProgressPayload)) error {
	g.mu.Lock()
	g.started = append(g.started, job.ID)
	g.running++
	g.maxRun = max(g.maxRun, g.running)
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.running--
		g.mu.Unlock()
	}()

	report(model.ProgressPayload{Progress: 10, Status: model.StatusDownloading, DetailedStatus: "Downloading", Log: "line"})

	select {
	case err := <-g.outcome:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gatedRun) startedIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.started...)
}

func (g *gatedRun) release(t *testing.T, err error) {
	t.Helper()
	select {
	case g.outcome <- err:
	case <-time.After(3 * time.Second):
		t.Fatal("no job waiting for release")
	}
}

func newTestManager(t *testing.T, run RunFunc) (*Manager, *recorder) {
	t.Helper()
	bus := bridge.NewBus(0, nil)
	rec := record(t, bus)
	m := NewManager(bus, run, zaptest.NewLogger(t), nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		require.NoError(t, m.Shutdown(ctx))
		bus.Close()
	})
	return m, rec
}

func downloading(m *Manager, id string) func() bool {
	return func() bool { return statusOf(m.Jobs(), id) == model.StatusDownloading }
}

func TestManager_SingleFlightFIFO(t *testing.T) {
	g := newGatedRun()
	m, _ := newTestManager(t, g.run)

	require.NoError(t, m.Add("u", "a", model.Metadata{Title: "A"}))
	require.NoError(t, m.Add("u", "b", model.Metadata{Title: "B"}))
	require.NoError(t, m.Add("u", "c", model.Metadata{Title: "C"}))

	eventually(t, downloading(m, "a"), "a should run first")
	assert.Equal(t, model.StatusQueued, statusOf(m.Jobs(), "b"))
	assert.Equal(t, model.StatusQueued, statusOf(m.Jobs(), "c"))

	g.release(t, nil)
	eventually(t, downloading(m, "b"), "b should run after a")
	assert.Equal(t, model.StatusCompleted, statusOf(m.Jobs(), "a"))

	g.release(t, nil)
	eventually(t, downloading(m, "c"), "c should run after b")
	g.release(t, nil)
	eventually(t, func() bool { return statusOf(m.Jobs(), "c") == model.StatusCompleted }, "c should complete")

	assert.Equal(t, []string{"a", "b", "c"}, g.startedIDs())
	g.mu.Lock()
	assert.Equal(t, 1, g.maxRun)
	g.mu.Unlock()

	jobs := m.Jobs()
	require.Len(t, jobs, 3)
	for _, j := range jobs {
		assert.Equal(t, 100.0, j.Progress)
	}
}

func TestManager_FailureEndsInError(t *testing.T) {
	g := newGatedRun()
	m, rec := newTestManager(t, g.run)

	require.NoError(t, m.Add("u", "a", model.Metadata{Title: "A"}))
	require.NoError(t, m.Add("u", "b", model.Metadata{Title: "B"}))
	eventually(t, downloading(m, "a"), "a should run")

	g.release(t, errors.New("download failed with exit code: 1"))
	eventually(t, downloading(m, "b"), "b should be admitted after the failure")

	jobs := m.Jobs()
	require.Equal(t, model.StatusError, statusOf(jobs, "a"))
	assert.Equal(t, "Error: download failed with exit code: 1", jobs[0].Title)
	assert.Equal(t, "Error: download failed with exit code: 1", jobs[0].Logs[len(jobs[0].Logs)-1])

	eventually(t, func() bool { return len(rec.errors(t)) == 1 }, "one error event")
	e := rec.errors(t)[0]
	assert.Equal(t, "a", e.ID)
	assert.False(t, e.IsCancelled)
	assert.Equal(t, "download failed with exit code: 1", e.Error)

	for _, p := range rec.progress(t) {
		if p.ID == "a" {
			assert.NotEqual(t, model.StatusCompleted, p.Status)
		}
	}
}

func TestManager_CancelRemovesJob(t *testing.T) {
	g := newGatedRun()
	m, rec := newTestManager(t, g.run)

	require.NoError(t, m.Add("u", "a", model.Metadata{}))
	require.NoError(t, m.Add("u", "b", model.Metadata{}))
	eventually(t, downloading(m, "a"), "a should run")

	require.NoError(t, m.Cancel("a"))
	eventually(t, downloading(m, "b"), "b should run after the cancel")
	assert.Equal(t, []string{"b"}, jobIDs(m.Jobs()))

	eventually(t, func() bool { return len(rec.errors(t)) == 1 }, "one error event")
	e := rec.errors(t)[0]
	assert.Equal(t, "a", e.ID)
	assert.True(t, e.IsCancelled)
	assert.Equal(t, "Download cancelled", e.Error)

	assert.ErrorIs(t, m.Cancel("b-unknown"), ErrNotRunning)
}

func TestManager_CancelQueuedJobIsNotRunning(t *testing.T) {
	g := newGatedRun()
	m, _ := newTestManager(t, g.run)

	require.NoError(t, m.Add("u", "a", model.Metadata{}))
	require.NoError(t, m.Add("u", "b", model.Metadata{}))
	eventually(t, downloading(m, "a"), "a should run")

	assert.ErrorIs(t, m.Cancel("b"), ErrNotRunning)
	assert.Equal(t, model.StatusQueued, statusOf(m.Jobs(), "b"))
}

func TestManager_RemoveRunningJob(t *testing.T) {
	g := newGatedRun()
	m, _ := newTestManager(t, g.run)

	require.NoError(t, m.Add("u", "a", model.Metadata{}))
	require.NoError(t, m.Add("u", "b", model.Metadata{}))
	eventually(t, downloading(m, "a"), "a should run")

	m.Remove("a")
	assert.Equal(t, []string{"b"}, jobIDs(m.Jobs()))
	eventually(t, downloading(m, "b"), "b should run once a has exited")

	m.Remove("missing")
	assert.Equal(t, []string{"b"}, jobIDs(m.Jobs()))
}

func TestManager_Duplicates(t *testing.T) {
	g := newGatedRun()
	m, _ := newTestManager(t, g.run)

	require.NoError(t, m.Add("u", "a", model.Metadata{}))
	eventually(t, downloading(m, "a"), "a should run")
	assert.ErrorIs(t, m.Add("u", "a", model.Metadata{}), ErrAlreadyQueued)

	g.release(t, nil)
	eventually(t, func() bool { return statusOf(m.Jobs(), "a") == model.StatusCompleted }, "a should complete")

	require.NoError(t, m.Add("u", "a", model.Metadata{}))
	eventually(t, downloading(m, "a"), "a should run again")
	assert.Len(t, m.Jobs(), 1)
	g.release(t, nil)
}

func TestManager_Clears(t *testing.T) {
	g := newGatedRun()
	m, _ := newTestManager(t, g.run)

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.Add("u", id, model.Metadata{}))
	}
	eventually(t, downloading(m, "a"), "a should run")
	g.release(t, errors.New("boom"))
	eventually(t, downloading(m, "b"), "b should run")

	m.ClearHistory()
	assert.Equal(t, []string{"b", "c", "d"}, jobIDs(m.Jobs()))

	m.ClearQueue()
	assert.Equal(t, []string{"b"}, jobIDs(m.Jobs()))
	g.release(t, nil)
}

func TestManager_RevisionsIncrease(t *testing.T) {
	g := newGatedRun()
	m, rec := newTestManager(t, g.run)

	require.NoError(t, m.Add("u", "a", model.Metadata{}))
	eventually(t, downloading(m, "a"), "a should run")
	g.release(t, nil)
	eventually(t, func() bool { return statusOf(m.Jobs(), "a") == model.StatusCompleted }, "a should complete")

	var last uint64
	eventually(t, func() bool { return len(rec.progress(t)) == 2 }, "progress and completion deltas")
	for _, p := range rec.progress(t) {
		assert.Greater(t, p.Revision, last)
		last = p.Revision
	}
	assert.Equal(t, last, m.Jobs()[0].Revision)
}

func TestManager_ResetCancelsEverything(t *testing.T) {
	g := newGatedRun()
	m, _ := newTestManager(t, g.run)

	require.NoError(t, m.Add("u", "a", model.Metadata{}))
	require.NoError(t, m.Add("u", "b", model.Metadata{}))
	eventually(t, downloading(m, "a"), "a should run")

	m.Reset()
	assert.Empty(t, m.Jobs())
	eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.running == 0
	}, "running job should exit")
	assert.Equal(t, []string{"a"}, g.startedIDs())
}

func jobIDs(jobs []model.DownloadJob) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.ID)
	}
	return out
}

func TestManager_StalledSubscriberDoesNotBlockCommands(t *testing.T) {
	bus := bridge.NewBus(1, nil)
	bus.SetSlowTimeout(time.Minute)
	stalledCtx, release := context.WithCancel(context.Background())
	defer release()
	_, err := bus.Subscribe(stalledCtx)
	require.NoError(t, err)

	hold := func(ctx context.Context, _ model.DownloadJob, _ func(model.ProgressPayload)) error {
		<-ctx.Done()
		return ctx.Err()
	}
	m := NewManager(bus, hold, zaptest.NewLogger(t), nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		require.NoError(t, m.Shutdown(ctx))
		bus.Close()
	})

	// the first command publishes and gets stuck on the full subscriber
	first := make(chan error, 1)
	go func() { first <- m.Add("u", "a", model.Metadata{Title: "A"}) }()
	eventually(t, func() bool { return statusOf(m.Jobs(), "a") == model.StatusPending }, "a should be admitted")

	done := make(chan error, 1)
	go func() { done <- m.Add("u", "b", model.Metadata{Title: "B"}) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("command blocked behind a stalled subscriber")
	}
	assert.Equal(t, model.StatusQueued, statusOf(m.Jobs(), "b"))
	require.NoError(t, m.Cancel("a"))

	release()
	select {
	case err := <-first:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("publisher not released")
	}
}
