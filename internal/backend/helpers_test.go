package backend

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/model"
)

// recorder collects every event published on a bus
type recorder struct {
	mu     sync.Mutex
	events []bridge.Event
}

func record(t *testing.T, bus *bridge.Bus) *recorder {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	r := &recorder{}
	go func() {
		for ev := range ch {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		}
	}()
	return r
}

func (r *recorder) named(name string) []bridge.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bridge.Event
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) progress(t *testing.T) []model.ProgressPayload {
	t.Helper()
	var out []model.ProgressPayload
	for _, ev := range r.named(bridge.EventProgress) {
		var p model.ProgressPayload
		require.NoError(t, ev.Decode(&p))
		out = append(out, p)
	}
	return out
}

func (r *recorder) errors(t *testing.T) []model.ErrorPayload {
	t.Helper()
	var out []model.ErrorPayload
	for _, ev := range r.named(bridge.EventError) {
		var e model.ErrorPayload
		require.NoError(t, ev.Decode(&e))
		out = append(out, e)
	}
	return out
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 10*time.Millisecond, msg)
}

// fakeTool scripts downloads through download and mocks the rest
type fakeTool struct {
	mock.Mock
	download func(ctx context.Context, req DownloadRequest, onLine func(Line)) (string, error)
}

func (f *fakeTool) Download(ctx context.Context, req DownloadRequest, onLine func(Line)) (string, error) {
	return f.download(ctx, req, onLine)
}

func (f *fakeTool) DumpJSON(ctx context.Context, url string) ([]byte, error) {
	args := f.Called(ctx, url)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

func (f *fakeTool) Versions(ctx context.Context) (string, string, error) {
	args := f.Called(ctx)
	return args.String(0), args.String(1), args.Error(2)
}

func (f *fakeTool) Available() error {
	return f.Called().Error(0)
}

func statusOf(jobs []model.DownloadJob, id string) model.JobStatus {
	for _, j := range jobs {
		if j.ID == id {
			return j.Status
		}
	}
	return ""
}
