package download

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/model"
)

// fakeBackend is a testify mock whose handlers can push events
type fakeBackend struct {
	mock.Mock
	events chan bridge.Event
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{events: make(chan bridge.Event, 64)}
}

func (f *fakeBackend) push(t *testing.T, name string, payload any) {
	t.Helper()
	ev, err := bridge.NewEvent(name, payload)
	require.NoError(t, err)
	f.events <- ev
}

func (f *fakeBackend) Subscribe(ctx context.Context) (<-chan bridge.Event, error) {
	return f.events, nil
}

func (f *fakeBackend) GetMetadata(ctx context.Context, url string) ([]model.Metadata, error) {
	args := f.Called(ctx, url)
	items, _ := args.Get(0).([]model.Metadata)
	return items, args.Error(1)
}

func (f *fakeBackend) AddToQueue(ctx context.Context, url, id string, md model.Metadata) error {
	return f.Called(ctx, url, id, md).Error(0)
}

func (f *fakeBackend) DownloadAudio(ctx context.Context, url, id string, md model.Metadata) error {
	return f.Called(ctx, url, id, md).Error(0)
}

func (f *fakeBackend) CancelDownload(ctx context.Context, id string) error {
	return f.Called(ctx, id).Error(0)
}

func (f *fakeBackend) RemoveDownload(ctx context.Context, id string) error {
	return f.Called(ctx, id).Error(0)
}

func (f *fakeBackend) ClearHistory(ctx context.Context) error {
	return f.Called(ctx).Error(0)
}

func (f *fakeBackend) ClearQueue(ctx context.Context) error {
	return f.Called(ctx).Error(0)
}

func (f *fakeBackend) GetDownloads(ctx context.Context) ([]model.DownloadJob, error) {
	args := f.Called(ctx)
	jobs, _ := args.Get(0).([]model.DownloadJob)
	return jobs, args.Error(1)
}

func (f *fakeBackend) GetSongByID(ctx context.Context, id string) (*model.Song, error) {
	args := f.Called(ctx, id)
	song, _ := args.Get(0).(*model.Song)
	return song, args.Error(1)
}

func (f *fakeBackend) ReadFileContent(ctx context.Context, path string) (string, error) {
	args := f.Called(ctx, path)
	return args.String(0), args.Error(1)
}

// startQueue runs a queue until the test ends and waits for its startup calls
func startQueue(t *testing.T, backend *fakeBackend, mode Mode) *Queue {
	t.Helper()
	if mode == ModeServer {
		backend.On("GetDownloads", mock.Anything).Return([]model.DownloadJob{}, nil).Maybe()
	}

	q := NewQueue(backend, Options{Mode: mode, Logger: zaptest.NewLogger(t)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.NoError(t, q.Wait(testCtx(t)))
	return q
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func meta(id string) model.Metadata {
	return model.Metadata{ID: id, URL: "https://example.com/watch?v=" + id, Title: "Title " + id, Artist: "Artist"}
}

func statuses(jobs []model.DownloadJob) map[string]model.JobStatus {
	out := make(map[string]model.JobStatus, len(jobs))
	for _, j := range jobs {
		out[j.ID] = j.Status
	}
	return out
}

func ids(jobs []model.DownloadJob) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.ID)
	}
	return out
}

func progressEvent(t *testing.T, p model.ProgressPayload) bridge.Event {
	t.Helper()
	ev, err := bridge.NewEvent(bridge.EventProgress, p)
	require.NoError(t, err)
	return ev
}

func errorEvent(t *testing.T, e model.ErrorPayload) bridge.Event {
	t.Helper()
	ev, err := bridge.NewEvent(bridge.EventError, e)
	require.NoError(t, err)
	return ev
}

func listEvent(t *testing.T, jobs []model.DownloadJob) bridge.Event {
	t.Helper()
	ev, err := bridge.NewEvent(bridge.EventListUpdated, jobs)
	require.NoError(t, err)
	return ev
}

func noNotice(t *testing.T, q *Queue) {
	t.Helper()
	select {
	case n := <-q.Notices():
		t.Fatalf("unexpected notice %+v", n)
	default:
	}
}

func nextNotice(t *testing.T, q *Queue) Notice {
	t.Helper()
	select {
	case n := <-q.Notices():
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notice")
	}
	return Notice{}
}
