package library

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/model"
)

type mockBackend struct {
	mock.Mock
	events chan bridge.Event
}

func newMockBackend() *mockBackend {
	return &mockBackend{events: make(chan bridge.Event, 4)}
}

func (m *mockBackend) GetSongs(ctx context.Context) ([]model.Song, error) {
	args := m.Called(ctx)
	songs, _ := args.Get(0).([]model.Song)
	return songs, args.Error(1)
}

func (m *mockBackend) SearchSongs(ctx context.Context, query string) ([]model.Song, error) {
	args := m.Called(ctx, query)
	songs, _ := args.Get(0).([]model.Song)
	return songs, args.Error(1)
}

func (m *mockBackend) RemoveSong(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockBackend) Subscribe(ctx context.Context) (<-chan bridge.Event, error) {
	return m.events, nil
}

func mustEvent(t *testing.T, name string, payload any) bridge.Event {
	ev, err := bridge.NewEvent(name, payload)
	require.NoError(t, err)
	return ev
}

func song(id string) model.Song {
	return model.Song{ID: id, Title: "Title " + id, Filename: id + ".mp3"}
}

func TestSongs_RunRefreshesOnLibraryUpdates(t *testing.T) {
	backend := newMockBackend()
	backend.On("GetSongs", mock.Anything).Return([]model.Song{song("a")}, nil).Once()
	backend.On("GetSongs", mock.Anything).Return([]model.Song{song("b"), song("a")}, nil).Once()

	songs := NewSongs(backend, zaptest.NewLogger(t))
	changes := make(chan []model.Song, 4)
	songs.OnChange(func(s []model.Song) { changes <- s })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- songs.Run(ctx) }()

	first := <-changes
	require.Len(t, first, 1)
	assert.True(t, songs.Loaded())

	backend.events <- mustEvent(t, bridge.EventProgress, model.ProgressPayload{ID: "x"})
	backend.events <- mustEvent(t, bridge.EventLibraryUpdated, nil)

	select {
	case second := <-changes:
		assert.Equal(t, "b", second[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh after library update")
	}

	cancel()
	assert.NoError(t, <-done)
	backend.AssertNumberOfCalls(t, "GetSongs", 2)
}

func TestSongs_RefreshKeepsCacheOnError(t *testing.T) {
	backend := newMockBackend()
	backend.On("GetSongs", mock.Anything).Return([]model.Song{song("a")}, nil).Once()
	backend.On("GetSongs", mock.Anything).Return(nil, errors.New("engine down")).Once()

	songs := NewSongs(backend, nil)
	require.NoError(t, songs.Refresh(context.Background()))
	assert.ErrorContains(t, songs.Refresh(context.Background()), "engine down")
	assert.Len(t, songs.Songs(), 1)
}

func TestSongs_NilListBecomesEmpty(t *testing.T) {
	backend := newMockBackend()
	backend.On("GetSongs", mock.Anything).Return(nil, nil)

	songs := NewSongs(backend, nil)
	assert.False(t, songs.Loaded())
	require.NoError(t, songs.Refresh(context.Background()))
	assert.NotNil(t, songs.Songs())
	assert.Empty(t, songs.Songs())
}

func TestSongs_Search(t *testing.T) {
	backend := newMockBackend()
	backend.On("GetSongs", mock.Anything).Return([]model.Song{song("a"), song("b")}, nil)
	backend.On("SearchSongs", mock.Anything, "beyonce").Return([]model.Song{song("b")}, nil)

	songs := NewSongs(backend, nil)
	require.NoError(t, songs.Refresh(context.Background()))

	all, err := songs.Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := songs.Search(context.Background(), "beyonce")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].ID)
	backend.AssertNumberOfCalls(t, "SearchSongs", 1)
}

func TestSongs_Remove(t *testing.T) {
	backend := newMockBackend()
	backend.On("GetSongs", mock.Anything).Return([]model.Song{song("a"), song("b")}, nil)
	backend.On("RemoveSong", mock.Anything, "a").Return(nil)
	backend.On("RemoveSong", mock.Anything, "zz").Return(errors.New("Song not found"))

	songs := NewSongs(backend, nil)
	require.NoError(t, songs.Refresh(context.Background()))

	require.NoError(t, songs.Remove(context.Background(), "a"))
	require.Len(t, songs.Songs(), 1)
	assert.Equal(t, "b", songs.Songs()[0].ID)

	assert.ErrorContains(t, songs.Remove(context.Background(), "zz"), "Song not found")
	assert.Len(t, songs.Songs(), 1)
}
