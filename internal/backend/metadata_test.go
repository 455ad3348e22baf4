package backend

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ytget/synqed/internal/model"
)

type fakePlaylists struct {
	mock.Mock
}

func (f *fakePlaylists) Expand(ctx context.Context, url string) ([]model.Metadata, error) {
	args := f.Called(ctx, url)
	items, _ := args.Get(0).([]model.Metadata)
	return items, args.Error(1)
}

func TestParseMetadata(t *testing.T) {
	stream := `{"id":"a","title":"A","artist":"Art","uploader":"Up","url":"https://x/a","duration":215.5,"thumbnail":"https://i/a.jpg"}
{"id":"b","title":"B","creator":"Cre","uploader":"Up","webpage_url":"https://x/b"}
{"id":"c","title":"","artist":"","uploader":"Up"}
{}
`
	items, err := ParseMetadata([]byte(stream), "https://input")
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, model.Metadata{
		ID: "a", URL: "https://x/a", Title: "A", Artist: "Art",
		Thumbnail: "https://i/a.jpg", Duration: 215.5,
	}, items[0])

	assert.Equal(t, "Cre", items[1].Artist)
	assert.Equal(t, "https://x/b", items[1].URL)

	assert.Equal(t, model.UnknownTitle, items[2].Title)
	assert.Equal(t, "Up", items[2].Artist)
	assert.Equal(t, "https://input", items[2].URL)

	assert.Equal(t, "unknown", items[3].ID)
	assert.Equal(t, model.UnknownArtist, items[3].Artist)
	assert.Zero(t, items[3].Duration)
}

func TestParseMetadata_Invalid(t *testing.T) {
	_, err := ParseMetadata([]byte(`{"id":"a"}{oops`), "u")
	assert.ErrorContains(t, err, "failed to parse yt-dlp output")

	items, err := ParseMetadata(nil, "u")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMetadataFetcher_Caches(t *testing.T) {
	tool := &fakeTool{}
	tool.On("DumpJSON", mock.Anything, "https://youtu.be/a").
		Return([]byte(`{"id":"a","title":"A"}`), nil).Once()

	f := NewMetadataFetcher(tool, nil, 0, zaptest.NewLogger(t))
	first, err := f.Fetch(context.Background(), "https://youtu.be/a")
	require.NoError(t, err)

	first[0].Title = "changed"
	second, err := f.Fetch(context.Background(), "https://youtu.be/a")
	require.NoError(t, err)
	assert.Equal(t, "A", second[0].Title)
	tool.AssertExpectations(t)

	f.Flush()
	tool.On("DumpJSON", mock.Anything, "https://youtu.be/a").
		Return([]byte(`{"id":"a","title":"A2"}`), nil).Once()
	third, err := f.Fetch(context.Background(), "https://youtu.be/a")
	require.NoError(t, err)
	assert.Equal(t, "A2", third[0].Title)
}

func TestMetadataFetcher_Empty(t *testing.T) {
	tool := &fakeTool{}
	tool.On("DumpJSON", mock.Anything, "u").Return([]byte("\n"), nil)

	_, err := NewMetadataFetcher(tool, nil, 0, nil).Fetch(context.Background(), "u")
	assert.ErrorIs(t, err, ErrNoMetadata)
}

func TestMetadataFetcher_PlaylistFallback(t *testing.T) {
	const playlist = "https://www.youtube.com/playlist?list=PL123"
	missing := fmt.Errorf("failed to execute yt-dlp: %w", &exec.Error{Name: "yt-dlp", Err: exec.ErrNotFound})

	tool := &fakeTool{}
	tool.On("DumpJSON", mock.Anything, mock.Anything).Return(nil, missing)

	playlists := &fakePlaylists{}
	playlists.On("Expand", mock.Anything, playlist).
		Return([]model.Metadata{{ID: "v1", Title: "One"}, {ID: "v2", Title: "Two"}}, nil)

	f := NewMetadataFetcher(tool, playlists, 0, zaptest.NewLogger(t))
	items, err := f.Fetch(context.Background(), playlist)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = f.Fetch(context.Background(), "https://youtu.be/single")
	assert.True(t, errors.Is(err, exec.ErrNotFound))
	playlists.AssertNumberOfCalls(t, "Expand", 1)
}
