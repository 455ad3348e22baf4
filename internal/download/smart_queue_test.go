package download

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ytget/synqed/internal/model"
)

func TestImportLines(t *testing.T) {
	content := "https://youtu.be/a\n  www.youtube.com/watch?v=b  \n# comment\n\nftp://nope\r\nhttp://x.test/c\r\n"
	assert.Equal(t, []string{
		"https://youtu.be/a",
		"www.youtube.com/watch?v=b",
		"http://x.test/c",
	}, ImportLines(content))
	assert.Empty(t, ImportLines(""))
}

func TestImportFile_SkipsSongsInLibrary(t *testing.T) {
	backend := newFakeBackend()
	urls := []string{"https://example.com/watch?v=a", "https://example.com/watch?v=b", "https://example.com/watch?v=c"}
	backend.On("ReadFileContent", mock.Anything, "/tmp/links.txt").
		Return(urls[0]+"\n"+urls[1]+"\n"+urls[2]+"\n", nil)
	for _, id := range []string{"a", "b", "c"} {
		backend.On("GetMetadata", mock.Anything, meta(id).URL).Return([]model.Metadata{meta(id)}, nil)
	}
	backend.On("GetSongByID", mock.Anything, "a").Return(nil, nil)
	backend.On("GetSongByID", mock.Anything, "b").Return(&model.Song{ID: "b", Title: "Title b"}, nil)
	backend.On("GetSongByID", mock.Anything, "c").Return(nil, nil)
	backend.On("DownloadAudio", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	q := startQueue(t, backend, ModeSelfManaged)
	ctx := testCtx(t)

	res, err := q.ImportFile(ctx, "/tmp/links.txt")
	require.NoError(t, err)
	assert.Len(t, res.Added, 2)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Failed)
	assert.Equal(t, []string{"a", "c"}, ids(q.Jobs()))
}

func TestImportFile_CountsFailures(t *testing.T) {
	backend := newFakeBackend()
	backend.On("ReadFileContent", mock.Anything, "links.txt").
		Return("https://example.com/watch?v=a\nhttps://broken.test/x\n", nil)
	backend.On("GetMetadata", mock.Anything, meta("a").URL).Return([]model.Metadata{meta("a")}, nil)
	backend.On("GetMetadata", mock.Anything, "https://broken.test/x").Return(nil, errors.New("No metadata found"))
	backend.On("GetSongByID", mock.Anything, "a").Return(nil, nil)
	backend.On("DownloadAudio", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	q := startQueue(t, backend, ModeSelfManaged)

	res, err := q.ImportFile(testCtx(t), "links.txt")
	require.NoError(t, err)
	assert.Len(t, res.Added, 1)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "https://broken.test/x")
}

func TestImportFile_ReadError(t *testing.T) {
	backend := newFakeBackend()
	backend.On("ReadFileContent", mock.Anything, "missing.txt").Return("", errors.New("no such file"))
	q := startQueue(t, backend, ModeSelfManaged)

	_, err := q.ImportFile(testCtx(t), "missing.txt")
	assert.ErrorContains(t, err, "no such file")
}

func TestQueueURL_PlaylistSkipsQueuedTracks(t *testing.T) {
	backend := newFakeBackend()
	playlist := "https://example.com/playlist?list=PL1"
	backend.On("GetMetadata", mock.Anything, playlist).Return([]model.Metadata{meta("a"), meta("b")}, nil)
	backend.On("GetSongByID", mock.Anything, mock.Anything).Return(nil, nil)
	backend.On("DownloadAudio", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	q := startQueue(t, backend, ModeSelfManaged)
	ctx := testCtx(t)
	require.NoError(t, q.Enqueue(ctx, meta("a").URL, meta("a")))

	res := q.QueueURL(ctx, playlist)
	require.NoError(t, res.Err)
	require.Len(t, res.Added, 1)
	assert.Equal(t, "b", res.Added[0].ID)
	assert.Equal(t, 1, res.Skipped)

	b, ok := q.Job("b")
	require.True(t, ok)
	assert.Equal(t, meta("b").URL, b.URL)
}

func TestQueueURL_LookupErrorAborts(t *testing.T) {
	backend := newFakeBackend()
	backend.On("GetMetadata", mock.Anything, meta("a").URL).Return([]model.Metadata{meta("a")}, nil)
	backend.On("GetSongByID", mock.Anything, "a").Return(nil, errors.New("database is locked"))
	q := startQueue(t, backend, ModeSelfManaged)

	res := q.QueueURL(testCtx(t), meta("a").URL)
	assert.ErrorContains(t, res.Err, "database is locked")
	assert.Empty(t, res.Added)
	assert.Empty(t, q.Jobs())
}
