package backend

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ytget/synqed/internal/model"
)

func TestParseLogStatus(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"[youtube] abc: Downloading webpage", "Fetching Info"},
		{"[youtube] abc: Downloading android vr player API JSON", "Preparing Download"},
		{"[youtube] abc: Downloading player 1a2b3c", "Preparing Download"},
		{"[youtube] [jsc:deno] Solving JS challenges using deno", "Preparing Download"},
		{"[youtube] abc: Downloading m3u8 information", "Preparing Download"},
		{"[download] Destination: /music/Songs/a.webm", "Downloading"},
		{"download-progress: 12.5%", "Downloading"},
		{"[ExtractAudio] Destination: /music/Songs/a.mp3", "Downloading"},
		{"Extracting audio from a.webm", "Extracting Audio"},
		{"[Metadata] Adding metadata to \"a.mp3\"", "Adding Metadata"},
		{"[ThumbnailsConvertor] Converting thumbnail \"a.webp\" to jpg", "Converting Thumbnail"},
		{"[EmbedThumbnail] ffmpeg: Adding thumbnail to \"a.mp3\"", "Embedding Thumbnail"},
		{"[info] abc: Downloading 1 format(s): 251", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogStatus(tt.line))
		})
	}
}

func TestParseProgress(t *testing.T) {
	pct, ok := ParseProgress("download-progress: 42.3%")
	require.True(t, ok)
	assert.InDelta(t, 42.3, pct, 0.0001)

	pct, ok = ParseProgress("download-progress:100.0%")
	require.True(t, ok)
	assert.Equal(t, 100.0, pct)

	for _, line := range []string{"download-progress:  N/A", "download-progress: abc%", "[download] 42.3%"} {
		_, ok := ParseProgress(line)
		assert.False(t, ok, line)
	}
}

func TestLineDeltas(t *testing.T) {
	deltas := LineDeltas("a", Line{Text: "download-progress: 50.0%"})
	require.Len(t, deltas, 2)

	assert.Equal(t, float64(model.NoProgress), deltas[0].Progress)
	assert.Equal(t, "download-progress: 50.0%", deltas[0].Log)
	assert.Equal(t, "Downloading", deltas[0].DetailedStatus)

	assert.Equal(t, 50.0, deltas[1].Progress)
	assert.Equal(t, model.StatusDownloading, deltas[1].Status)
	assert.Empty(t, deltas[1].Log)

	deltas = LineDeltas("a", Line{Text: "WARNING: nsig extraction failed", Stderr: true})
	require.Len(t, deltas, 1)
	assert.Equal(t, "[stderr] WARNING: nsig extraction failed", deltas[0].Log)
	assert.Equal(t, model.StatusDownloading, deltas[0].Status)
}

func TestDownloadArgs(t *testing.T) {
	y := NewYtDlp("", "", nil)
	args := y.DownloadArgs("https://youtu.be/x", "/lib/Songs/"+OutputTemplate)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "--restrict-filenames -x --audio-format mp3 --audio-quality 320k")
	assert.Contains(t, joined, "--embed-thumbnail --embed-metadata --compat-options no-youtube-unavailable-videos")
	assert.Contains(t, joined, "-o /lib/Songs/%(title).150s-%(id).50s.%(ext)s --newline")
	assert.Contains(t, joined, "--progress-template download-progress:%(progress._percent_str)s")
	assert.Equal(t, "https://youtu.be/x", args[len(args)-1])
	assert.NotContains(t, args, "--ffmpeg-location")

	y = NewYtDlp("yt-dlp", filepath.Join(string(filepath.Separator), "opt", "ffmpeg"), nil)
	assert.Contains(t, y.DownloadArgs("u", "o"), "--ffmpeg-location")
}

func TestAudioFileAndDestination(t *testing.T) {
	assert.Equal(t, "/lib/Songs/a-b.mp3", AudioFile("/lib/Songs/a-b.webm"))
	assert.Equal(t, "/lib/Songs/a.mp3", AudioFile("/lib/Songs/a.mp3"))

	assert.Equal(t, "/lib/Songs/a.webm", destination("[download] Destination: /lib/Songs/a.webm"))
	assert.Empty(t, destination("[download] 100% of 3.2MiB"))
}

func TestFfmpegVersion(t *testing.T) {
	assert.Equal(t, "6.1.1", ffmpegVersion("ffmpeg version 6.1.1 Copyright (c) 2000-2023\nbuilt with gcc"))
	assert.Equal(t, "something", ffmpegVersion("something\n"))
}

// fakeYtDlp writes an executable shell script standing in for yt-dlp
func fakeYtDlp(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func collectLines() (func(Line), func() []Line) {
	var mu sync.Mutex
	var lines []Line
	return func(l Line) {
			mu.Lock()
			lines = append(lines, l)
			mu.Unlock()
		}, func() []Line {
			mu.Lock()
			defer mu.Unlock()
			return append([]Line(nil), lines...)
		}
}

func TestYtDlpDownload(t *testing.T) {
	songs := t.TempDir()
	bin := fakeYtDlp(t, `echo "[download] Destination: `+songs+`/Song-abc.webm"
echo "download-progress: 50.0%"
echo "WARNING: slow" 1>&2
echo "[ExtractAudio] Destination: `+songs+`/Song-abc.mp3"
exit 0`)

	y := NewYtDlp(bin, "ffmpeg", zaptest.NewLogger(t))
	onLine, lines := collectLines()

	path, err := y.Download(context.Background(), DownloadRequest{URL: "https://youtu.be/abc", SongsDir: songs}, onLine)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(songs, "Song-abc.mp3"), path)

	got := lines()
	require.Len(t, got, 4)
	assert.Contains(t, got, Line{Text: "WARNING: slow", Stderr: true})
	assert.Contains(t, got, Line{Text: "download-progress: 50.0%"})
}

func TestYtDlpDownload_ExitCode(t *testing.T) {
	bin := fakeYtDlp(t, `echo "ERROR: Video unavailable" 1>&2
exit 1`)
	y := NewYtDlp(bin, "ffmpeg", zaptest.NewLogger(t))
	onLine, _ := collectLines()

	_, err := y.Download(context.Background(), DownloadRequest{URL: "u", SongsDir: t.TempDir()}, onLine)
	assert.EqualError(t, err, "download failed with exit code: 1")
}

func TestYtDlpDownload_Cancelled(t *testing.T) {
	bin := fakeYtDlp(t, `echo "[youtube] abc: Downloading webpage"
exec sleep 10`)
	y := NewYtDlp(bin, "ffmpeg", zaptest.NewLogger(t))
	onLine, lines := collectLines()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		assert.Eventually(t, func() bool { return len(lines()) == 1 }, 3*time.Second, 10*time.Millisecond)
		cancel()
	}()

	_, err := y.Download(ctx, DownloadRequest{URL: "u", SongsDir: t.TempDir()}, onLine)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestYtDlpDumpJSON(t *testing.T) {
	bin := fakeYtDlp(t, `echo '{"id":"a","title":"A"}'`)
	y := NewYtDlp(bin, "ffmpeg", nil)

	out, err := y.DumpJSON(context.Background(), "u")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","title":"A"}`, strings.TrimSpace(string(out)))

	_, err = NewYtDlp(filepath.Join(t.TempDir(), "missing"), "ffmpeg", nil).DumpJSON(context.Background(), "u")
	assert.Error(t, err)
}
