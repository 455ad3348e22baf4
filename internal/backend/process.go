package backend

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/model"
)

// yt-dlp invocation constants
const (
	DefaultYtDlpBinary  = "yt-dlp"
	DefaultFfmpegBinary = "ffmpeg"

	AudioFormat     = "mp3"
	AudioQuality    = "320k"
	OutputTemplate  = "%(title).150s-%(id).50s.%(ext)s"
	ProgressPrefix  = "download-progress:"
	ProgressFormat  = ProgressPrefix + "%(progress._percent_str)s"
	DestinationMark = "Destination: "
	StderrPrefix    = "[stderr] "
)

// maxLineSize bounds a single line of tool output
const maxLineSize = 1024 * 1024

// Line is one line of tool output
type Line struct {
	Text   string
	Stderr bool
}

// DownloadRequest describes a single audio download
type DownloadRequest struct {
	URL      string
	SongsDir string
}

// Tool is the external downloader. YtDlp is the production implementation.
type Tool interface {
	// Download fetches req.URL as mp3 into req.SongsDir, calling onLine for
	// every output line, and returns the absolute path of the audio file.
	Download(ctx context.Context, req DownloadRequest, onLine func(Line)) (string, error)
	// DumpJSON returns the --dump-json --flat-playlist stream for url
	DumpJSON(ctx context.Context, url string) ([]byte, error)
	// Versions returns the yt-dlp and ffmpeg versions
	Versions(ctx context.Context) (ytdlp, ffmpeg string, err error)
	// Available reports an error when a binary cannot be resolved
	Available() error
}

// YtDlp runs the yt-dlp binary
type YtDlp struct {
	Binary string
	Ffmpeg string
	log    *zap.Logger
}

// NewYtDlp creates a runner; empty names fall back to the binaries on PATH
func NewYtDlp(binary, ffmpeg string, log *zap.Logger) *YtDlp {
	if binary == "" {
		binary = DefaultYtDlpBinary
	}
	if ffmpeg == "" {
		ffmpeg = DefaultFfmpegBinary
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &YtDlp{Binary: binary, Ffmpeg: ffmpeg, log: log.Named("yt-dlp")}
}

// OutputPath returns the -o template for songsDir
func OutputPath(songsDir string) string {
	return filepath.Join(songsDir, OutputTemplate)
}

// DownloadArgs builds the yt-dlp argument list for an mp3 download
func (y *YtDlp) DownloadArgs(url, output string) []string {
	args := []string{
		"--restrict-filenames",
		"-x",
		"--audio-format", AudioFormat,
		"--audio-quality", AudioQuality,
	}
	if strings.ContainsRune(y.Ffmpeg, filepath.Separator) {
		args = append(args, "--ffmpeg-location", y.Ffmpeg)
	}
	return append(args,
		"--embed-thumbnail",
		"--embed-metadata",
		"--compat-options", "no-youtube-unavailable-videos",
		"-o", output,
		"--newline",
		"--progress-template", ProgressFormat,
		url,
	)
}

// Download implements Tool
func (y *YtDlp) Download(ctx context.Context, req DownloadRequest, onLine func(Line)) (string, error) {
	output := OutputPath(req.SongsDir)
	cmd := exec.CommandContext(ctx, y.Binary, y.DownloadArgs(req.URL, output)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start yt-dlp: %w", err)
	}
	y.log.Debug("process started", zap.String("url", req.URL), zap.Int("pid", cmd.Process.Pid))

	var (
		mu   sync.Mutex
		dest string
		wg   sync.WaitGroup
	)
	scan := func(r io.Reader, isErr bool) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if d := destination(text); d != "" {
				mu.Lock()
				dest = d
				mu.Unlock()
			}
			onLine(Line{Text: text, Stderr: isErr})
		}
	}
	wg.Add(2)
	go scan(stdout, false)
	go scan(stderr, true)
	wg.Wait()

	err = cmd.Wait()
	if ctx.Err() != nil {
		return "", ErrCancelled
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("download failed with exit code: %d", exitErr.ExitCode())
		}
		return "", fmt.Errorf("yt-dlp: %w", err)
	}

	if dest == "" {
		if dest, err = y.resolveFilename(ctx, req.URL, output); err != nil {
			return "", err
		}
	}
	return AudioFile(dest), nil
}

// resolveFilename asks yt-dlp where the download ended up
func (y *YtDlp) resolveFilename(ctx context.Context, url, output string) (string, error) {
	out, err := exec.CommandContext(ctx, y.Binary, "--restrict-filenames", "-o", output, "--get-filename", url).Output()
	if err != nil {
		return "", fmt.Errorf("failed to resolve downloaded filename: %w", err)
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		return "", fmt.Errorf("failed to resolve downloaded filename")
	}
	return name, nil
}

// DumpJSON implements Tool
func (y *YtDlp) DumpJSON(ctx context.Context, url string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, y.Binary, "--dump-json", "--flat-playlist", url)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("yt-dlp failed: %s", strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to execute yt-dlp: %w", err)
	}
	return out, nil
}

// Versions implements Tool
func (y *YtDlp) Versions(ctx context.Context) (string, string, error) {
	out, err := exec.CommandContext(ctx, y.Binary, "--version").Output()
	if err != nil {
		return "", "", fmt.Errorf("yt-dlp --version: %w", err)
	}
	ytdlp := strings.TrimSpace(string(out))

	out, err = exec.CommandContext(ctx, y.Ffmpeg, "-version").Output()
	if err != nil {
		return ytdlp, "", fmt.Errorf("ffmpeg -version: %w", err)
	}
	return ytdlp, ffmpegVersion(string(out)), nil
}

// Available implements Tool
func (y *YtDlp) Available() error {
	if _, err := exec.LookPath(y.Binary); err != nil {
		return fmt.Errorf("yt-dlp not found: %w", err)
	}
	if _, err := exec.LookPath(y.Ffmpeg); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	return nil
}

// ffmpegVersion extracts "6.1.1" from "ffmpeg version 6.1.1 Copyright ..."
func ffmpegVersion(out string) string {
	first, _, _ := strings.Cut(out, "\n")
	fields := strings.Fields(first)
	if len(fields) >= 3 && fields[1] == "version" {
		return fields[2]
	}
	return strings.TrimSpace(first)
}

// destination returns the path announced by a "Destination:" line
func destination(line string) string {
	_, path, ok := strings.Cut(line, DestinationMark)
	if !ok {
		return ""
	}
	return strings.TrimSpace(path)
}

// AudioFile maps whatever yt-dlp downloaded to the extracted mp3
func AudioFile(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + AudioFormat
}

// ParseLogStatus maps a yt-dlp log line to a short phase name, or ""
func ParseLogStatus(line string) string {
	has := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(line, s) {
				return true
			}
		}
		return false
	}

	switch {
	case has("Downloading webpage"):
		return "Fetching Info"
	case has("Downloading android vr player API JSON", "Downloading web safari player API JSON",
		"Downloading player", "Solving JS challenges", "Downloading m3u8 information"):
		return "Preparing Download"
	case has("Destination:", ProgressPrefix):
		return "Downloading"
	case has("[ExtractAudio]", "Extracting audio"):
		return "Extracting Audio"
	case has("[Metadata]", "Adding metadata"):
		return "Adding Metadata"
	case has("[ThumbnailsConvertor]", "Converting thumbnail"):
		return "Converting Thumbnail"
	case has("[EmbedThumbnail]", "Adding thumbnail"):
		return "Embedding Thumbnail"
	}
	return ""
}

// ParseProgress returns the percentage of a "download-progress: 42.0%" line
func ParseProgress(line string) (float64, bool) {
	rest, ok := strings.CutPrefix(line, ProgressPrefix)
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(strings.TrimSpace(rest), "%")
	if !ok {
		return 0, false
	}
	pct, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}

// LineDeltas turns one output line of job id into progress deltas: the log
// delta always, and a percentage delta for progress lines on stdout.
func LineDeltas(id string, l Line) []model.ProgressPayload {
	log := l.Text
	if l.Stderr {
		log = StderrPrefix + l.Text
	}
	out := []model.ProgressPayload{{
		ID:             id,
		Progress:       model.NoProgress,
		Status:         model.StatusDownloading,
		DetailedStatus: ParseLogStatus(l.Text),
		Log:            log,
	}}

	if l.Stderr {
		return out
	}
	if pct, ok := ParseProgress(l.Text); ok {
		out = append(out, model.ProgressPayload{
			ID:             id,
			Progress:       pct,
			Status:         model.StatusDownloading,
			DetailedStatus: "Downloading",
		})
	}
	return out
}
