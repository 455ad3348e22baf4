package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/config"
	"github.com/ytget/synqed/internal/model"
	"github.com/ytget/synqed/internal/platform"
)

// Options configures an Engine
type Options struct {
	// Store persists the user config; required
	Store *config.Store
	// Tool runs downloads; defaults to yt-dlp from YtDlp
	Tool     Tool
	YtDlp    config.YtDlpConfig
	CacheTTL time.Duration
	// Playlists expands playlists when yt-dlp is missing; defaults to ytdlp
	Playlists PlaylistSource
	// Covers caches cover art after each download; nil disables it
	Covers   *CoverCache
	Logger   *zap.Logger
	Recorder Recorder
	// Watch enables the songs folder watcher
	Watch bool
}

// Engine is the local implementation of bridge.Backend
type Engine struct {
	store  *config.Store
	tool   Tool
	meta   *MetadataFetcher
	covers *CoverCache
	bus    *bridge.Bus
	jobs   *Manager
	log    *zap.Logger
	rec    Recorder
	watch  bool

	mu      sync.RWMutex
	cfg     *model.Config
	lib     *Library
	watcher *LibraryWatcher
}

var _ bridge.Backend = (*Engine)(nil)

// NewEngine loads the stored config and opens the library when one is set up
func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("engine: config store is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	log := opts.Logger.Named("engine")
	if opts.Tool == nil {
		opts.Tool = NewYtDlp(opts.YtDlp.Binary, opts.YtDlp.Ffmpeg, log)
	}
	if opts.Playlists == nil {
		opts.Playlists = platform.NewPlaylistExpander()
	}

	e := &Engine{
		store:  opts.Store,
		tool:   opts.Tool,
		meta:   NewMetadataFetcher(opts.Tool, opts.Playlists, opts.CacheTTL, log),
		covers: opts.Covers,
		bus:    bridge.NewBus(bridge.DefaultBusBuffer, log),
		log:    log,
		rec:    opts.Recorder,
		watch:  opts.Watch,
	}
	e.jobs = NewManager(e.bus, e.runJob, log, opts.Recorder)

	cfg, err := opts.Store.Load()
	if err != nil {
		return nil, err
	}
	e.cfg = cfg
	if cfg.IsConfigured() {
		if err := e.openLibrary(cfg.LibraryPath); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Close stops running downloads and releases the library
func (e *Engine) Close(ctx context.Context) error {
	err := e.jobs.Shutdown(ctx)

	e.mu.Lock()
	e.closeLibraryLocked()
	e.mu.Unlock()

	if e.covers != nil {
		_ = e.covers.Close()
	}
	e.bus.Close()
	return err
}

// Subscribe implements bridge.Events
func (e *Engine) Subscribe(ctx context.Context) (<-chan bridge.Event, error) {
	return e.bus.Subscribe(ctx)
}

// Bus exposes the engine's event bus
func (e *Engine) Bus() *bridge.Bus {
	return e.bus
}

// openLibrary replaces the open library with the one at root
func (e *Engine) openLibrary(root string) error {
	lib, err := OpenLibrary(root, e.log)
	if err != nil {
		return err
	}

	var w *LibraryWatcher
	if e.watch {
		w, err = NewLibraryWatcher(filepath.Join(root, model.SongsDir), e.libraryChanged, e.log)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			e.log.Warn("library watcher disabled", zap.Error(err))
			w = nil
		}
	}

	e.mu.Lock()
	e.closeLibraryLocked()
	e.lib = lib
	e.watcher = w
	e.mu.Unlock()
	return nil
}

func (e *Engine) closeLibraryLocked() {
	if e.watcher != nil {
		if err := e.watcher.Stop(); err != nil {
			e.log.Warn("stop library watcher", zap.Error(err))
		}
		e.watcher = nil
	}
	if e.lib != nil {
		if err := e.lib.Close(); err != nil {
			e.log.Warn("close library", zap.Error(err))
		}
		e.lib = nil
	}
}

func (e *Engine) libraryChanged() {
	e.bus.Emit(bridge.EventLibraryUpdated, nil)
}

func (e *Engine) library() *Library {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lib
}

// GetConfig returns the user config, or nil before setup
func (e *Engine) GetConfig(ctx context.Context) (*model.Config, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.cfg == nil {
		return nil, nil
	}
	cfg := *e.cfg
	return &cfg, nil
}

// UpdateConfig persists cfg, switching libraries when the path changed
func (e *Engine) UpdateConfig(ctx context.Context, cfg model.Config) error {
	e.mu.RLock()
	current := ""
	if e.cfg != nil {
		current = e.cfg.LibraryPath
	}
	e.mu.RUnlock()

	if cfg.LibraryPath != "" && cfg.LibraryPath != current {
		if err := e.openLibrary(cfg.LibraryPath); err != nil {
			return err
		}
	}
	if err := e.store.Save(cfg); err != nil {
		return err
	}

	e.mu.Lock()
	e.cfg = &cfg
	e.mu.Unlock()

	e.log.Info("config updated", zap.String("library", cfg.LibraryPath), zap.Bool("auto_update", cfg.AutoUpdate))
	e.bus.Emit(bridge.EventConfigUpdate, cfg)
	return nil
}

// GetMetadata implements bridge.Commands
func (e *Engine) GetMetadata(ctx context.Context, url string) ([]model.Metadata, error) {
	return e.meta.Fetch(ctx, url)
}

// AddToQueue appends a job; the engine starts it when nothing else runs
func (e *Engine) AddToQueue(ctx context.Context, url, id string, md model.Metadata) error {
	if e.library() == nil {
		return ErrNotConfigured
	}
	if id == "" {
		id = md.ID
	}
	if id == "" {
		id = uuid.NewString()
	}
	md.ID = id
	return e.jobs.Add(url, id, md)
}

// DownloadAudio starts a download right away when the engine is idle and
// queues it otherwise
func (e *Engine) DownloadAudio(ctx context.Context, url, id string, md model.Metadata) error {
	return e.AddToQueue(ctx, url, id, md)
}

// CancelDownload implements bridge.Commands
func (e *Engine) CancelDownload(ctx context.Context, id string) error {
	return e.jobs.Cancel(id)
}

// RemoveDownload implements bridge.Commands
func (e *Engine) RemoveDownload(ctx context.Context, id string) error {
	e.jobs.Remove(id)
	return nil
}

// ClearHistory implements bridge.Commands
func (e *Engine) ClearHistory(ctx context.Context) error {
	e.jobs.ClearHistory()
	return nil
}

// ClearQueue implements bridge.Commands
func (e *Engine) ClearQueue(ctx context.Context) error {
	e.jobs.ClearQueue()
	return nil
}

// GetDownloads implements bridge.Commands
func (e *Engine) GetDownloads(ctx context.Context) ([]model.DownloadJob, error) {
	return e.jobs.Jobs(), nil
}

// GetSongs returns the library, empty before setup
func (e *Engine) GetSongs(ctx context.Context) ([]model.Song, error) {
	lib := e.library()
	if lib == nil {
		return []model.Song{}, nil
	}
	return lib.Songs(ctx)
}

// SearchSongs implements bridge.Commands
func (e *Engine) SearchSongs(ctx context.Context, query string) ([]model.Song, error) {
	lib := e.library()
	if lib == nil {
		return []model.Song{}, nil
	}
	return lib.Search(ctx, query)
}

// GetSongByID returns nil when the song is unknown or nothing is set up
func (e *Engine) GetSongByID(ctx context.Context, id string) (*model.Song, error) {
	lib := e.library()
	if lib == nil {
		return nil, nil
	}
	return lib.Song(ctx, id)
}

// RemoveSong deletes a song and its file
func (e *Engine) RemoveSong(ctx context.Context, id string) error {
	lib := e.library()
	if lib == nil {
		return ErrNotConfigured
	}
	if err := lib.Remove(ctx, id); err != nil {
		return err
	}
	e.bus.Emit(bridge.EventLibraryUpdated, nil)
	return nil
}

// ReadFileContent implements bridge.Commands
func (e *Engine) ReadFileContent(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// runJob downloads one job into the library and records the song
func (e *Engine) runJob(ctx context.Context, job model.DownloadJob, report func(model.ProgressPayload)) error {
	lib := e.library()
	if lib == nil {
		return ErrNotConfigured
	}
	songsDir := filepath.Join(lib.Root(), model.SongsDir)

	path, err := e.tool.Download(ctx, DownloadRequest{URL: job.URL, SongsDir: songsDir}, func(l Line) {
		for _, p := range LineDeltas(job.ID, l) {
			report(p)
		}
	})
	if err != nil {
		return err
	}

	md := job.Metadata
	song := model.Song{
		ID:        job.ID,
		Title:     md.Title,
		Artist:    md.Artist,
		Album:     md.Album,
		Filename:  filepath.Base(path),
		Thumbnail: md.Thumbnail,
		Duration:  md.Duration,
	}
	if song.Title == "" {
		song.Title = model.UnknownTitle
	}
	if song.Artist == "" {
		song.Artist = model.UnknownArtist
	}

	if e.covers != nil && md.Thumbnail != "" {
		if err := e.covers.Fetch(ctx, md.Thumbnail, song.CoverPath(lib.Root())); err != nil {
			e.log.Warn("cover not cached", zap.String("id", job.ID), zap.Error(err))
		}
	}

	if err := lib.Add(ctx, song); err != nil {
		return fmt.Errorf("failed to add song to database: %w", err)
	}
	e.bus.Emit(bridge.EventLibraryUpdated, nil)
	return nil
}
