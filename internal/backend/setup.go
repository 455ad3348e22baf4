package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/model"
)

// Setup steps reported through setup://progress
const (
	SetupStepFolders  = "Creating library folders"
	SetupStepDatabase = "Opening library database"
	SetupStepTools    = "Checking yt-dlp and ffmpeg"
	SetupStepConfig   = "Saving configuration"
	SetupStepDone     = "Ready"
)

func (e *Engine) setupProgress(status string, progress float64) {
	e.bus.Emit(bridge.EventSetupProgress, model.SetupProgress{Status: status, Progress: progress})
}

// InitializeSetup prepares the library at libraryPath, records tool versions
// and persists the config. Progress is pushed from 0 to 100.
func (e *Engine) InitializeSetup(ctx context.Context, libraryPath string) error {
	if libraryPath == "" {
		return fmt.Errorf("library path is required")
	}
	root, err := filepath.Abs(libraryPath)
	if err != nil {
		return fmt.Errorf("resolve library path: %w", err)
	}
	e.log.Info("setup started", zap.String("library", root))

	e.setupProgress(SetupStepFolders, 0)
	for _, dir := range []string{model.SongsDir, model.CoversDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	e.setupProgress(SetupStepDatabase, 25)
	if err := e.openLibrary(root); err != nil {
		return err
	}

	e.setupProgress(SetupStepTools, 50)
	cfg := model.Config{LibraryPath: root}
	if current, _ := e.GetConfig(ctx); current != nil {
		cfg.AutoUpdate = current.AutoUpdate
		cfg.YtDlpVersion = current.YtDlpVersion
		cfg.FfmpegVersion = current.FfmpegVersion
	}
	ytdlp, ffmpeg, err := e.tool.Versions(ctx)
	if err != nil {
		e.log.Warn("tool check failed", zap.Error(err))
	}
	if ytdlp != "" {
		cfg.YtDlpVersion = ytdlp
	}
	if ffmpeg != "" {
		cfg.FfmpegVersion = ffmpeg
	}

	e.setupProgress(SetupStepConfig, 75)
	if err := e.store.Save(cfg); err != nil {
		return err
	}
	e.mu.Lock()
	e.cfg = &cfg
	e.mu.Unlock()
	e.bus.Emit(bridge.EventConfigUpdate, cfg)

	e.setupProgress(SetupStepDone, 100)
	e.log.Info("setup finished", zap.String("yt_dlp", cfg.YtDlpVersion), zap.String("ffmpeg", cfg.FfmpegVersion))
	return nil
}

// CheckHealth reports whether downloads can run: both tools resolve and the
// library folder exists
func (e *Engine) CheckHealth(ctx context.Context) (bool, error) {
	ok := e.healthy()
	e.rec.HealthChecked(ok)
	return ok, nil
}

func (e *Engine) healthy() bool {
	if err := e.tool.Available(); err != nil {
		e.log.Warn("health check failed", zap.Error(err))
		return false
	}
	lib := e.library()
	if lib == nil {
		e.log.Warn("health check failed", zap.Error(ErrNotConfigured))
		return false
	}
	if _, err := os.Stat(filepath.Join(lib.Root(), model.SongsDir)); err != nil {
		e.log.Warn("health check failed", zap.Error(err))
		return false
	}
	return true
}

// FactoryReset cancels every download, closes the library and deletes the
// stored config. The library folder itself is kept.
func (e *Engine) FactoryReset(ctx context.Context) error {
	e.jobs.Reset()
	e.meta.Flush()

	e.mu.Lock()
	e.closeLibraryLocked()
	e.cfg = nil
	e.mu.Unlock()

	if err := e.store.Delete(); err != nil {
		return err
	}
	e.log.Warn("factory reset")
	e.bus.Emit(bridge.EventConfigUpdate, model.Config{})
	return nil
}
