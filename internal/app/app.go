// Package app assembles the engine (or a client for a remote one) with the
// view-models every front end needs.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/backend"
	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/config"
	"github.com/ytget/synqed/internal/download"
	"github.com/ytget/synqed/internal/library"
	"github.com/ytget/synqed/internal/metrics"
)

// Runtime is a wired backend plus its queue, config and song views
type Runtime struct {
	Config  *config.Config
	Backend bridge.Backend
	// Engine is nil when talking to a remote engine
	Engine  *backend.Engine
	Queue   *download.Queue
	Live    *config.Live
	Songs   *library.Songs
	Metrics *metrics.Metrics

	remote *bridge.HTTPClient
	log    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a runtime from cfg. reg receives the metrics; nil means the
// default registry.
func New(cfg *config.Config, log *zap.Logger, reg prometheus.Registerer) (*Runtime, error) {
	if log == nil {
		log = zap.NewNop()
	}
	mode, err := download.ParseMode(cfg.Queue.Mode)
	if err != nil {
		return nil, err
	}

	r := &Runtime{
		Config:  cfg,
		Metrics: metrics.New(metrics.DefaultNamespace, reg),
		log:     log,
	}

	switch cfg.Backend.Mode {
	case config.BackendRemote:
		r.remote = bridge.NewHTTPClient(cfg.Backend.URL, log)
		r.Backend = r.remote
		log.Info("using remote engine", zap.String("url", cfg.Backend.URL))
	default:
		engine, err := backend.NewEngine(backend.Options{
			Store:    config.NewStore(cfg.DataDir),
			YtDlp:    cfg.YtDlp,
			CacheTTL: cfg.Metadata.CacheTTL,
			Covers:   backend.NewCoverCache(log),
			Logger:   log,
			Recorder: r.Metrics,
			Watch:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("start engine: %w", err)
		}
		r.Engine = engine
		r.Backend = engine
	}

	r.Queue = download.NewQueue(r.Backend, download.Options{
		Mode:     mode,
		Logger:   log,
		Recorder: r.Metrics,
	})
	r.Live = config.NewLive(r.Backend, log)
	r.Songs = library.NewSongs(r.Backend, log)
	return r, nil
}

// Local reports whether the engine runs in this process
func (r *Runtime) Local() bool {
	return r.Engine != nil
}

// Start runs the queue, the live config and the song cache in the
// background, and schedules health checks for a local engine
func (r *Runtime) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	if r.Engine != nil {
		if err := r.Engine.StartHealthChecks(ctx, r.Config.Health.Schedule); err != nil {
			r.cancel()
			return err
		}
	}

	r.goRun(ctx, "queue", r.Queue.Run)
	r.goRun(ctx, "config", r.Live.Run)
	r.goRun(ctx, "songs", r.Songs.Run)
	return nil
}

func (r *Runtime) goRun(ctx context.Context, name string, run func(context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.log.Error(name+" stopped", zap.Error(err))
		}
	}()
}

// Close stops the background loops and releases the backend
func (r *Runtime) Close(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()

	if r.Engine != nil {
		return r.Engine.Close(ctx)
	}
	return r.remote.Close()
}
