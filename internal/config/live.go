package config

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/model"
)

// LiveBackend is the part of the engine contract the config view-model uses
type LiveBackend interface {
	GetConfig(ctx context.Context) (*model.Config, error)
	UpdateConfig(ctx context.Context, cfg model.Config) error
	InitializeSetup(ctx context.Context, libraryPath string) error
	bridge.Events
}

// Live mirrors the engine's user config: fetched on load, replaced on every
// config://update push and changed only through Save.
type Live struct {
	backend LiveBackend
	log     *zap.Logger

	mu       sync.RWMutex
	cfg      *model.Config
	setup    model.SetupProgress
	onChange []func(*model.Config)
	onSetup  []func(model.SetupProgress)
}

// NewLive creates a config view-model over backend
func NewLive(backend LiveBackend, log *zap.Logger) *Live {
	if log == nil {
		log = zap.NewNop()
	}
	return &Live{backend: backend, log: log.Named("config")}
}

// OnChange registers fn to be called with every new config snapshot
func (l *Live) OnChange(fn func(*model.Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// OnSetupProgress registers fn to be called on every setup progress push
func (l *Live) OnSetupProgress(fn func(model.SetupProgress)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onSetup = append(l.onSetup, fn)
}

// Run subscribes to pushes, fetches the initial config and applies pushes until ctx ends
func (l *Live) Run(ctx context.Context) error {
	events, err := l.backend.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := l.Load(ctx); err != nil {
		l.log.Warn("initial config fetch failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			l.Apply(ev)
		}
	}
}

// Load fetches the current config from the engine
func (l *Live) Load(ctx context.Context) error {
	cfg, err := l.backend.GetConfig(ctx)
	if err != nil {
		return err
	}
	l.set(cfg)
	return nil
}

// Apply handles a pushed event and reports whether it was relevant
func (l *Live) Apply(ev bridge.Event) bool {
	switch ev.Name {
	case bridge.EventConfigUpdate:
		var cfg model.Config
		if err := ev.Decode(&cfg); err != nil {
			l.log.Warn("bad config push", zap.Error(err))
			return false
		}
		l.set(&cfg)
		return true
	case bridge.EventSetupProgress:
		var p model.SetupProgress
		if err := ev.Decode(&p); err != nil {
			l.log.Warn("bad setup push", zap.Error(err))
			return false
		}
		l.mu.Lock()
		l.setup = p
		listeners := append([]func(model.SetupProgress){}, l.onSetup...)
		l.mu.Unlock()
		for _, fn := range listeners {
			fn(p)
		}
		return true
	}
	return false
}

// Config returns a copy of the current config, or nil before setup
func (l *Live) Config() *model.Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.cfg == nil {
		return nil
	}
	cfg := *l.cfg
	return &cfg
}

// SetupProgress returns the last setup progress push
func (l *Live) SetupProgress() model.SetupProgress {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.setup
}

// Save sends cfg to the engine and adopts it locally on success
func (l *Live) Save(ctx context.Context, cfg model.Config) error {
	if err := l.backend.UpdateConfig(ctx, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	l.set(&cfg)
	return nil
}

// InitializeSetup asks the engine to create a library at path; progress and
// the resulting config arrive as pushes
func (l *Live) InitializeSetup(ctx context.Context, path string) error {
	if err := l.backend.InitializeSetup(ctx, path); err != nil {
		return fmt.Errorf("initialize setup: %w", err)
	}
	return nil
}

func (l *Live) set(cfg *model.Config) {
	l.mu.Lock()
	if cfg != nil {
		c := *cfg
		cfg = &c
	}
	l.cfg = cfg
	listeners := append([]func(*model.Config){}, l.onChange...)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
}
