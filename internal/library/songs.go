package library

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/model"
)

// Backend is the part of the engine contract the song cache uses
type Backend interface {
	GetSongs(ctx context.Context) ([]model.Song, error)
	SearchSongs(ctx context.Context, query string) ([]model.Song, error)
	RemoveSong(ctx context.Context, id string) error
	bridge.Events
}

// Songs caches the song list. It is refetched on library://updated and on
// config://update, since a new config may point at another library.
type Songs struct {
	backend Backend
	log     *zap.Logger

	mu       sync.RWMutex
	songs    []model.Song
	loaded   bool
	onChange []func([]model.Song)
}

// NewSongs creates a song cache over backend
func NewSongs(backend Backend, log *zap.Logger) *Songs {
	if log == nil {
		log = zap.NewNop()
	}
	return &Songs{backend: backend, log: log.Named("library"), songs: []model.Song{}}
}

// OnChange registers fn to be called with every new song list
func (s *Songs) OnChange(fn func([]model.Song)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Run subscribes to pushes, fetches the songs and refetches on every
// library change until ctx ends
func (s *Songs) Run(ctx context.Context) error {
	events, err := s.backend.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("initial song fetch failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Name != bridge.EventLibraryUpdated && ev.Name != bridge.EventConfigUpdate {
				continue
			}
			if err := s.Refresh(ctx); err != nil {
				s.log.Warn("song refresh failed", zap.Error(err))
			}
		}
	}
}

// Refresh refetches the song list. The cache is kept when the fetch fails.
func (s *Songs) Refresh(ctx context.Context) error {
	songs, err := s.backend.GetSongs(ctx)
	if err != nil {
		return fmt.Errorf("get songs: %w", err)
	}
	if songs == nil {
		songs = []model.Song{}
	}
	s.set(songs)
	return nil
}

// Songs returns a copy of the cached list
func (s *Songs) Songs() []model.Song {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.songs)
}

// Loaded reports whether a fetch has succeeded yet
func (s *Songs) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Search asks the engine for songs matching query; a blank query returns the cache
func (s *Songs) Search(ctx context.Context, query string) ([]model.Song, error) {
	if strings.TrimSpace(query) == "" {
		return s.Songs(), nil
	}
	songs, err := s.backend.SearchSongs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search songs: %w", err)
	}
	return songs, nil
}

// Remove deletes a song through the engine and drops it from the cache
func (s *Songs) Remove(ctx context.Context, id string) error {
	if err := s.backend.RemoveSong(ctx, id); err != nil {
		return fmt.Errorf("remove song %s: %w", id, err)
	}

	s.mu.RLock()
	songs := slices.DeleteFunc(slices.Clone(s.songs), func(song model.Song) bool { return song.ID == id })
	s.mu.RUnlock()
	s.set(songs)
	return nil
}

func (s *Songs) set(songs []model.Song) {
	s.mu.Lock()
	s.songs = songs
	s.loaded = true
	listeners := slices.Clone(s.onChange)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(slices.Clone(songs))
	}
}
