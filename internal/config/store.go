package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/ytget/synqed/internal/model"
)

// UserConfigFile is the file name of the persisted user config inside the data dir
const UserConfigFile = "config.yaml"

// Store persists the user config as YAML
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store keeping its document in dataDir
func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, UserConfigFile)}
}

// Path returns the location of the config document
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored config, or nil when nothing has been saved yet
func (s *Store) Load() (*model.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return &cfg, nil
}

// Save writes cfg, replacing any previous document
func (s *Store) Save(cfg model.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.Set("library_path", cfg.LibraryPath)
	v.Set("auto_update", cfg.AutoUpdate)
	v.Set("yt_dlp_version", cfg.YtDlpVersion)
	v.Set("ffmpeg_version", cfg.FfmpegVersion)

	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Delete removes the stored document; deleting a missing one is not an error
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
