// Package config loads process configuration, persists the user config
// document and keeps desktop preferences.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. SYNQED_SERVER_PORT
const EnvPrefix = "SYNQED"

// Backend modes
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Queue modes
const (
	QueueServer = "server"
	QueueSelf   = "self"
)

// Config is the process configuration
type Config struct {
	DataDir  string         `mapstructure:"data_dir"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Health   HealthConfig   `mapstructure:"health"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	YtDlp    YtDlpConfig    `mapstructure:"ytdlp"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or text
	File       string `mapstructure:"file"`   // empty disables the file sink
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type BackendConfig struct {
	Mode string `mapstructure:"mode"`
	URL  string `mapstructure:"url"`
}

type QueueConfig struct {
	Mode string `mapstructure:"mode"`
}

type HealthConfig struct {
	Schedule string `mapstructure:"schedule"` // cron spec, empty disables
}

type MetadataConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type YtDlpConfig struct {
	Binary string `mapstructure:"binary"`
	Ffmpeg string `mapstructure:"ffmpeg"`
}

// DefaultDataDir returns the per-user directory for config, logs and state
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".synqed"
	}
	return filepath.Join(dir, "synqed")
}

// LoadDotEnv loads a .env file into the environment; a missing file is not an error
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Prepare registers defaults, config search paths and env bindings on v
func Prepare(v *viper.Viper, file string) {
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("synqed")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDataDir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the config file (if any) from v and decodes it.
// A missing file falls back to defaults.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default config values
func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 20)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 7861)
	v.SetDefault("server.mode", "release")

	v.SetDefault("backend.mode", BackendLocal)
	v.SetDefault("backend.url", "http://127.0.0.1:7861")

	v.SetDefault("queue.mode", QueueServer)

	v.SetDefault("health.schedule", "@every 30m")
	v.SetDefault("metadata.cache_ttl", 10*time.Minute)

	v.SetDefault("ytdlp.binary", "yt-dlp")
	v.SetDefault("ytdlp.ffmpeg", "ffmpeg")
}

func validate(cfg *Config) error {
	switch cfg.Backend.Mode {
	case BackendLocal, BackendRemote:
	default:
		return fmt.Errorf("backend.mode must be %q or %q, got %q", BackendLocal, BackendRemote, cfg.Backend.Mode)
	}
	if cfg.Backend.Mode == BackendRemote && cfg.Backend.URL == "" {
		return errors.New("backend.url is required in remote mode")
	}

	switch cfg.Queue.Mode {
	case QueueServer, QueueSelf:
	default:
		return fmt.Errorf("queue.mode must be %q or %q, got %q", QueueServer, QueueSelf, cfg.Queue.Mode)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	if cfg.DataDir == "" {
		return errors.New("data_dir is empty")
	}
	if cfg.YtDlp.Binary == "" {
		return errors.New("ytdlp.binary is empty")
	}
	return nil
}
