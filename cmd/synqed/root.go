package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/config"
	"github.com/ytget/synqed/internal/logger"
)

// version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

var (
	cfgFile   string
	envFile   string
	remoteURL string
	timeout   time.Duration

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "synqed",
	Short:         "Music download manager",
	Long:          "Synqed downloads tracks and playlists into a local music library.\nRun 'synqed serve' for the engine, then use the other commands against it.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Close()
		}
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./synqed.yaml or the user config dir)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	flags.StringVar(&remoteURL, "url", "", "engine URL (default: backend.url from the config)")
	flags.DurationVar(&timeout, "timeout", 2*time.Minute, "timeout for client commands")
}

// initConfig loads .env, the config file and SYNQED_* overrides, then the logger
func initConfig() error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	v := viper.New()
	config.Prepare(v, cfgFile)
	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded

	log, err = logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	return nil
}

// engineURL returns the engine client commands talk to
func engineURL() string {
	if remoteURL != "" {
		return remoteURL
	}
	return cfg.Backend.URL
}

// withClient runs fn with a client for the engine and a command deadline
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *bridge.HTTPClient) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	c := bridge.NewHTTPClient(engineURL(), log.Logger)
	defer c.Close()
	return fn(ctx, c)
}
