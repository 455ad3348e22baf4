package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	synqed "github.com/ytget/synqed/internal/app"
	"github.com/ytget/synqed/internal/config"
	"github.com/ytget/synqed/internal/logger"
	"github.com/ytget/synqed/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "com.ytget.synqed"
	AppName = "Synqed"

	shutdownTimeout = 10 * time.Second
)

func main() {
	configFile := flag.String("config", "", "config file (default: ./synqed.yaml or the user config dir)")
	remoteURL := flag.String("remote", "", "connect to the engine served at this URL and remember it")
	flag.Parse()

	if err := run(*configFile, *remoteURL); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func run(configFile, remoteURL string) error {
	if err := config.LoadDotEnv(""); err != nil {
		return err
	}
	v := viper.New()
	config.Prepare(v, configFile)
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Close()
	log.Info("starting", zap.String("version", version), zap.String("backend", cfg.Backend.Mode))

	fyneApp := app.NewWithID(AppID)
	fyneApp.Settings().SetTheme(ui.NewCompactTheme())
	settings := config.NewSettings(fyneApp)

	switch {
	case remoteURL != "":
		settings.SetRemoteURL(remoteURL)
		cfg.Backend = config.BackendConfig{Mode: config.BackendRemote, URL: remoteURL}
	case cfg.Backend.Mode == config.BackendRemote:
		cfg.Backend.URL = settings.GetRemoteURL(cfg.Backend.URL)
	}

	rt, err := synqed.New(cfg, log.Logger, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := rt.Start(ctx); err != nil {
		return err
	}

	window := fyneApp.NewWindow(fmt.Sprintf("%s %s", AppName, version))
	root := ui.NewRootUI(ctx, ui.Deps{
		App:      fyneApp,
		Window:   window,
		Queue:    rt.Queue,
		Live:     rt.Live,
		Songs:    rt.Songs,
		Settings: settings,
		Commands: rt.Backend,
		Local:    rt.Local(),
		Logger:   log.Logger,
	})
	go root.Run(ctx)

	window.ShowAndRun()

	cancel()
	closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer closeCancel()
	if err := rt.Close(closeCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("stopped")
	return nil
}
