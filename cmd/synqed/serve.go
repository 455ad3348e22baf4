package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/backend"
	"github.com/ytget/synqed/internal/config"
	"github.com/ytget/synqed/internal/metrics"
	"github.com/ytget/synqed/internal/server"
)

var shutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the download engine as an HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.New(metrics.DefaultNamespace, reg)

		engine, err := backend.NewEngine(backend.Options{
			Store:    config.NewStore(cfg.DataDir),
			YtDlp:    cfg.YtDlp,
			CacheTTL: cfg.Metadata.CacheTTL,
			Covers:   backend.NewCoverCache(log.Logger),
			Logger:   log.Logger,
			Recorder: m,
			Watch:    true,
		})
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := engine.Close(ctx); err != nil {
				log.Warn("engine shutdown", zap.Error(err))
			}
		}()

		ctx := cmd.Context()
		if err := engine.StartHealthChecks(ctx, cfg.Health.Schedule); err != nil {
			return err
		}

		srv := server.New(engine, server.Options{
			Addr:     cfg.Server.Addr(),
			Logger:   log.Logger,
			Gatherer: reg,
			Debug:    cfg.Server.Mode == "debug",
		})
		log.Info("engine ready",
			zap.String("addr", srv.Addr()),
			zap.String("data_dir", cfg.DataDir),
			zap.String("version", version),
		)
		return srv.Run(ctx, shutdownTimeout)
	},
}

func init() {
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "grace period for open requests on shutdown")
	rootCmd.AddCommand(serveCmd)
}
