package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/tasklens/tasklens/internal/config"
	"github.com/tasklens/tasklens/internal/metrics"
	"github.com/tasklens/tasklens/internal/server"
	"github.com/tasklens/tasklens/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the plan generation HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			shutdownTracer, err := telemetry.InitTracer("tasklens", logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
				}
			}()

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector())
			m := metrics.New(registry)

			coordinator := buildCoordinator(cfg, logger, m)

			srv := server.New(cfg.Server.Port, logger)
			server.NewHandlers(coordinator, logger, registry).Mount(srv.Router)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Info("shutdown signal received", slog.String("signal", sig.String()))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}

			logger.Info("shutdown complete")
			return nil
		},
	}
}
