package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/fire-weather-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/fire-weather-etl/internal/adapter/kafka"
	"github.com/couchcryptid/fire-weather-etl/internal/config"
	"github.com/couchcryptid/fire-weather-etl/internal/observability"
	"github.com/couchcryptid/fire-weather-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	logger.Info("fire weather scenario",
		"gwl", cfg.Scenario.GWL,
		"dwi_a", cfg.Calibration.A,
		"dwi_b", cfg.Calibration.B,
		"dwi_c", cfg.Calibration.C,
		"dwi_d", cfg.Calibration.D,
	)
	if cfg.Calibration.B == 0 || cfg.Calibration.D == 0 {
		logger.Warn("dry-windy divisor is zero, indices will be infinite")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(cfg.Scenario, cfg.Calibration, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, transformer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
