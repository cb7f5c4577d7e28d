package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/grid-allocation-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/grid-allocation-service/internal/adapter/kafka"
	"github.com/couchcryptid/grid-allocation-service/internal/adapter/registry"
	"github.com/couchcryptid/grid-allocation-service/internal/config"
	"github.com/couchcryptid/grid-allocation-service/internal/domain"
	"github.com/couchcryptid/grid-allocation-service/internal/observability"
	"github.com/couchcryptid/grid-allocation-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Initialize site catalog (feature-flagged via REGISTRY_URL / REGISTRY_ENABLED).
	// Without a catalog, requests must carry their sites inline.
	var catalog domain.SiteCatalog
	if cfg.RegistryEnabled {
		client := registry.NewClient(cfg.RegistryURL, cfg.RegistryToken, cfg.RegistryTimeout, metrics, logger)
		catalog = registry.NewCachedCatalog(client, cfg.RegistryCacheSize, metrics)
		metrics.RegistryEnabled.Set(1)
		logger.Info("site registry enabled", "url", cfg.RegistryURL, "cache_size", cfg.RegistryCacheSize, "timeout", cfg.RegistryTimeout)
	} else {
		logger.Info("site registry disabled, requests must carry sites inline")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(catalog, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start allocation pipeline.
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
