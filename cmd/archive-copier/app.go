package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/config"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/copier"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/logging"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/metrics"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/status"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/storage"
)

// app holds the wired dependencies of one process.
type app struct {
	cfg    config.Config
	copier *copier.Copier
	store  storage.ObjectStore
	db     *status.PostgresStore
}

// newApp loads configuration and connects the object store and database.
// With metricsServer set and metrics enabled, a scrape endpoint is started
// on the configured address.
func newApp(ctx context.Context, metricsServer bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logging.Setup(cfg.Logging)
	metrics.Init(metrics.DefaultNamespace)

	log := logging.Component("main")
	log.Info("archive copier starting",
		"version", copier.Version,
		"git_sha", copier.GitSHA,
		"storage_backend", cfg.Storage.Backend,
		"copy_retries", cfg.Copy.Retries,
		"copy_retry_sleep", cfg.Copy.RetrySleep.String(),
	)

	if metricsServer && cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				log.Error("metrics server failed", "error", err)
			}
		}()
		log.Info("metrics server started", "address", cfg.Metrics.Address)
	}

	store, err := storage.NewObjectStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("create object store: %w", err)
	}

	db, err := status.NewPostgresStore(ctx, cfg.Database)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("connect status database: %w", err)
	}

	return &app{
		cfg:    cfg,
		copier: copier.New(cfg.Copy, store, status.NewRecorder(db)),
		store:  store,
		db:     db,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("close object store", "error", err)
	}
	if err := a.db.Close(); err != nil {
		slog.Warn("close status database", "error", err)
	}
}
