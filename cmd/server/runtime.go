package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/cleanup"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/config"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/processing"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/queue"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/spectrogram"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/storage"
)

// services holds every long-lived component shared by serve and worker.
type services struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sql.DB
	records *storage.AudioRepository
	tasks   *queue.Store
	buckets *storage.Buckets
	pool    *queue.Pool
	reaper  *cleanup.Scheduler
	started bool
}

func openServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*services, error) {
	logger.Info("initializing components", "database", cfg.Storage.Database, "backend", cfg.Storage.Backend)

	db, err := storage.OpenDB(cfg.Storage.Database)
	if err != nil {
		return nil, err
	}

	tasks, err := queue.NewStore(ctx, db)
	if err != nil {
		closeDB(db, logger)
		return nil, err
	}

	buckets, err := storage.OpenBuckets(ctx, cfg, logger)
	if err != nil {
		closeDB(db, logger)
		return nil, err
	}

	records := storage.NewAudioRepository(db)
	processor := processing.NewProcessor(records, buckets.Audio, buckets.Spectrogram, spectrogram.Generator{}, logger)

	pool := queue.NewPool(tasks, processor, queue.Options{
		Workers:      cfg.Workers.Count,
		PollInterval: cfg.PollInterval(),
		Lease:        cfg.Lease(),
		MaxAttempts:  cfg.Retry.MaxAttempts,
		Backoff:      queue.Backoff{Base: cfg.BaseDelay(), Max: cfg.MaxDelay()},
		Logger:       logger,
	})

	return &services{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		records: records,
		tasks:   tasks,
		buckets: buckets,
		pool:    pool,
		reaper:  cleanup.NewScheduler(tasks, cfg.CleanupInterval(), logger),
	}, nil
}

// startBackground launches the worker pool and the lease reaper.
func (s *services) startBackground(ctx context.Context) {
	s.reaper.Start(ctx)
	s.pool.Start(ctx)
	s.started = true
}

// stop waits for in-flight attempts after ctx is cancelled, then releases
// the database.
func (s *services) stop() {
	if s.started {
		s.reaper.Stop()
		s.pool.Wait()
	}
	closeDB(s.db, s.logger)
}
