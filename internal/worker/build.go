package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/config"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/database"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/processing"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/results"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/services/cloudinary"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/services/dispatch"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/services/images"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/services/leafflow"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/services/storage"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/services/telegram"
)

// Runtime is a fully wired worker process.
type Runtime struct {
	Worker *Worker
	DB     *database.Client
	Stats  *StatsReporter

	closers []func() error
}

// Build initializes every client from cfg and registers the three jobs.
func Build(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{}

	db, err := database.NewClient(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database client: %w", err)
	}
	rt.DB = db
	rt.closers = append(rt.closers, db.Close)

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	rt.closers = append(rt.closers, store.Close)

	transformer, err := cloudinary.NewClient(cfg.Cloudinary, cfg.Images.OutputFormat)
	if err != nil {
		rt.Close()
		return nil, err
	}

	var resultStore ResultStore
	if cfg.Redis.Host != "" {
		backend, err := results.NewRedisBackend(ctx, cfg.Redis)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to initialize result backend: %w", err)
		}
		rt.closers = append(rt.closers, backend.Close)
		resultStore = backend
	}

	tg := telegram.NewClient(cfg.Telegram)
	notifier := dispatch.NewDispatcher(tg, cfg.Telegram.AdminChatID)
	pipeline := images.NewPipeline(transformer, images.NewHTTPDownloader(cfg.Images.DownloadTimeout), cfg.Cloudinary.Namespace, cfg.Images)

	dispatcher := processing.NewDispatcher()
	dispatcher.Register(processing.NewAdminNotificationProcessor(notifier))
	dispatcher.Register(processing.NewUserNotificationProcessor(notifier))
	dispatcher.Register(processing.NewImageVariantsProcessor(pipeline, store, leafflow.NewService(cfg.LeafFlow)))

	stats, err := NewStatsReporter(ctx, db, cfg.Worker.Queues, cfg.Worker.StatsSchedule)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Stats = stats

	rt.Worker = New(cfg.Worker, db, dispatcher, resultStore)
	return rt, nil
}

// Close releases clients in reverse order of creation.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
