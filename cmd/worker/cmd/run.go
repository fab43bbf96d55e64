package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/httpserver"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/worker"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Consume queued jobs until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			logger.Info(ctx, "starting leafflow worker", logger.Fields{
				"concurrency":  cfg.Worker.Concurrency,
				"queues":       cfg.Worker.Queues,
				"storage":      cfg.Storage.Driver,
				"log_level":    cfg.LogLevel,
				"metrics_addr": cfg.Metrics.Address,
			})

			rt, err := worker.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			rt.Stats.Start()
			defer rt.Stats.Stop()

			g, gctx := errgroup.WithContext(ctx)
			if cfg.Metrics.Address != "" {
				g.Go(func() error {
					return httpserver.ListenAndServe(gctx, cfg.Metrics.Address, httpserver.NewServer(rt.DB).Routes())
				})
			}
			g.Go(func() error {
				return rt.Worker.Run(gctx)
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(ctx, "worker error", err)
				return err
			}

			logger.Info(ctx, "worker shutdown complete")
			return nil
		},
	}
}
