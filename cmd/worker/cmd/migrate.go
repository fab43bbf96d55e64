package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/database"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the queue schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}

			db, err := database.NewClient(cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Info(cmd.Context(), "queue schema applied")
			return nil
		},
	}
}
