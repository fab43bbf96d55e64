package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/config"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
)

const serviceName = "leafflow-worker"

var configFile string

// NewRootCmd assembles the CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "worker",
		Short:         "LeafFlow notifications and image worker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file")

	root.AddCommand(newRunCmd(), newEnqueueCmd(), newConfigCmd(), newMigrateCmd())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// loadConfig reads configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logger.Init(serviceName, cfg.LogLevel)
	return cfg, nil
}
