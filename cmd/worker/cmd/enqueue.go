package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/database"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/processing"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

// validatePayload checks the payload against the job's schema so a broken
// contract is caught before it reaches the queue.
func validatePayload(job string, payload []byte) error {
	switch job {
	case processing.TaskTypeAdminNotification, processing.TaskTypeUserNotification:
		_, err := types.DecodeOrderStatusEvent(payload)
		return err
	case processing.TaskTypeCreateVariants:
		_, err := types.DecodeImageUploadedEvent(payload)
		return err
	default:
		return fmt.Errorf("unknown job %q", job)
	}
}

func readPayload(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func newEnqueueCmd() *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "enqueue <job> <payload.json|->",
		Short: "Validate a payload and add it to the job's queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := args[0]
			payload, err := readPayload(args[1], cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read payload: %w", err)
			}
			if err := validatePayload(job, payload); err != nil {
				return err
			}

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

			taskID, err := db.Enqueue(cmd.Context(), job, payload, delay)
			if err != nil {
				return err
			}

			logger.Info(cmd.Context(), "task enqueued", logger.Fields{
				"task_id":   taskID,
				"task_type": job,
				"queue":     types.QueueFor(job),
			})
			fmt.Fprintln(cmd.OutOrStdout(), taskID)
			return nil
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", 0, "make the task visible only after this delay")
	return cmd
}
