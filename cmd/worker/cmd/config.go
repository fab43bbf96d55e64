package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/config"
)

const redacted = "<redacted>"

// redact hides credentials in a copy of cfg.
func redact(cfg config.Config) config.Config {
	secrets := []*string{
		&cfg.Telegram.BotToken,
		&cfg.Storage.S3.SecretKey,
		&cfg.Redis.Password,
		&cfg.LeafFlow.InternalToken,
		&cfg.Cloudinary.APISecret,
		&cfg.Database.URL,
	}
	for _, s := range secrets {
		if *s != "" {
			*s = redacted
		}
	}
	return cfg
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	var showSecrets bool
	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			out := *cfg
			if !showSecrets {
				out = redact(out)
			}

			data, err := yaml.Marshal(out)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	printCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print credentials unredacted")

	configCmd.AddCommand(printCmd)
	return configCmd
}
