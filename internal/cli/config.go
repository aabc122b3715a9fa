package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

// ConfigCommand returns a command for configuration operations
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Configuration operations",
		Commands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Validate configuration",
				Action: configValidateAction,
			},
		},
	}
}

func configValidateAction(_ context.Context, cmd *cli.Command) error {
	log := getLogger(cmd)

	log.Info("Validating configuration")

	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Error("Configuration validation failed", logger.ErrorField(err))
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg.LogConfig(log)
	log.Info("Configuration validation passed")
	_, _ = fmt.Fprintln(cmd.Root().Writer, "Configuration is valid")
	return nil
}
