// Package cli holds the echo bot's urfave/cli commands.
package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

// NewApp builds the slack-echo-bot root command.
func NewApp(version string) *cli.Command {
	return &cli.Command{
		Name:    "slack-echo-bot",
		Usage:   "Echo Slack messages and mentions back to their channel",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "config-file",
				Value:   "",
				Usage:   "Path to configuration file",
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log := logger.NewLogger(logger.Config{
				Level:   logger.ParseLevel(cmd.String("log-level")),
				Format:  "json",
				Service: "slack-echo-bot",
				Output:  cmd.Root().ErrWriter,
			})

			// Store logger in metadata for commands to use
			cmd.Root().Metadata = map[string]interface{}{
				"logger": log,
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			ServeCommand(),
			SocketCommand(),
			ConfigCommand(),
			HealthCommand(),
		},
	}
}
