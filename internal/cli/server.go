package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/lewisedginton/slack_echo_bot/internal/server"
	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

// ServeCommand returns the command that receives Slack events over HTTP
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Serve the Slack Events API webhook",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, cmd)
		},
	}
}

// SocketCommand returns the command that receives Slack events over Socket Mode.
// The HTTP listener still serves health checks and the webhook.
func SocketCommand() *cli.Command {
	return &cli.Command{
		Name:  "socket",
		Usage: "Receive Slack events over Socket Mode (requires SLACK_APP_TOKEN)",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, cmd, server.WithSocketMode())
		},
	}
}

func runServer(ctx context.Context, cmd *cli.Command, opts ...server.Option) error {
	log := getLogger(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Error("Failed to load configuration", logger.ErrorField(err))
		return err
	}

	log = serviceLogger(cfg)
	log.Info("Starting Slack echo bot",
		logger.StringField("version", cfg.Version),
		logger.StringField("environment", cfg.Environment))

	s, err := server.New(cfg, log, opts...)
	if err != nil {
		log.Error("Failed to create server", logger.ErrorField(err))
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := s.Run(ctx); err != nil {
		log.Error("Server exited with error", logger.ErrorField(err))
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("Server exited gracefully")
	return nil
}
