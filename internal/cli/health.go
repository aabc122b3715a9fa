package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/lewisedginton/slack_echo_bot/pkg/health/checkers"
	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

// HealthCommand returns a command that probes a running instance, for container health checks
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Probe the readiness endpoint of a running instance",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "Endpoint to probe (default: http://localhost:<http_port><readiness_path>)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 3 * time.Second,
				Usage: "Probe timeout",
			},
		},
		Action: healthAction,
	}
}

func healthAction(ctx context.Context, cmd *cli.Command) error {
	log := getLogger(cmd)

	url := cmd.String("url")
	if url == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			log.Error("Failed to load configuration", logger.ErrorField(err))
			return err
		}
		url = fmt.Sprintf("http://localhost:%d%s", cfg.HTTP.Port, cfg.Health.ReadinessPath)
	}

	probeCtx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	if err := checkers.NewHTTPChecker(url, "readiness").Check(probeCtx); err != nil {
		log.Error("Health check failed", logger.StringField("url", url), logger.ErrorField(err))
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("Health check passed", logger.StringField("url", url))
	_, _ = fmt.Fprintln(cmd.Root().Writer, "Health check passed")
	return nil
}
