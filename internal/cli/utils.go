package cli

import (
	"fmt"

	"github.com/urfave/cli/v3"

	appconfig "github.com/lewisedginton/slack_echo_bot/internal/config"
	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

// getLogger retrieves the logger from the root command metadata
func getLogger(cmd *cli.Command) logger.Logger {
	if md := cmd.Root().Metadata; md != nil {
		if log, ok := md["logger"].(logger.Logger); ok {
			return log
		}
	}

	// Fallback to default logger if not found
	return logger.NewLogger(logger.Config{
		Level:   logger.InfoLevel,
		Format:  "json",
		Service: "slack-echo-bot",
	})
}

// loadConfig reads the file named by --config-file plus the environment.
// An explicit --log-level wins over LOG_LEVEL and the file.
func loadConfig(cmd *cli.Command) (*appconfig.AppConfig, error) {
	cfg, err := appconfig.Load(cmd.String("config-file"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.IsSet("log-level") {
		cfg.Logging.LogLevel = cmd.String("log-level")
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

// serviceLogger builds the logger the long-running commands use once config is known.
func serviceLogger(cfg *appconfig.AppConfig) logger.Logger {
	return logger.NewLogger(cfg.LoggerConfig())
}
