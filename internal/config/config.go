package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	pkgconfig "github.com/lewisedginton/slack_echo_bot/pkg/config"
	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	ServiceName string `env:"SERVICE_NAME" yaml:"service_name" default:"slack-echo-bot"`
	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	Logging  pkgconfig.CommonConfig     `yaml:"logging,inline"`
	HTTP     pkgconfig.HTTPServerConfig `yaml:"http,inline"`
	Metrics  pkgconfig.MetricsConfig    `yaml:"metrics,inline"`
	Slack    SlackConfig                `yaml:"slack,inline"`
	Health   HealthConfig               `yaml:"health,inline"`
	Security SecurityConfig             `yaml:"security,inline"`
}

// Load reads configuration from configFile (optional) and the environment.
func Load(configFile string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := pkgconfig.GetConfig(cfg, configFile, false); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration and returns every problem found
func (c *AppConfig) Validate() error {
	var result error

	for _, v := range []pkgconfig.Validator{c.Logging, c.HTTP, c.Metrics, c.Slack, c.Health} {
		if err := v.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if c.Security.RequestTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("request_timeout cannot be negative"))
	}
	if c.Metrics.ExposeMetrics && c.Metrics.Port == c.HTTP.Port {
		result = multierror.Append(result, fmt.Errorf("metrics_port and http_port must differ, both are %d", c.HTTP.Port))
	}
	if c.Health.GRPCPort != 0 && c.Health.GRPCPort == c.HTTP.Port {
		result = multierror.Append(result, fmt.Errorf("health_grpc_port and http_port must differ, both are %d", c.HTTP.Port))
	}

	return result
}

// GetLogLevel returns the parsed logger level
func (c *AppConfig) GetLogLevel() logger.Level {
	return logger.ParseLevel(c.Logging.LogLevel)
}

// LoggerConfig returns the logger configuration for this service.
func (c *AppConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:   c.GetLogLevel(),
		Format:  c.Logging.LogFormat,
		Service: c.ServiceName,
	}
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// LogConfig logs the current configuration (without secrets)
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Application configuration loaded",
		logger.StringField("service_name", c.ServiceName),
		logger.StringField("version", c.Version),
		logger.StringField("environment", c.Environment),
		logger.IntField("http_port", c.HTTP.Port),
		logger.StringField("events_path", c.Slack.EventsPath),
		logger.StringField("slack_api_url", c.Slack.APIURL),
		logger.BoolField("signature_verification", c.Slack.VerifySignatures()),
		logger.BoolField("socket_mode_available", c.Slack.SocketModeEnabled()),
		logger.StringField("log_level", c.Logging.LogLevel),
		logger.StringField("log_format", c.Logging.LogFormat),
		logger.BoolField("metrics_exposed", c.Metrics.ExposeMetrics),
		logger.BoolField("health_enabled", c.Health.Enabled),
		logger.IntField("health_grpc_port", c.Health.GRPCPort),
	)
}
