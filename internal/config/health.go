package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// HealthConfig holds health check configuration
type HealthConfig struct {
	Enabled          bool          `env:"HEALTH_ENABLED" yaml:"health_enabled" default:"true"`
	LivenessPath     string        `env:"HEALTH_LIVENESS_PATH" yaml:"liveness_path" default:"/health/live"`
	ReadinessPath    string        `env:"HEALTH_READINESS_PATH" yaml:"readiness_path" default:"/health/ready"`
	CombinedPath     string        `env:"HEALTH_COMBINED_PATH" yaml:"combined_path" default:"/health"`
	Timeout          time.Duration `env:"HEALTH_TIMEOUT" yaml:"health_timeout" default:"5s"`
	FailureThreshold int           `env:"HEALTH_FAILURE_THRESHOLD" yaml:"failure_threshold" default:"3"`

	// CheckSlackAuth adds a readiness check calling auth.test with the bot token.
	CheckSlackAuth bool `env:"HEALTH_CHECK_SLACK_AUTH" yaml:"check_slack_auth" default:"true"`

	// GRPCPort serves grpc.health.v1.Health when non-zero.
	GRPCPort int `env:"HEALTH_GRPC_PORT" yaml:"health_grpc_port"`
}

// Validate checks HealthConfig when health checks are enabled
func (h HealthConfig) Validate() error {
	if !h.Enabled {
		return nil
	}

	var result error
	if h.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("health_timeout must be greater than 0"))
	}
	if h.FailureThreshold < 1 {
		result = multierror.Append(result, fmt.Errorf("failure_threshold must be at least 1, got %d", h.FailureThreshold))
	}
	if h.GRPCPort < 0 || h.GRPCPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("health_grpc_port must be between 0-65535, got %d", h.GRPCPort))
	}
	return result
}
