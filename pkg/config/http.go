package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// HTTPServerConfig holds HTTP server settings
type HTTPServerConfig struct {
	// Port is the TCP port for the HTTP server to listen on
	Port int `env:"HTTP_PORT" yaml:"http_port" default:"3000"`

	// ReadTimeout bounds reading the entire request, including body
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" yaml:"read_timeout" default:"10s"`

	// WriteTimeout bounds writing the response. Slack gives up on a delivery after 3s,
	// but the reply call itself may take longer than that.
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" yaml:"write_timeout" default:"15s"`

	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" yaml:"idle_timeout" default:"60s"`

	// ShutdownTimeout is how long in-flight deliveries get to finish on SIGTERM
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" default:"10s"`

	MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" yaml:"max_header_bytes" default:"1048576"`
}

// Validate checks HTTPServerConfig for valid port range and timeouts
func (h HTTPServerConfig) Validate() error {
	var result error
	if h.Port < 1 || h.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("http port must be between 1-65535, got %d", h.Port))
	}
	if h.ReadTimeout <= 0 || h.WriteTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("http read/write timeouts must be greater than 0"))
	}
	return result
}

// Addr returns the listen address for the configured port
func (h HTTPServerConfig) Addr() string {
	return fmt.Sprintf(":%d", h.Port)
}
