package config

import "time"

// SecurityConfig holds settings for the HTTP middleware stack
type SecurityConfig struct {
	StripPrefix        string        `env:"HTTP_STRIP_PREFIX" yaml:"strip_prefix"`
	RequestTimeout     time.Duration `env:"HTTP_REQUEST_TIMEOUT" yaml:"request_timeout" default:"15s"`
	CORSEnabled        bool          `env:"CORS_ENABLED" yaml:"cors_enabled"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" yaml:"cors_allowed_origins" default:"https://*"`
}
