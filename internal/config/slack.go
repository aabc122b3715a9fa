package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// SlackConfig holds Slack-specific configuration
type SlackConfig struct {
	BotToken      string `env:"SLACK_TOKEN" yaml:"slack_token" required:"true"`
	SigningSecret string `env:"SLACK_SIGNING_SECRET" yaml:"slack_signing_secret"`
	AppToken      string `env:"SLACK_APP_TOKEN" yaml:"slack_app_token"`
	APIURL        string `env:"SLACK_API_URL" yaml:"slack_api_url" default:"https://slack.com/api/"`
	Debug         bool   `env:"SLACK_DEBUG" yaml:"slack_debug"`
	EventsPath    string `env:"SLACK_EVENTS_PATH" yaml:"slack_events_path" default:"/slack/events"`
	MaxBodyBytes  int64  `env:"SLACK_MAX_BODY_BYTES" yaml:"slack_max_body_bytes" default:"1048576"`
}

// SocketModeEnabled reports whether an app-level token is configured.
func (c SlackConfig) SocketModeEnabled() bool {
	return c.AppToken != ""
}

// VerifySignatures reports whether webhook requests must be signed.
func (c SlackConfig) VerifySignatures() bool {
	return c.SigningSecret != ""
}

// Validate checks the Slack settings that can be checked offline.
func (c SlackConfig) Validate() error {
	var result error

	if c.AppToken != "" && !strings.HasPrefix(c.AppToken, "xapp-") {
		result = multierror.Append(result, fmt.Errorf("slack_app_token must be an app-level token (xapp-...)"))
	}
	if !strings.HasPrefix(c.EventsPath, "/") {
		result = multierror.Append(result, fmt.Errorf("slack_events_path must start with '/', got %q", c.EventsPath))
	}
	if c.MaxBodyBytes <= 0 {
		result = multierror.Append(result, fmt.Errorf("slack_max_body_bytes must be greater than 0"))
	}
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("slack_api_url must be an absolute URL, got %q", c.APIURL))
	}

	return result
}
