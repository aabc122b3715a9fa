package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/slack-go/slack"
)

// Poster delivers one message to a Slack channel.
type Poster interface {
	PostMessage(ctx context.Context, channel, text string) error
}

// APIError is a reply from Slack that carried ok=false.
type APIError struct {
	Code     string
	Messages []string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return "slack API error: ok=false"
	}
	if len(e.Messages) == 0 {
		return fmt.Sprintf("slack API error: %s", e.Code)
	}
	return fmt.Sprintf("slack API error: %s (%s)", e.Code, strings.Join(e.Messages, "; "))
}

// PosterConfig configures an APIPoster.
type PosterConfig struct {
	BotToken string
	AppToken string // only needed for Socket Mode
	APIURL   string // must end in a slash; empty means https://slack.com/api/
	Debug    bool

	HTTPClient *http.Client
}

// APIPoster posts messages through the Slack Web API.
type APIPoster struct {
	client *slack.Client
	apiURL string
}

// NewAPIPoster builds a Slack Web API client from cfg.
func NewAPIPoster(cfg PosterConfig) *APIPoster {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = slack.APIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}

	var doer httpDoer = &http.Client{}
	if cfg.HTTPClient != nil {
		doer = cfg.HTTPClient
	}

	opts := []slack.Option{
		slack.OptionDebug(cfg.Debug),
		slack.OptionAPIURL(apiURL),
		slack.OptionHTTPClient(okChecker{next: doer}),
	}
	if cfg.AppToken != "" {
		opts = append(opts, slack.OptionAppLevelToken(cfg.AppToken))
	}
	return &APIPoster{client: slack.New(cfg.BotToken, opts...), apiURL: apiURL}
}

// APIURL is the Web API base URL, always ending in a slash.
func (p *APIPoster) APIURL() string {
	return p.apiURL
}

// Client exposes the underlying Web API client.
func (p *APIPoster) Client() *slack.Client {
	return p.client
}

// PostMessage calls chat.postMessage. Replies with ok=false come back as *APIError;
// anything else is a transport or decoding failure.
func (p *APIPoster) PostMessage(ctx context.Context, channel, text string) error {
	_, _, err := p.client.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return &APIError{Code: slackErr.Err, Messages: slackErr.ResponseMetadata.Messages}
	}
	return fmt.Errorf("failed to post message: %w", err)
}

// AuthTest checks that the bot token is accepted by Slack.
func (p *APIPoster) AuthTest(ctx context.Context) error {
	resp, err := p.client.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth.test failed: %w", err)
	}
	if resp.UserID == "" {
		return errors.New("slack auth.test returned no bot user")
	}
	return nil
}

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// okChecker fails chat.postMessage replies that carry ok=false without an
// error code. slack-go reports those as success.
type okChecker struct {
	next httpDoer
}

func (c okChecker) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.next.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK || !strings.HasSuffix(req.URL.Path, "/chat.postMessage") {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat.postMessage reply: %w", err)
	}

	var reply slack.SlackResponse
	if json.Unmarshal(body, &reply) == nil && !reply.Ok && strings.TrimSpace(reply.Error) == "" {
		return nil, &APIError{Messages: reply.ResponseMetadata.Messages}
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
