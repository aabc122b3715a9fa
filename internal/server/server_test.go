package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/slack_echo_bot/internal/config"
	pkgconfig "github.com/lewisedginton/slack_echo_bot/pkg/config"
	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

type fakeSlack struct {
	*httptest.Server

	mu    sync.Mutex
	posts []string
}

func newFakeSlack(t *testing.T) *fakeSlack {
	t.Helper()
	f := &fakeSlack{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/chat.postMessage":
			assert.NoError(t, r.ParseForm())
			f.mu.Lock()
			f.posts = append(f.posts, r.PostForm.Get("channel")+"|"+r.PostForm.Get("text"))
			f.mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1.2"}`))
		case "/api/auth.test":
			_, _ = w.Write([]byte(`{"ok":true,"user_id":"UBOT"}`))
		default:
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeSlack) Posts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posts...)
}

func testConfig(apiURL string) *config.AppConfig {
	return &config.AppConfig{
		ServiceName: "slack-echo-bot",
		Version:     "test",
		Logging:     pkgconfig.CommonConfig{LogLevel: "error", LogFormat: "json"},
		HTTP: pkgconfig.HTTPServerConfig{
			Port:            3000,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			IdleTimeout:     5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Metrics: pkgconfig.MetricsConfig{EnableHTTPMetrics: true, EnableDeliveryMetrics: true},
		Slack: config.SlackConfig{
			BotToken:     "xoxb-test",
			APIURL:       apiURL,
			EventsPath:   "/slack/events",
			MaxBodyBytes: 1024,
		},
		Health: config.HealthConfig{
			Enabled:          true,
			LivenessPath:     "/health/live",
			ReadinessPath:    "/health/ready",
			CombinedPath:     "/health",
			Timeout:          time.Second,
			FailureThreshold: 1,
			CheckSlackAuth:   true,
		},
		Security: config.SecurityConfig{RequestTimeout: 5 * time.Second},
	}
}

func newTestServer(t *testing.T, cfg *config.AppConfig) *Server {
	t.Helper()
	s, err := New(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestRouterChallenge(t *testing.T) {
	api := newFakeSlack(t)
	s := newTestServer(t, testConfig(api.URL+"/api/"))

	rec := do(t, s.Router(), http.MethodPost, "/slack/events", `{"type":"url_verification","challenge":"abc"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"challenge":"abc"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	assert.Empty(t, api.Posts())
}

func TestRouterEchoesMessage(t *testing.T) {
	api := newFakeSlack(t)
	s := newTestServer(t, testConfig(api.URL+"/api/"))

	rec := do(t, s.Router(), http.MethodPost, "/slack/events",
		`{"type":"event_callback","event":{"type":"message","user":"U123","text":"ping","channel":"C456"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, []string{"C456|Hello, <@U123>! You said: ping"}, api.Posts())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.DeliveriesCounter.WithLabelValues("replied")))
}

func TestRouterIgnoresBotMessage(t *testing.T) {
	api := newFakeSlack(t)
	s := newTestServer(t, testConfig(api.URL+"/api/"))

	rec := do(t, s.Router(), http.MethodPost, "/slack/events",
		`{"type":"event_callback","event":{"type":"message","bot_id":"B1","text":"x","channel":"C1"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, api.Posts())
}

func TestRouterRejectsUnsignedWhenSecretSet(t *testing.T) {
	api := newFakeSlack(t)
	cfg := testConfig(api.URL + "/api/")
	cfg.Slack.SigningSecret = "shh"
	s := newTestServer(t, cfg)

	rec := do(t, s.Router(), http.MethodPost, "/slack/events", `{"type":"url_verification","challenge":"abc"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterOnlyAcceptsPost(t *testing.T) {
	api := newFakeSlack(t)
	s := newTestServer(t, testConfig(api.URL+"/api/"))

	rec := do(t, s.Router(), http.MethodGet, "/slack/events", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouterHealthAndHeartbeat(t *testing.T) {
	api := newFakeSlack(t)
	s := newTestServer(t, testConfig(api.URL+"/api/"))

	assert.Equal(t, http.StatusOK, do(t, s.Router(), http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s.Router(), http.MethodGet, "/health/live", "").Code)

	rec := do(t, s.Router(), http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "slack_auth")
	assert.Contains(t, rec.Body.String(), "slack_api")
}

func TestRouterHealthDisabled(t *testing.T) {
	api := newFakeSlack(t)
	cfg := testConfig(api.URL + "/api/")
	cfg.Health.Enabled = false
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusNotFound, do(t, s.Router(), http.MethodGet, "/health", "").Code)
}

func TestNewSocketModeNeedsAppToken(t *testing.T) {
	_, err := New(testConfig("http://localhost/api/"), logger.NewNopLogger(), WithSocketMode())
	assert.Error(t, err)
}

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())
	return port
}

func TestRunServesUntilCancelled(t *testing.T) {
	api := newFakeSlack(t)
	cfg := testConfig(api.URL + "/api/")
	cfg.HTTP.Port = freePort(t)
	cfg.Health.GRPCPort = freePort(t)
	cfg.Metrics.ExposeMetrics = true
	cfg.Metrics.Port = freePort(t)
	s := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", cfg.HTTP.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/ping")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Post(base+"/slack/events", "application/json",
		strings.NewReader(`{"type":"event_callback","event":{"type":"app_mention","user":"U1","text":"<@UBOT> hi","channel":"C1"}}`))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"C1|Hello, <@U1>! You said: <@UBOT> hi"}, api.Posts())

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", cfg.Metrics.Port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return strings.Contains(string(body), "app_slack_deliveries_total")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunFailsWhenPortTaken(t *testing.T) {
	lis, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer lis.Close()

	api := newFakeSlack(t)
	cfg := testConfig(api.URL + "/api/")
	cfg.HTTP.Port = lis.Addr().(*net.TCPAddr).Port
	s := newTestServer(t, cfg)

	assert.Error(t, s.Run(context.Background()))
}
