package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

type fakeAuth struct {
	err   error
	calls atomic.Int32
}

func (f *fakeAuth) AuthTest(context.Context) error {
	f.calls.Add(1)
	return f.err
}

func get(t *testing.T, h http.Handler, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func newRouter(hm *HealthMonitor) chi.Router {
	r := chi.NewRouter()
	hm.RegisterRoutes(r, Paths{Liveness: "/health/live", Readiness: "/health/ready", Combined: "/health"})
	return r
}

func TestLiveness(t *testing.T) {
	hm := NewHealthMonitor(Config{Logger: logger.NewNopLogger()})

	code, body := get(t, newRouter(hm), "/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["uptime"])
	assert.Contains(t, body["checks"], "process")
}

func TestReadinessWithSlackChecks(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer api.Close()

	auth := &fakeAuth{}
	hm := NewHealthMonitor(Config{Auth: auth, SlackAPIURL: api.URL + "/api/api.test", HTTPClient: api.Client()})

	code, body := get(t, newRouter(hm), "/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])

	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, checks, "slack_api")
	assert.Contains(t, checks, "slack_auth")
	assert.Equal(t, int32(1), auth.calls.Load())
}

func TestReadinessReusesAuthResult(t *testing.T) {
	auth := &fakeAuth{}
	hm := NewHealthMonitor(Config{Auth: auth, AuthCacheTTL: time.Hour})
	r := newRouter(hm)

	for i := 0; i < 5; i++ {
		code, _ := get(t, r, "/health/ready")
		require.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, int32(1), auth.calls.Load())
}

func TestReadinessFailsAfterThreshold(t *testing.T) {
	auth := &fakeAuth{err: errors.New("invalid_auth")}
	hm := NewHealthMonitor(Config{Auth: auth, FailureThreshold: 2})
	r := newRouter(hm)

	code, _ := get(t, r, "/health/ready")
	assert.Equal(t, http.StatusOK, code, "first failure is below the threshold")

	code, body := get(t, r, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", body["status"])
	assert.Contains(t, body["error"], "slack_auth")
}

func TestMarkShuttingDown(t *testing.T) {
	hm := NewHealthMonitor(Config{})
	r := newRouter(hm)

	code, _ := get(t, r, "/health/ready")
	require.Equal(t, http.StatusOK, code)

	hm.MarkShuttingDown()
	hm.MarkShuttingDown()

	code, body := get(t, r, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, ErrShuttingDown.Error(), body["error"])

	code, _ = get(t, r, "/health/live")
	assert.Equal(t, http.StatusOK, code)
}

func TestCombinedHealth(t *testing.T) {
	hm := NewHealthMonitor(Config{Version: "1.2.3", FailureThreshold: 1, Auth: &fakeAuth{err: errors.New("not_authed")}})

	code, body := get(t, newRouter(hm), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])

	liveness, ok := body["liveness"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "healthy", liveness["status"])

	readiness, ok := body["readiness"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "not_ready", readiness["status"])
}

func TestRegisterRoutesSkipsEmptyPaths(t *testing.T) {
	hm := NewHealthMonitor(Config{})
	r := chi.NewRouter()
	hm.RegisterRoutes(r, Paths{Combined: "/healthz"})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	code, _ := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, code)
}
