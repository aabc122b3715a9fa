// Package monitoring wires the echo bot's health checks and exposes them over HTTP.
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lewisedginton/slack_echo_bot/pkg/health"
	"github.com/lewisedginton/slack_echo_bot/pkg/health/checkers"
	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

// Health status constants
const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusReady     = "ready"
	statusNotReady  = "not_ready"
)

// ErrShuttingDown is reported by readiness once shutdown has begun.
var ErrShuttingDown = errors.New("service is shutting down")

// Config holds configuration for the health monitor
type Config struct {
	Logger logger.Logger

	// Auth, when set, adds a "slack_auth" readiness check (auth.test with the bot token).
	// Results are reused for AuthCacheTTL, which defaults to Timeout.
	Auth         checkers.Authenticator
	AuthCacheTTL time.Duration

	// SlackAPIURL, when set, adds a "slack_api" readiness check against this URL.
	SlackAPIURL string
	HTTPClient  *http.Client

	Timeout          time.Duration
	FailureThreshold int
	Version          string
}

// Paths are the routes the health handlers are mounted on.
type Paths struct {
	Liveness  string
	Readiness string
	Combined  string
}

// HealthMonitor manages the health checks for the echo bot
type HealthMonitor struct {
	checker      *health.HealthChecker
	logger       logger.Logger
	startTime    time.Time
	version      string
	shuttingDown atomic.Bool
}

// NewHealthMonitor creates a new health monitor with configured checks
func NewHealthMonitor(cfg Config) *HealthMonitor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	failureThreshold := cfg.FailureThreshold
	if failureThreshold == 0 {
		failureThreshold = 3
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	hm := &HealthMonitor{
		checker: health.New(
			health.WithLogger(log),
			health.WithTimeout(timeout),
			health.WithFailureThreshold(failureThreshold),
		),
		logger:    log,
		startTime: time.Now(),
		version:   version,
	}

	hm.checker.AddLivenessCheck(health.NewCheckFunc("process", func(context.Context) error {
		return nil
	}))

	if cfg.SlackAPIURL != "" {
		client := cfg.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: timeout}
		}
		hm.checker.AddReadinessCheck(checkers.NewHTTPCheckerWithClient(cfg.SlackAPIURL, "slack_api", client))
	}

	if cfg.Auth != nil {
		ttl := cfg.AuthCacheTTL
		if ttl == 0 {
			ttl = timeout
		}
		hm.checker.AddReadinessCheck(checkers.NewCachedAuthChecker("slack_auth", cfg.Auth, ttl))
	}

	return hm
}

// Checker exposes the underlying checker, e.g. for gRPC health registration.
func (hm *HealthMonitor) Checker() *health.HealthChecker {
	return hm.checker
}

// MarkShuttingDown makes readiness fail so load balancers stop sending deliveries.
func (hm *HealthMonitor) MarkShuttingDown() {
	if hm.shuttingDown.CompareAndSwap(false, true) {
		hm.logger.Info("Readiness set to not ready for shutdown")
	}
}

// healthReport is the JSON body of every health endpoint.
type healthReport struct {
	Status    string                        `json:"status"`
	Timestamp string                        `json:"timestamp,omitempty"`
	Uptime    string                        `json:"uptime,omitempty"`
	Version   string                        `json:"version,omitempty"`
	Error     string                        `json:"error,omitempty"`
	Checks    map[string]health.CheckStatus `json:"checks,omitempty"`
	Liveness  *healthReport                 `json:"liveness,omitempty"`
	Readiness *healthReport                 `json:"readiness,omitempty"`
}

// LivenessHandler returns an HTTP handler for liveness probes.
// GET /health/live - 200 while the process can serve requests
func (hm *HealthMonitor) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := hm.liveness(r.Context())
		report.Uptime = time.Since(hm.startTime).String()
		hm.write(w, report, report.Status == statusHealthy)
	}
}

// ReadinessHandler returns an HTTP handler for readiness probes.
// GET /health/ready - 200 while Slack is reachable and the bot token is accepted
func (hm *HealthMonitor) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := hm.readiness(r.Context())
		hm.write(w, report, report.Status == statusReady)
	}
}

// HealthHandler returns a combined health endpoint that includes both liveness and readiness
// GET /health
func (hm *HealthMonitor) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		live := hm.liveness(r.Context())
		ready := hm.readiness(r.Context())
		live.Timestamp, ready.Timestamp = "", ""

		report := &healthReport{
			Status:    statusHealthy,
			Timestamp: now(),
			Uptime:    time.Since(hm.startTime).String(),
			Version:   hm.version,
			Liveness:  live,
			Readiness: ready,
		}

		ok := live.Status == statusHealthy && ready.Status == statusReady
		if !ok {
			report.Status = statusUnhealthy
		}
		hm.write(w, report, ok)
	}
}

// RegisterRoutes mounts the health handlers on r. Empty paths are skipped.
func (hm *HealthMonitor) RegisterRoutes(r chi.Router, paths Paths) {
	if paths.Combined != "" {
		r.Get(paths.Combined, hm.HealthHandler())
	}
	if paths.Liveness != "" {
		r.Get(paths.Liveness, hm.LivenessHandler())
	}
	if paths.Readiness != "" {
		r.Get(paths.Readiness, hm.ReadinessHandler())
	}
}

func (hm *HealthMonitor) liveness(ctx context.Context) *healthReport {
	status, err := hm.checker.CheckLiveness(ctx)
	report := &healthReport{Status: statusHealthy, Timestamp: now(), Checks: checkStatuses(status)}
	if err != nil {
		report.Status = statusUnhealthy
		report.Error = err.Error()
		hm.logger.Error("Liveness check failed", logger.ErrorField(err))
	}
	return report
}

func (hm *HealthMonitor) readiness(ctx context.Context) *healthReport {
	status, err := hm.checker.CheckReadiness(ctx)
	report := &healthReport{Status: statusReady, Timestamp: now(), Checks: checkStatuses(status)}
	// Shutdown bypasses the failure threshold.
	if hm.shuttingDown.Load() {
		err = ErrShuttingDown
	}
	if err != nil {
		report.Status = statusNotReady
		report.Error = err.Error()
		hm.logger.Warn("Readiness check failed", logger.ErrorField(err))
	}
	return report
}

func (hm *HealthMonitor) write(w http.ResponseWriter, report *healthReport, ok bool) {
	w.Header().Set("Content-Type", "application/json")
	if ok {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(report); err != nil {
		hm.logger.Error("Failed to encode health report", logger.ErrorField(err))
	}
}

func checkStatuses(status *health.HealthStatus) map[string]health.CheckStatus {
	if len(status.Checks) == 0 {
		return nil
	}
	out := make(map[string]health.CheckStatus, len(status.Checks))
	for _, result := range status.Checks {
		cs := health.CheckStatus{Status: "ok", Latency: result.Latency.String()}
		if !result.Healthy {
			cs.Status = "error"
			cs.Error = result.Error
		}
		out[result.Name] = cs
	}
	return out
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
