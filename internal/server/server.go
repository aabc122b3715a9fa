// Package server assembles the echo bot's HTTP, metrics and gRPC health listeners.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc"

	"github.com/lewisedginton/slack_echo_bot/internal/config"
	slackconnector "github.com/lewisedginton/slack_echo_bot/internal/connectors/slack"
	"github.com/lewisedginton/slack_echo_bot/internal/middleware"
	"github.com/lewisedginton/slack_echo_bot/internal/monitoring"
	"github.com/lewisedginton/slack_echo_bot/pkg/health"
	"github.com/lewisedginton/slack_echo_bot/pkg/httpmiddleware"
	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
	"github.com/lewisedginton/slack_echo_bot/pkg/metrics"
	"github.com/lewisedginton/slack_echo_bot/pkg/utils"
)

// GRPCHealthService is the service name reported by the gRPC health server.
const GRPCHealthService = "slack.EchoBot"

// Server wires the Slack event handler to its transports.
type Server struct {
	cfg *config.AppConfig
	log logger.Logger

	metrics *metrics.Metrics
	poster  *slackconnector.APIPoster
	handler *slackconnector.Handler
	health  *monitoring.HealthMonitor
	router  chi.Router

	socketMode bool
	httpClient *http.Client
}

// Option customises a Server.
type Option func(*Server)

// WithSocketMode also receives events over Socket Mode. Requires SLACK_APP_TOKEN.
func WithSocketMode() Option {
	return func(s *Server) {
		s.socketMode = true
	}
}

// WithHTTPClient sets the client used for Slack Web API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) {
		s.httpClient = c
	}
}

// New creates the server and all of its components from cfg.
func New(cfg *config.AppConfig, log logger.Logger, opts ...Option) (*Server, error) {
	s := &Server{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(s)
	}

	if s.socketMode && !cfg.Slack.SocketModeEnabled() {
		return nil, fmt.Errorf("socket mode requires SLACK_APP_TOKEN")
	}

	s.metrics = metrics.NewMetrics(cfg.Metrics.EnableHTTPMetrics, cfg.Metrics.EnableDeliveryMetrics, log)

	s.poster = slackconnector.NewAPIPoster(slackconnector.PosterConfig{
		BotToken:   cfg.Slack.BotToken,
		AppToken:   cfg.Slack.AppToken,
		APIURL:     cfg.Slack.APIURL,
		Debug:      cfg.Slack.Debug,
		HTTPClient: s.httpClient,
	})
	s.handler = slackconnector.NewHandler(s.poster, log, slackconnector.WithRecorder(s.metrics))

	if cfg.Health.Enabled {
		monitorCfg := monitoring.Config{
			Logger:           log,
			SlackAPIURL:      s.poster.APIURL() + "api.test",
			HTTPClient:       s.httpClient,
			Timeout:          cfg.Health.Timeout,
			FailureThreshold: cfg.Health.FailureThreshold,
			Version:          cfg.Version,
		}
		if cfg.Health.CheckSlackAuth {
			monitorCfg.Auth = s.poster
		}
		s.health = monitoring.NewHealthMonitor(monitorCfg)
	}

	s.router = s.buildRouter()
	return s, nil
}

// Handler returns the event handler shared by every transport.
func (s *Server) Handler() *slackconnector.Handler {
	return s.handler
}

// Router returns the HTTP routes served on the main port.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	mwConfig := httpmiddleware.DefaultConfig()
	mwConfig.Logger = s.log
	mwConfig.EnableLogging = true
	mwConfig.Recoverer = middleware.Recovery(middleware.DefaultRecoveryConfig(s.log))
	mwConfig.Timeout = s.cfg.Security.RequestTimeout
	mwConfig.StripPrefix = s.cfg.Security.StripPrefix
	mwConfig.EnableStripPrefix = s.cfg.Security.StripPrefix != ""
	if s.cfg.Security.CORSEnabled {
		cors := httpmiddleware.DefaultCORSConfig()
		cors.AllowedOrigins = s.cfg.Security.CORSAllowedOrigins
		mwConfig.CORS = &cors
		mwConfig.EnableCORS = true
	}
	httpmiddleware.ApplyToRouter(r, mwConfig)
	r.Use(s.metrics.HTTPMiddleware())

	verifier := slackconnector.NewVerifier(s.cfg.Slack.SigningSecret)
	if !verifier.Enabled() {
		s.log.Warn("SLACK_SIGNING_SECRET is not set, Slack request signatures will not be verified")
	}
	r.Method(http.MethodPost, s.cfg.Slack.EventsPath,
		slackconnector.NewWebhook(s.handler, verifier, s.log, s.cfg.Slack.MaxBodyBytes))

	if s.health != nil {
		s.health.RegisterRoutes(r, monitoring.Paths{
			Liveness:  s.cfg.Health.LivenessPath,
			Readiness: s.cfg.Health.ReadinessPath,
			Combined:  s.cfg.Health.CombinedPath,
		})
	}

	return r
}

// Run starts every listener and blocks until ctx is cancelled, a shutdown
// signal arrives or a listener fails.
//
//nolint:revive // cognitive-complexity: one place owns every listener's lifecycle
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.cfg.LogConfig(s.log)

	httpServer := &http.Server{
		Addr:              s.cfg.HTTP.Addr(),
		Handler:           s.router,
		ReadTimeout:       s.cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: s.cfg.HTTP.ReadTimeout,
		WriteTimeout:      s.cfg.HTTP.WriteTimeout,
		IdleTimeout:       s.cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:    s.cfg.HTTP.MaxHeaderBytes,
	}
	httpErrs, err := utils.ServeHTTP(httpServer, s.log)
	if err != nil {
		return err
	}

	var metricsErrs chan error
	if s.cfg.Metrics.ExposeMetrics {
		metricsErrs = ignoreServerClosed(s.metrics.Listen(s.cfg.Metrics.Port))
	}

	var (
		grpcErrs      chan error
		grpcStop      func()
		healthUpdater *health.GRPCHealthUpdater
	)
	if s.health != nil && s.cfg.Health.GRPCPort != 0 {
		grpcServer := grpc.NewServer()
		healthUpdater = s.health.Checker().RegisterWithGRPC(grpcServer, GRPCHealthService)
		grpcErrs, _, grpcStop, err = utils.Listen(grpcServer, s.cfg.Health.GRPCPort, s.log)
		if err != nil {
			healthUpdater.Stop()
			_ = utils.ShutdownHTTP(context.Background(), httpServer, s.log)
			return err
		}
	}

	var socketErrs chan error
	socketCtx, cancelSocket := context.WithCancel(ctx)
	defer cancelSocket()
	if s.socketMode {
		socketErrs = make(chan error, 1)
		receiver := slackconnector.NewSocketReceiver(s.poster, s.handler, s.log, s.cfg.Slack.Debug)
		go func() {
			defer close(socketErrs)
			if err := receiver.Run(socketCtx); err != nil && !errors.Is(err, context.Canceled) {
				socketErrs <- fmt.Errorf("socket mode: %w", err)
			}
		}()
	}

	errs := utils.MergeErrorChans(httpErrs, metricsErrs, grpcErrs, socketErrs)

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info("Shutdown signal received")
	case err, ok := <-errs:
		if ok && err != nil {
			s.log.Error("Listener failed, shutting down", logger.ErrorField(err))
			runErr = err
		}
	}

	// Keep draining so no listener goroutine blocks on the merged channel.
	go func() {
		for range errs {
		}
	}()

	return errors.Join(runErr, s.shutdown(httpServer, healthUpdater, grpcStop, cancelSocket))
}

func (s *Server) shutdown(httpServer *http.Server, healthUpdater *health.GRPCHealthUpdater, grpcStop, cancelSocket func()) error {
	if s.health != nil {
		s.health.MarkShuttingDown()
	}
	if healthUpdater != nil {
		healthUpdater.Stop()
	}
	cancelSocket()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	var result error
	if err := utils.ShutdownHTTP(ctx, httpServer, s.log); err != nil {
		result = errors.Join(result, err)
	}
	if err := s.metrics.Shutdown(ctx); err != nil {
		result = errors.Join(result, fmt.Errorf("metrics shutdown: %w", err))
	}
	if grpcStop != nil {
		grpcStop()
	}

	s.log.Info("Server stopped")
	return result
}

// ignoreServerClosed forwards errors from in, dropping http.ErrServerClosed.
func ignoreServerClosed(in chan error) chan error {
	out := make(chan error, 1)
	go func() {
		defer close(out)
		if err := <-in; err != nil && !errors.Is(err, http.ErrServerClosed) {
			out <- err
		}
	}()
	return out
}
