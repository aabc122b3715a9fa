package health

import (
	"context"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

// DefaultGRPCUpdateInterval is how often readiness is pushed to the gRPC health service.
const DefaultGRPCUpdateInterval = 5 * time.Second

// GRPCHealthUpdater mirrors readiness into a grpc.health.v1.Health server.
type GRPCHealthUpdater struct {
	checker        *HealthChecker
	healthServer   *health.Server
	services       []string
	updateInterval time.Duration
	stopChan       chan struct{}
	stopped        atomic.Bool
}

// RegisterWithGRPC registers grpc.health.v1.Health on server and keeps the
// overall ("") status plus each named service in step with readiness.
func (h *HealthChecker) RegisterWithGRPC(server *grpc.Server, services ...string) *GRPCHealthUpdater {
	return h.RegisterWithGRPCAndInterval(server, DefaultGRPCUpdateInterval, services...)
}

// RegisterWithGRPCAndInterval is RegisterWithGRPC with a custom update interval.
func (h *HealthChecker) RegisterWithGRPCAndInterval(server *grpc.Server, updateInterval time.Duration, services ...string) *GRPCHealthUpdater {
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)

	updater := &GRPCHealthUpdater{
		checker:        h,
		healthServer:   healthServer,
		services:       append([]string{""}, services...),
		updateInterval: updateInterval,
		stopChan:       make(chan struct{}),
	}

	// NOT_SERVING until the first readiness pass completes
	updater.setStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	go updater.run()

	h.logger.Info("gRPC health service registered",
		logger.DurationField("update_interval", updateInterval),
		logger.IntField("services", len(updater.services)),
	)

	return updater
}

func (u *GRPCHealthUpdater) run() {
	ticker := time.NewTicker(u.updateInterval)
	defer ticker.Stop()

	u.updateHealth()

	for {
		select {
		case <-ticker.C:
			u.updateHealth()
		case <-u.stopChan:
			u.healthServer.Shutdown()
			u.checker.logger.Info("gRPC health updater stopped")
			return
		}
	}
}

func (u *GRPCHealthUpdater) updateHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), u.updateInterval)
	defer cancel()

	status, err := u.checker.CheckReadiness(ctx)
	if err != nil || !status.Healthy {
		u.setStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		u.checker.logger.Debug("gRPC health status: NOT_SERVING",
			logger.StringField("reason", "readiness check failed"),
		)
		return
	}

	u.setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	u.checker.logger.Debug("gRPC health status: SERVING")
}

func (u *GRPCHealthUpdater) setStatus(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	for _, service := range u.services {
		u.healthServer.SetServingStatus(service, status)
	}
}

// Stop marks every service NOT_SERVING and stops updates. Safe to call twice.
func (u *GRPCHealthUpdater) Stop() {
	if u.stopped.CompareAndSwap(false, true) {
		close(u.stopChan)
	}
}
