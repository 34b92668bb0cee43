// cartservice/services/health_service.go

package services

import (
	"context"

	"github.com/sirupsen/logrus"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger reports whether the persistence backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) bool
}

// HealthCheckService implements the gRPC health check.
type HealthCheckService struct {
	store Pinger
	log   logrus.FieldLogger
	healthpb.UnimplementedHealthServer
}

// NewHealthCheckService constructor
func NewHealthCheckService(store Pinger, log logrus.FieldLogger) *HealthCheckService {
	return &HealthCheckService{store: store, log: log.WithField("component", "health")}
}

// Check RPC: SERVING when the backend answers Ping.
func (h *HealthCheckService) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if h.store.Ping(ctx) {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
	}
	h.log.Warn("backend ping failed, reporting NOT_SERVING")
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
}
