// Package server runs the gRPC health endpoint used by orchestrators. The
// serving status follows the readiness of the database and the cache.
package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
)

// Service is the name reported alongside the overall ("") status.
const Service = "strata.Gate"

// Probe reports whether a dependency is usable.
type Probe func(ctx context.Context) error

// HealthServer publishes serving status over grpc_health_v1.
type HealthServer struct {
	grpcServer *grpc.Server
	health     *health.Server
	probes     []Probe
	interval   time.Duration
	log        *slog.Logger
}

// NewHealthServer creates a server that re-evaluates probes every interval.
func NewHealthServer(interval time.Duration, log *slog.Logger, probes ...Probe) *HealthServer {
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &HealthServer{
		grpcServer: gs,
		health:     hs,
		probes:     probes,
		interval:   interval,
		log:        log,
	}
}

// Check evaluates every probe once and publishes the result.
func (s *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	const op = "grpc.HealthServer.Check"

	status := healthpb.HealthCheckResponse_SERVING
	for _, probe := range s.probes {
		if err := probe(ctx); err != nil {
			s.log.Warn("probe failed", slog.String("op", op), sl.Err(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
			break
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
	return status
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	s.Check(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gRPC health listening on", slog.String("address", lis.Addr().String()))
		errCh <- s.grpcServer.Serve(lis)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpcServer.GracefulStop()
			return nil
		case err := <-errCh:
			return err
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, s.interval/2)
			s.Check(probeCtx)
			cancel()
		}
	}
}
