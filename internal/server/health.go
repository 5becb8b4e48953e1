package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/config"
)

// HealthServiceName is the gRPC health service name reported alongside "".
const HealthServiceName = "tac.importer.v1.Importer"

// Probe reports whether one dependency is usable.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthService serves the standard gRPC health protocol and keeps its
// status current by running probes on an interval.
type HealthService struct {
	cfg    config.HealthConfig
	probes []Probe
	logger *zap.Logger

	grpcServer *grpc.Server
	health     *health.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewHealthService creates a HealthService.
//
// Precondition: logger must be non-nil.
// Postcondition: Status is NOT_SERVING until the first probe round passes.
func NewHealthService(cfg config.HealthConfig, logger *zap.Logger, probes ...Probe) *HealthService {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(HealthServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &HealthService{
		cfg:        cfg,
		probes:     probes,
		logger:     logger,
		grpcServer: grpcServer,
		health:     healthServer,
	}
}

// Start listens on the configured address and serves until ctx is
// cancelled or Stop is called.
func (h *HealthService) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", h.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.cfg.Addr(), err)
	}
	h.mu.Lock()
	h.listener = lis
	h.mu.Unlock()

	h.logger.Info("health service listening", zap.String("addr", lis.Addr().String()))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- h.grpcServer.Serve(lis)
	}()

	h.Refresh(ctx)
	interval := h.cfg.CheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Stop()
			<-serveErr
			return nil
		case err := <-serveErr:
			if err == nil || errors.Is(err, grpc.ErrServerStopped) {
				return nil
			}
			return fmt.Errorf("serving health: %w", err)
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

// Stop marks every service NOT_SERVING and stops the server gracefully.
func (h *HealthService) Stop() {
	h.health.Shutdown()
	h.grpcServer.GracefulStop()
}

// Refresh runs every probe and publishes the combined status.
//
// Postcondition: Returns true when every probe passed.
func (h *HealthService) Refresh(ctx context.Context) bool {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	for _, p := range h.probes {
		if err := p.Check(ctx); err != nil {
			h.logger.Warn("health probe failed",
				zap.String("probe", p.Name),
				zap.Error(err),
			)
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(HealthServiceName, status)
	return status == grpc_health_v1.HealthCheckResponse_SERVING
}

// Addr returns the listening address, or empty string if not yet listening.
func (h *HealthService) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// CheckRemote queries a health endpoint at addr once.
//
// Postcondition: Returns the reported status, or an error if the call failed.
func CheckRemote(ctx context.Context, addr, service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer conn.Close()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, fmt.Errorf("checking health of %s: %w", addr, err)
	}
	return resp.GetStatus(), nil
}
