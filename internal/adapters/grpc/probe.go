package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"gitlab.com/timkado/api/daisi-token-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
)

const defaultProbeTimeout = 5 * time.Second

// HealthProber checks a downstream gRPC dependency using the standard
// grpc.health.v1 protocol. The downstream_probe startup initializer runs it
// once before the HTTP listener starts so the service never comes up serving
// requests it cannot complete.
type HealthProber struct {
	logger      domain.Logger
	cfgProvider config.Provider
}

// NewHealthProber creates a new HealthProber.
func NewHealthProber(logger domain.Logger, cfgProvider config.Provider) *HealthProber {
	if logger == nil {
		panic("logger is nil in NewHealthProber")
	}
	if cfgProvider == nil {
		panic("config provider is nil in NewHealthProber")
	}
	return &HealthProber{logger: logger, cfgProvider: cfgProvider}
}

// Target returns the configured downstream target. Empty means the probe is disabled.
func (p *HealthProber) Target() string {
	return p.cfgProvider.Get().Downstream.DirectoryGRPCTarget
}

// Probe dials the configured target and performs a health check. It returns an
// error if the target is unreachable or reports anything other than SERVING.
func (p *HealthProber) Probe(ctx context.Context) error {
	downstreamCfg := p.cfgProvider.Get().Downstream
	target := downstreamCfg.DirectoryGRPCTarget
	if target == "" {
		p.logger.Info(ctx, "No downstream gRPC target configured, skipping health probe")
		return nil
	}

	timeout := defaultProbeTimeout
	if downstreamCfg.ProbeTimeoutSeconds > 0 {
		timeout = time.Duration(downstreamCfg.ProbeTimeoutSeconds) * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		p.logger.Error(ctx, "Failed to create gRPC client for downstream probe", "target", target, "error", err.Error())
		return fmt.Errorf("failed to create gRPC client for '%s': %w", target, err)
	}
	defer conn.Close()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(probeCtx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		p.logger.Error(ctx, "Downstream gRPC health check failed", "target", target, "error", err.Error())
		return fmt.Errorf("health check against '%s' failed: %w", target, err)
	}

	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		p.logger.Error(ctx, "Downstream gRPC dependency is not serving", "target", target, "status", resp.GetStatus().String())
		return fmt.Errorf("downstream '%s' reported status %s", target, resp.GetStatus().String())
	}

	p.logger.Info(ctx, "Downstream gRPC dependency is healthy", "target", target)
	return nil
}
