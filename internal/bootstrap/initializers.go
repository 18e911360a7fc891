package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gitlab.com/timkado/api/daisi-token-service/internal/adapters/config"
	appgrpc "gitlab.com/timkado/api/daisi-token-service/internal/adapters/grpc"
	appnats "gitlab.com/timkado/api/daisi-token-service/internal/adapters/nats"
	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
	"gitlab.com/timkado/api/daisi-token-service/pkg/contextkeys"
	"gitlab.com/timkado/api/daisi-token-service/pkg/crypto"
)

// Handles for the startup initializers this service registers, in the order
// the bootstrap registers them. Each initializer owns one subsystem.
const (
	HandleAuthKeys        domain.InitializerHandle = "auth_keys"
	HandleRedis           domain.InitializerHandle = "redis"
	HandleNatsStream      domain.InitializerHandle = "nats_stream"
	HandleDownstreamProbe domain.InitializerHandle = "downstream_probe"
	HandleStartupRecord   domain.InitializerHandle = "startup_record"
)

// authKeysInitializer verifies the configured AES key material with an
// encrypt/decrypt self-test so token issuance cannot start with a broken or
// truncated key.
type authKeysInitializer struct {
	cfgProvider config.Provider
	logger      domain.Logger
}

func (i *authKeysInitializer) Name() string { return string(HandleAuthKeys) }

func (i *authKeysInitializer) Initialize(ctx context.Context) error {
	aesKeyHex := i.cfgProvider.Get().Auth.TokenAESKey
	if aesKeyHex == "" {
		return fmt.Errorf("auth.token_aes_key is not configured")
	}

	probe := []byte("startup-key-selftest")
	sealed, err := crypto.EncryptAESGCM(aesKeyHex, probe)
	if err != nil {
		return fmt.Errorf("AES key self-test encryption failed: %w", err)
	}
	opened, err := crypto.DecryptAESGCM(aesKeyHex, sealed)
	if err != nil {
		return fmt.Errorf("AES key self-test decryption failed: %w", err)
	}
	if !bytes.Equal(probe, opened) {
		return fmt.Errorf("AES key self-test roundtrip mismatch")
	}

	i.logger.Info(ctx, "Token AES key material validated")
	return nil
}

// redisInitializer verifies Redis connectivity with a ping and a probe-key
// roundtrip before any cache-dependent code path runs.
type redisInitializer struct {
	redisClient *redis.Client
	logger      domain.Logger
}

func (i *redisInitializer) Name() string { return string(HandleRedis) }

func (i *redisInitializer) Initialize(ctx context.Context) error {
	if err := i.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	probeKey := "startup:probe"
	if err := i.redisClient.Set(ctx, probeKey, time.Now().Format(time.RFC3339Nano), time.Minute).Err(); err != nil {
		return fmt.Errorf("redis probe SET failed: %w", err)
	}
	if err := i.redisClient.Get(ctx, probeKey).Err(); err != nil {
		return fmt.Errorf("redis probe GET failed: %w", err)
	}
	if err := i.redisClient.Del(ctx, probeKey).Err(); err != nil {
		return fmt.Errorf("redis probe DEL failed: %w", err)
	}

	i.logger.Info(ctx, "Redis connectivity verified")
	return nil
}

// natsStreamInitializer ensures the JetStream audit stream exists so the first
// token issuance never races stream provisioning.
type natsStreamInitializer struct {
	publisher *appnats.PublisherAdapter
	logger    domain.Logger
}

func (i *natsStreamInitializer) Name() string { return string(HandleNatsStream) }

func (i *natsStreamInitializer) Initialize(ctx context.Context) error {
	if err := i.publisher.EnsureStream(ctx); err != nil {
		return fmt.Errorf("audit stream provisioning failed: %w", err)
	}
	return nil
}

// downstreamProbeInitializer gates startup on the health of the configured
// downstream gRPC dependency.
type downstreamProbeInitializer struct {
	prober *appgrpc.HealthProber
	logger domain.Logger
}

func (i *downstreamProbeInitializer) Name() string { return string(HandleDownstreamProbe) }

func (i *downstreamProbeInitializer) Initialize(ctx context.Context) error {
	return i.prober.Probe(ctx)
}

// startupRecordInitializer writes the skeleton startup report for this run.
// The bootstrap overwrites it with the full report once the sequence ends, so
// a crash mid-sequence still leaves a trace of the attempted boot.
type startupRecordInitializer struct {
	stateStore  domain.StartupStateStore
	cfgProvider config.Provider
	logger      domain.Logger
}

func (i *startupRecordInitializer) Name() string { return string(HandleStartupRecord) }

func (i *startupRecordInitializer) Initialize(ctx context.Context) error {
	runID, _ := ctx.Value(contextkeys.StartupRunIDKey).(string)
	cfg := i.cfgProvider.Get()

	skeleton := &domain.StartupReport{
		RunID:     runID,
		PodID:     cfg.Server.PodID,
		StartedAt: time.Now(),
	}

	ttl := time.Duration(cfg.Startup.RecordTTLSeconds) * time.Second
	if cfg.Startup.RecordTTLSeconds <= 0 {
		ttl = 24 * time.Hour
	}

	if err := i.stateStore.SaveReport(ctx, skeleton, ttl); err != nil {
		return fmt.Errorf("failed to record startup attempt: %w", err)
	}

	i.logger.Info(ctx, "Startup attempt recorded", "pod_id", cfg.Server.PodID)
	return nil
}
