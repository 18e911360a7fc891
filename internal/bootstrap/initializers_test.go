package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-token-service/internal/adapters/config"
	appredis "gitlab.com/timkado/api/daisi-token-service/internal/adapters/redis"
	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
	"gitlab.com/timkado/api/daisi-token-service/pkg/contextkeys"
	"gitlab.com/timkado/api/daisi-token-service/pkg/rediskeys"
)

const testAESKeyHex = "6368616e676520746869732070617373776f726420746f206120736563726574"

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Fatal(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) With(fields ...any) domain.Logger                     { return nopLogger{} }

func staticConfig(cfg *config.Config) config.Provider {
	return &config.StaticProvider{Config: cfg}
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestAuthKeysInitializer_ValidKey(t *testing.T) {
	init := &authKeysInitializer{
		cfgProvider: staticConfig(&config.Config{Auth: config.AuthConfig{TokenAESKey: testAESKeyHex}}),
		logger:      nopLogger{},
	}

	assert.Equal(t, "auth_keys", init.Name())
	assert.NoError(t, init.Initialize(context.Background()))
}

func TestAuthKeysInitializer_MissingKey(t *testing.T) {
	init := &authKeysInitializer{
		cfgProvider: staticConfig(&config.Config{}),
		logger:      nopLogger{},
	}

	err := init.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.token_aes_key is not configured")
}

func TestAuthKeysInitializer_TruncatedKey(t *testing.T) {
	init := &authKeysInitializer{
		cfgProvider: staticConfig(&config.Config{Auth: config.AuthConfig{TokenAESKey: "deadbeef"}}),
		logger:      nopLogger{},
	}

	err := init.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "self-test encryption failed")
}

func TestRedisInitializer_Succeeds(t *testing.T) {
	mr, client := newMiniredisClient(t)
	init := &redisInitializer{redisClient: client, logger: nopLogger{}}

	assert.Equal(t, "redis", init.Name())
	require.NoError(t, init.Initialize(context.Background()))

	// The probe key is cleaned up after the roundtrip.
	assert.False(t, mr.Exists("startup:probe"))
}

func TestRedisInitializer_FailsWhenRedisDown(t *testing.T) {
	mr, client := newMiniredisClient(t)
	mr.Close()

	init := &redisInitializer{redisClient: client, logger: nopLogger{}}
	assert.Error(t, init.Initialize(context.Background()))
}

func TestStartupRecordInitializer_WritesSkeletonReport(t *testing.T) {
	_, client := newMiniredisClient(t)
	stateStore := appredis.NewStartupStateAdapter(client, nopLogger{})

	cfg := &config.Config{
		Server:  config.ServerConfig{PodID: "pod-7"},
		Startup: config.StartupConfig{RecordTTLSeconds: 3600},
	}
	init := &startupRecordInitializer{
		stateStore:  stateStore,
		cfgProvider: staticConfig(cfg),
		logger:      nopLogger{},
	}

	ctx := context.WithValue(context.Background(), contextkeys.StartupRunIDKey, "run-789")
	require.NoError(t, init.Initialize(ctx))

	report, err := stateStore.LoadReport(context.Background(), "pod-7")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "run-789", report.RunID)
	assert.Equal(t, "pod-7", report.PodID)
	assert.False(t, report.Succeeded)
	assert.Empty(t, report.Steps)
}

func TestStartupRecordInitializer_DefaultTTL(t *testing.T) {
	mr, client := newMiniredisClient(t)
	stateStore := appredis.NewStartupStateAdapter(client, nopLogger{})

	cfg := &config.Config{Server: config.ServerConfig{PodID: "pod-8"}}
	init := &startupRecordInitializer{
		stateStore:  stateStore,
		cfgProvider: staticConfig(cfg),
		logger:      nopLogger{},
	}

	require.NoError(t, init.Initialize(context.Background()))

	ttl := mr.TTL(rediskeys.StartupReportKey("pod-8"))
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestStartupRegistryProvider_RegistersHandlesInOrder(t *testing.T) {
	registry, err := StartupRegistryProvider(nopLogger{})
	require.NoError(t, err)

	assert.Equal(t, []domain.InitializerHandle{
		HandleAuthKeys,
		HandleRedis,
		HandleNatsStream,
		HandleDownstreamProbe,
		HandleStartupRecord,
	}, registry.Handles())
}

func TestStartupResolverProvider_ResolvesEveryRegisteredHandle(t *testing.T) {
	_, client := newMiniredisClient(t)
	cfgProvider := staticConfig(&config.Config{})

	resolver := StartupResolverProvider(
		cfgProvider,
		nopLogger{},
		client,
		nil, // NATS publisher unused by Resolve itself
		nil, // gRPC prober unused by Resolve itself
		appredis.NewStartupStateAdapter(client, nopLogger{}),
	)

	registry, err := StartupRegistryProvider(nopLogger{})
	require.NoError(t, err)

	for _, handle := range registry.Handles() {
		init, err := resolver.Resolve(context.Background(), handle)
		require.NoError(t, err, "handle %q must resolve", string(handle))
		assert.Equal(t, string(handle), init.Name())
	}
}
