package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-token-service/internal/adapters/config"
	appgrpc "gitlab.com/timkado/api/daisi-token-service/internal/adapters/grpc"
	apphttp "gitlab.com/timkado/api/daisi-token-service/internal/adapters/http"
	"gitlab.com/timkado/api/daisi-token-service/internal/adapters/logger"
	"gitlab.com/timkado/api/daisi-token-service/internal/adapters/middleware"
	appnats "gitlab.com/timkado/api/daisi-token-service/internal/adapters/nats"
	appredis "gitlab.com/timkado/api/daisi-token-service/internal/adapters/redis"
	"gitlab.com/timkado/api/daisi-token-service/internal/application"
	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
)

// APIKeyMiddleware is a distinct type so Wire can tell the /generate-token
// guard apart from other func(http.Handler) http.Handler values.
type APIKeyMiddleware func(http.Handler) http.Handler

// InitialZapLoggerProvider provides a basic *zap.Logger instance, primarily for config initialization.
// It returns the logger, a cleanup function (for syncing), and an error if creation fails.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger, err = zap.NewDevelopment()
		if err != nil {
			// Last resort; NewExample does not return an error.
			zapLogger = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger (production and development failed, falling back to example): %v\n", err)
		}
	}

	cleanup := func() {
		// Syncing flushes any buffered log entries before exit.
		if syncErr := zapLogger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return zapLogger, cleanup, nil
}

// App aggregates everything the entry point needs. Wire builds it through NewApp.
type App struct {
	configProvider       config.Provider
	logger               domain.Logger
	httpServeMux         *http.ServeMux
	httpServer           *http.Server
	redisClient          *redis.Client
	natsPublisher        *appnats.PublisherAdapter
	startupRegistry      *application.StartupRegistry
	startupRunner        *application.StartupRunner
	startupResolver      domain.InitializerResolver
	startupState         domain.StartupStateStore
	generateTokenHandler http.HandlerFunc
	apiKeyMiddleware     APIKeyMiddleware

	// ready flips to true once the startup sequence has completed; /ready is
	// gated on it.
	ready atomic.Bool

	reportMu   sync.RWMutex
	lastReport *domain.StartupReport
}

// NewApp is the constructor for App, also for Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	redisClient *redis.Client,
	natsPublisher *appnats.PublisherAdapter,
	registry *application.StartupRegistry,
	runner *application.StartupRunner,
	resolver domain.InitializerResolver,
	stateStore domain.StartupStateStore,
	genTokenHandler http.HandlerFunc,
	apiKeyMid APIKeyMiddleware,
) (*App, func(), error) {
	app := &App{
		configProvider:       cfgProvider,
		logger:               appLogger,
		httpServeMux:         mux,
		httpServer:           server,
		redisClient:          redisClient,
		natsPublisher:        natsPublisher,
		startupRegistry:      registry,
		startupRunner:        runner,
		startupResolver:      resolver,
		startupState:         stateStore,
		generateTokenHandler: genTokenHandler,
		apiKeyMiddleware:     apiKeyMid,
	}

	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
	}
	return app, cleanup, nil
}

// ConfigProvider provides the application configuration.
// It accepts appCtx to be passed to NewViperProvider for graceful goroutine shutdown.
func ConfigProvider(appCtx context.Context, zapLogger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, zapLogger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	appCfg := cfgProvider.Get()
	return logger.NewZapAdapter(cfgProvider, appCfg.App.ServiceName)
}

// HTTPServeMuxProvider provides the main HTTP multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides a new HTTP server configured for graceful shutdown.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux) *http.Server {
	appCfg := cfgProvider.Get()

	readTimeout := 10 * time.Second
	writeTimeout := 10 * time.Second
	idleTimeout := 60 * time.Second

	if appCfg.App.WriteTimeoutSeconds > 0 {
		writeTimeout = time.Duration(appCfg.App.WriteTimeoutSeconds) * time.Second
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// RedisClientProvider provides a Redis client and a cleanup function.
// Connectivity is deliberately not verified here; the redis startup
// initializer owns that check so a broken Redis fails the boot in one place.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	appCfg := cfgProvider.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     appCfg.Redis.Address,
		Password: appCfg.Redis.Password,
		DB:       appCfg.Redis.DB,
	})
	cleanup := func() {
		client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	return client, cleanup, nil
}

// NatsPublisherProvider provides the NATS audit publisher and its cleanup.
func NatsPublisherProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*appnats.PublisherAdapter, func(), error) {
	return appnats.NewPublisherAdapter(ctx, cfgProvider, appLogger)
}

// TokenCacheStoreProvider provides the Redis-backed token cache.
func TokenCacheStoreProvider(redisClient *redis.Client, appLogger domain.Logger) domain.TokenCacheStore {
	return appredis.NewTokenCacheAdapter(redisClient, appLogger)
}

// StartupStateStoreProvider provides the Redis-backed startup state store.
func StartupStateStoreProvider(redisClient *redis.Client, appLogger domain.Logger) domain.StartupStateStore {
	return appredis.NewStartupStateAdapter(redisClient, appLogger)
}

// HealthProberProvider provides the downstream gRPC health prober.
func HealthProberProvider(appLogger domain.Logger, cfgProvider config.Provider) *appgrpc.HealthProber {
	return appgrpc.NewHealthProber(appLogger, cfgProvider)
}

// TokenServiceProvider provides the TokenService.
func TokenServiceProvider(appLogger domain.Logger, cfgProvider config.Provider, tokenCache domain.TokenCacheStore, audit domain.AuditPublisher) *application.TokenService {
	return application.NewTokenService(appLogger, cfgProvider, tokenCache, audit)
}

// GenerateTokenHandlerProvider provides the /generate-token handler.
func GenerateTokenHandlerProvider(tokenService *application.TokenService, appLogger domain.Logger) http.HandlerFunc {
	return apphttp.GenerateTokenHandler(tokenService, appLogger)
}

// APIKeyMiddlewareProvider provides the API key guard for /generate-token.
func APIKeyMiddlewareProvider(cfgProvider config.Provider, appLogger domain.Logger) APIKeyMiddleware {
	return middleware.APIKeyAuthMiddleware(cfgProvider, appLogger)
}

// StartupRegistryProvider builds the registry and registers this service's
// initializer handles in their execution order. Registration order is the
// execution order: key material first, then infrastructure connectivity, then
// the startup record.
func StartupRegistryProvider(appLogger domain.Logger) (*application.StartupRegistry, error) {
	registry := application.NewStartupRegistry()

	handles := []domain.InitializerHandle{
		HandleAuthKeys,
		HandleRedis,
		HandleNatsStream,
		HandleDownstreamProbe,
		HandleStartupRecord,
	}
	for _, handle := range handles {
		if err := registry.Register(handle); err != nil {
			return nil, fmt.Errorf("failed to register startup handle %q: %w", string(handle), err)
		}
	}

	appLogger.Info(context.Background(), "Startup registry populated", "initializer_count", registry.Len())
	return registry, nil
}

// StartupResolverProvider builds the concrete initializers from the Wire graph
// and exposes them behind a handle-keyed resolver.
func StartupResolverProvider(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	redisClient *redis.Client,
	natsPublisher *appnats.PublisherAdapter,
	prober *appgrpc.HealthProber,
	stateStore domain.StartupStateStore,
) domain.InitializerResolver {
	return application.NewMapResolver(map[domain.InitializerHandle]domain.StartupInitializer{
		HandleAuthKeys:        &authKeysInitializer{cfgProvider: cfgProvider, logger: appLogger},
		HandleRedis:           &redisInitializer{redisClient: redisClient, logger: appLogger},
		HandleNatsStream:      &natsStreamInitializer{publisher: natsPublisher, logger: appLogger},
		HandleDownstreamProbe: &downstreamProbeInitializer{prober: prober, logger: appLogger},
		HandleStartupRecord:   &startupRecordInitializer{stateStore: stateStore, cfgProvider: cfgProvider, logger: appLogger},
	})
}

// StartupRunnerProvider provides the startup runner.
func StartupRunnerProvider(appLogger domain.Logger) *application.StartupRunner {
	return application.NewStartupRunner(appLogger)
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,

	// Infrastructure adapters
	RedisClientProvider,
	NatsPublisherProvider,
	wire.Bind(new(domain.AuditPublisher), new(*appnats.PublisherAdapter)),
	TokenCacheStoreProvider,
	StartupStateStoreProvider,
	HealthProberProvider,

	// Application services
	TokenServiceProvider,
	GenerateTokenHandlerProvider,
	APIKeyMiddlewareProvider,

	// Startup sequence
	StartupRegistryProvider,
	StartupResolverProvider,
	StartupRunnerProvider,

	NewApp,
)
