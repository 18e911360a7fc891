package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/timkado/api/daisi-token-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/daisi-token-service/internal/adapters/middleware"
	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
	"gitlab.com/timkado/api/daisi-token-service/pkg/crypto"
	"gitlab.com/timkado/api/daisi-token-service/pkg/safego"
)

// NOTE: The App struct and NewApp function are defined in providers.go for Wire.
// This file contains methods for the App struct, like Run().

// Run executes the startup initializer sequence and, only if it succeeds,
// starts the HTTP listener. A startup failure is returned to main, which is
// expected to abort the process rather than serve with incomplete
// initialization.
func (a *App) Run(ctx context.Context) error {
	version := "unknown"
	serviceName := "daisi-token-service"
	if a.configProvider != nil && a.configProvider.Get() != nil {
		configApp := a.configProvider.Get().App
		if configApp.Version != "" {
			version = configApp.Version
		}
		if configApp.ServiceName != "" {
			serviceName = configApp.ServiceName
		}
	}
	a.logger.Info(ctx, "Starting application", "service_name", serviceName, "version", version)

	a.registerRoutes(ctx)

	// Everything the service depends on is prepared here, strictly in
	// registration order, before the listener starts. The first failure
	// aborts the boot.
	if err := a.runStartupSequence(ctx); err != nil {
		return err
	}

	safego.Execute(ctx, a.logger, "SignalListenerAndGracefulShutdown", func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			a.logger.Info(context.Background(), "Shutdown signal received, initiating graceful shutdown...", "signal", sig.String())
		case <-ctx.Done():
			a.logger.Info(context.Background(), "Application context cancelled, initiating graceful shutdown...")
		}

		shutdownTimeout := 30 * time.Second // Default
		if a.configProvider != nil && a.configProvider.Get() != nil {
			configApp := a.configProvider.Get().App
			if configApp.ShutdownTimeoutSeconds > 0 {
				shutdownTimeout = time.Duration(configApp.ShutdownTimeoutSeconds) * time.Second
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.ready.Store(false)
		metrics.SetAppReady(false)

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(context.Background(), "HTTP server graceful shutdown failed", "error", err.Error())
		}
		a.logger.Info(context.Background(), "HTTP server shut down.")
	})

	a.logger.Info(ctx, fmt.Sprintf("HTTP server listening on port %d", a.configProvider.Get().Server.HTTPPort))
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error(ctx, "HTTP server ListenAndServe error", "error", err.Error())
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.logger.Info(ctx, "Application shut down gracefully or server closed.")
	return nil
}

// runStartupSequence executes the registered initializers via the runner and
// persists the resulting report. The report is stored even when the sequence
// fails so the aborted boot stays inspectable.
func (a *App) runStartupSequence(ctx context.Context) error {
	report, runErr := a.startupRunner.Run(ctx, a.startupResolver, a.startupRegistry)

	cfg := a.configProvider.Get()
	if report != nil {
		report.PodID = cfg.Server.PodID
		report.ConfigFingerprint = a.configFingerprint()

		a.reportMu.Lock()
		a.lastReport = report
		a.reportMu.Unlock()

		recordTTL := time.Duration(cfg.Startup.RecordTTLSeconds) * time.Second
		if cfg.Startup.RecordTTLSeconds <= 0 {
			recordTTL = 24 * time.Hour
		}
		if err := a.startupState.SaveReport(ctx, report, recordTTL); err != nil {
			// Persisting the report is best-effort; the in-memory copy still
			// backs the /startup endpoint.
			a.logger.Warn(ctx, "Failed to persist startup report", "run_id", report.RunID, "error", err.Error())
		}

		if runErr == nil {
			if err := a.startupState.MarkReady(ctx, cfg.Server.PodID, report.RunID, recordTTL); err != nil {
				a.logger.Warn(ctx, "Failed to persist readiness marker", "run_id", report.RunID, "error", err.Error())
			}
		}
	}

	if runErr != nil {
		return runErr
	}

	a.ready.Store(true)
	metrics.SetAppReady(true)
	return nil
}

// configFingerprint returns a stable hash of the effective configuration so a
// startup report can be matched to the config a pod booted with.
func (a *App) configFingerprint() string {
	cfgBytes, err := json.Marshal(a.configProvider.Get())
	if err != nil {
		return ""
	}
	return crypto.Sha256Hex(string(cfgBytes))
}

func (a *App) registerRoutes(ctx context.Context) {
	healthHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug(r.Context(), "Health check endpoint hit")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"OK"}`)
	})
	a.httpServeMux.Handle("GET /health", middleware.RequestIDMiddleware(healthHandler))

	readyHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		dependenciesStatus := make(map[string]string)
		ready := a.ready.Load()
		if !ready {
			dependenciesStatus["startup"] = "incomplete"
		} else {
			dependenciesStatus["startup"] = "complete"
		}

		// Check Redis connection
		if a.redisClient != nil {
			if err := a.redisClient.Ping(r.Context()).Err(); err == nil {
				dependenciesStatus["redis"] = "connected"
			} else {
				dependenciesStatus["redis"] = "disconnected"
				ready = false
				a.logger.Warn(r.Context(), "Readiness check failed: Redis ping failed", "error", err.Error())
			}
		} else {
			dependenciesStatus["redis"] = "not_configured"
			ready = false
		}

		// Check NATS connection
		if a.natsPublisher != nil && a.natsPublisher.NatsConn() != nil {
			if a.natsPublisher.NatsConn().Status() == nats.CONNECTED {
				dependenciesStatus["nats"] = "connected"
			} else {
				dependenciesStatus["nats"] = "disconnected"
				ready = false
				a.logger.Warn(r.Context(), "Readiness check failed: NATS disconnected", "status", a.natsPublisher.NatsConn().Status().String())
			}
		} else {
			dependenciesStatus["nats"] = "not_configured"
			ready = false
		}

		response := struct {
			Status       string            `json:"status"`
			Dependencies map[string]string `json:"dependencies"`
		}{
			Dependencies: dependenciesStatus,
		}

		if ready {
			response.Status = "READY"
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = "NOT_READY"
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		if err := json.NewEncoder(w).Encode(response); err != nil {
			a.logger.Error(r.Context(), "Failed to encode readiness response", "error", err)
		}
	})
	a.httpServeMux.Handle("GET /ready", middleware.RequestIDMiddleware(readyHandler))

	startupHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.reportMu.RLock()
		report := a.lastReport
		a.reportMu.RUnlock()

		if report == nil {
			domain.NewErrorResponse(domain.ErrStartupIncomplete, "Startup sequence has not produced a report yet", "").WriteJSON(w, http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(report); err != nil {
			a.logger.Error(r.Context(), "Failed to encode startup report response", "error", err)
		}
	})
	a.httpServeMux.Handle("GET /startup", middleware.RequestIDMiddleware(startupHandler))

	// Prometheus metrics handler
	a.httpServeMux.Handle("GET /metrics", middleware.RequestIDMiddleware(promhttp.Handler()))
	a.logger.Info(ctx, "Prometheus metrics endpoint registered at /metrics")

	if a.generateTokenHandler != nil && a.apiKeyMiddleware != nil {
		handlerToWrap := http.HandlerFunc(a.generateTokenHandler)
		finalGenerateTokenHandler := middleware.RequestIDMiddleware(a.apiKeyMiddleware(handlerToWrap))
		a.httpServeMux.Handle("POST /generate-token", finalGenerateTokenHandler)
		a.logger.Info(ctx, "/generate-token endpoint registered")
	} else {
		a.logger.Error(ctx, "GenerateTokenHandler or apiKeyMiddleware not initialized. /generate-token endpoint will not be available.")
	}
}
