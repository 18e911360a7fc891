package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
	"gitlab.com/timkado/api/daisi-token-service/pkg/rediskeys"
)

// StartupStateAdapter implements domain.StartupStateStore using Redis. Each
// pod keeps its last startup report and a readiness marker under TTL-bound
// keys so operators can inspect how a pod booted without shelling into it.
type StartupStateAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
}

// NewStartupStateAdapter creates a new instance of StartupStateAdapter.
func NewStartupStateAdapter(redisClient *redis.Client, logger domain.Logger) *StartupStateAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewStartupStateAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewStartupStateAdapter")
	}
	return &StartupStateAdapter{
		redisClient: redisClient,
		logger:      logger,
	}
}

// SaveReport stores the startup report for report.PodID with the given TTL.
func (a *StartupStateAdapter) SaveReport(ctx context.Context, report *domain.StartupReport, ttl time.Duration) error {
	if report == nil {
		return errors.New("startup report is nil")
	}
	key := rediskeys.StartupReportKey(report.PodID)

	payloadBytes, err := json.Marshal(report)
	if err != nil {
		a.logger.Error(ctx, "Failed to marshal startup report", "key", key, "run_id", report.RunID, "error", err.Error())
		return fmt.Errorf("failed to marshal startup report for key '%s': %w", key, err)
	}

	if err = a.redisClient.Set(ctx, key, string(payloadBytes), ttl).Err(); err != nil {
		a.logger.Error(ctx, "Failed to store startup report in Redis", "key", key, "run_id", report.RunID, "error", err.Error())
		return fmt.Errorf("redis SET for startup report key '%s' failed: %w", key, err)
	}

	a.logger.Debug(ctx, "Startup report stored", "key", key, "run_id", report.RunID, "ttl", ttl.String())
	return nil
}

// LoadReport retrieves the last stored report for the given pod.
// Returns (nil, nil) when no report exists.
func (a *StartupStateAdapter) LoadReport(ctx context.Context, podID string) (*domain.StartupReport, error) {
	key := rediskeys.StartupReportKey(podID)

	val, err := a.redisClient.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to load startup report from Redis", "key", key, "error", err.Error())
		return nil, fmt.Errorf("redis GET for startup report key '%s' failed: %w", key, err)
	}

	var report domain.StartupReport
	if err = json.Unmarshal([]byte(val), &report); err != nil {
		a.logger.Error(ctx, "Failed to unmarshal stored startup report", "key", key, "error", err.Error())
		return nil, fmt.Errorf("failed to unmarshal startup report for key '%s': %w", key, err)
	}

	return &report, nil
}

// MarkReady records that the pod finished its startup sequence. The marker
// value is the run ID so a ready key can always be traced back to the run
// that produced it.
func (a *StartupStateAdapter) MarkReady(ctx context.Context, podID string, runID string, ttl time.Duration) error {
	key := rediskeys.StartupReadyKey(podID)

	if err := a.redisClient.Set(ctx, key, runID, ttl).Err(); err != nil {
		a.logger.Error(ctx, "Failed to set readiness marker in Redis", "key", key, "run_id", runID, "error", err.Error())
		return fmt.Errorf("redis SET for readiness key '%s' failed: %w", key, err)
	}

	a.logger.Debug(ctx, "Readiness marker stored", "key", key, "run_id", runID, "ttl", ttl.String())
	return nil
}
