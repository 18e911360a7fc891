package domain

import (
	"context"
	"time"
)

// StartupStepResult records the outcome of one initializer within a startup run.
type StartupStepResult struct {
	Handle     string        `json:"handle"`
	Name       string        `json:"name"`
	DurationMs int64         `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"-"`
}

// StartupReport is the full record of one startup run. It is logged, exposed
// via the /startup endpoint and persisted so operators can inspect how (and
// with which configuration) a pod last booted.
type StartupReport struct {
	RunID             string              `json:"run_id"`
	PodID             string              `json:"pod_id"`
	ConfigFingerprint string              `json:"config_fingerprint,omitempty"`
	StartedAt         time.Time           `json:"started_at"`
	CompletedAt       time.Time           `json:"completed_at"`
	Succeeded         bool                `json:"succeeded"`
	Steps             []StartupStepResult `json:"steps"`
}

// StartupStateStore persists startup reports and readiness markers so they
// survive beyond the boot that produced them.
type StartupStateStore interface {
	// SaveReport stores the report for the given pod with a TTL.
	SaveReport(ctx context.Context, report *StartupReport, ttl time.Duration) error

	// LoadReport retrieves the last stored report for the given pod.
	// Returns (nil, nil) when no report exists.
	LoadReport(ctx context.Context, podID string) (*StartupReport, error)

	// MarkReady records that the pod finished its startup sequence.
	MarkReady(ctx context.Context, podID string, runID string, ttl time.Duration) error
}
