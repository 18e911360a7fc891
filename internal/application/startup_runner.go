package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gitlab.com/timkado/api/daisi-token-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
	"gitlab.com/timkado/api/daisi-token-service/pkg/contextkeys"
)

// StartupRunner executes the registered startup initializers strictly
// sequentially: initializer i+1 never begins until initializer i has
// completed. This favors predictability over throughput, which is the right
// trade-off for code that runs once per boot. The first failure aborts the
// sequence immediately and is propagated to the caller; remaining handles are
// neither resolved nor invoked. The runner applies no retries and no
// timeouts; callers own those decisions via the context they pass in.
type StartupRunner struct {
	logger domain.Logger
}

// NewStartupRunner creates a new StartupRunner.
func NewStartupRunner(logger domain.Logger) *StartupRunner {
	if logger == nil {
		panic("logger is nil in NewStartupRunner")
	}
	return &StartupRunner{logger: logger}
}

// Run resolves and executes every handle in the registry, in registration
// order. The registry is sealed before the first handle is resolved, so late
// Register calls fail rather than racing the sequence. Run always returns a
// report covering the steps that were attempted, alongside the first error if
// any. An empty registry completes immediately with an empty, successful
// report.
func (r *StartupRunner) Run(ctx context.Context, resolver domain.InitializerResolver, registry *StartupRegistry) (*domain.StartupReport, error) {
	if resolver == nil {
		panic("resolver is nil in StartupRunner.Run")
	}
	if registry == nil {
		panic("registry is nil in StartupRunner.Run")
	}

	registry.seal()
	handles := registry.Handles()

	report := &domain.StartupReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Steps:     make([]domain.StartupStepResult, 0, len(handles)),
	}
	ctx = context.WithValue(ctx, contextkeys.StartupRunIDKey, report.RunID)

	r.logger.Info(ctx, "Starting startup initializer sequence", "run_id", report.RunID, "initializer_count", len(handles))

	for i, handle := range handles {
		stepCtx := context.WithValue(ctx, contextkeys.InitializerNameKey, string(handle))

		initializer, err := resolver.Resolve(stepCtx, handle)
		if err != nil {
			report.Steps = append(report.Steps, domain.StartupStepResult{
				Handle:    string(handle),
				StartedAt: time.Now(),
				Error:     err.Error(),
			})
			report.CompletedAt = time.Now()
			metrics.ObserveStartupSequence(false, report.CompletedAt.Sub(report.StartedAt))
			r.logger.Error(stepCtx, "Failed to resolve startup initializer", "handle", string(handle), "position", i+1, "error", err.Error())
			return report, fmt.Errorf("startup initializer %q: resolution failed: %w", string(handle), err)
		}

		stepStart := time.Now()
		r.logger.Info(stepCtx, "Running startup initializer", "initializer", initializer.Name(), "position", i+1, "total", len(handles))

		err = initializer.Initialize(stepCtx)
		elapsed := time.Since(stepStart)

		step := domain.StartupStepResult{
			Handle:     string(handle),
			Name:       initializer.Name(),
			StartedAt:  stepStart,
			Duration:   elapsed,
			DurationMs: elapsed.Milliseconds(),
		}

		if err != nil {
			step.Error = err.Error()
			report.Steps = append(report.Steps, step)
			report.CompletedAt = time.Now()
			metrics.ObserveStartupInitializer(initializer.Name(), false, elapsed)
			metrics.ObserveStartupSequence(false, report.CompletedAt.Sub(report.StartedAt))
			r.logger.Error(stepCtx, "Startup initializer failed, aborting sequence",
				"initializer", initializer.Name(), "position", i+1, "duration_ms", elapsed.Milliseconds(), "error", err.Error())
			return report, fmt.Errorf("startup initializer %q failed: %w", initializer.Name(), err)
		}

		report.Steps = append(report.Steps, step)
		metrics.ObserveStartupInitializer(initializer.Name(), true, elapsed)
		r.logger.Info(stepCtx, "Startup initializer completed",
			"initializer", initializer.Name(), "position", i+1, "duration_ms", elapsed.Milliseconds())
	}

	report.CompletedAt = time.Now()
	report.Succeeded = true
	metrics.ObserveStartupSequence(true, report.CompletedAt.Sub(report.StartedAt))
	r.logger.Info(ctx, "Startup initializer sequence completed",
		"run_id", report.RunID, "initializer_count", len(handles), "duration_ms", report.CompletedAt.Sub(report.StartedAt).Milliseconds())
	return report, nil
}
