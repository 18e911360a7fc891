package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
	"gitlab.com/timkado/api/daisi-token-service/pkg/contextkeys"
)

// newRecordingResolver builds a resolver whose initializers append their name
// to the shared invocations slice when run.
func newRecordingResolver(invocations *[]string, names ...string) *MapResolver {
	initializers := make(map[domain.InitializerHandle]domain.StartupInitializer, len(names))
	for _, name := range names {
		name := name
		initializers[domain.InitializerHandle(name)] = domain.InitializerFunc{
			ID: name,
			Fn: func(ctx context.Context) error {
				*invocations = append(*invocations, name)
				return nil
			},
		}
	}
	return NewMapResolver(initializers)
}

func newRegistry(t *testing.T, handles ...string) *StartupRegistry {
	t.Helper()
	registry := NewStartupRegistry()
	for _, h := range handles {
		require.NoError(t, registry.Register(domain.InitializerHandle(h)))
	}
	return registry
}

func TestStartupRunner_RunsAllInitializersInOrderExactlyOnce(t *testing.T) {
	var invocations []string
	names := []string{"first", "second", "third", "fourth", "fifth"}

	resolver := newRecordingResolver(&invocations, names...)
	registry := newRegistry(t, names...)
	runner := NewStartupRunner(nopLogger{})

	report, err := runner.Run(context.Background(), resolver, registry)

	require.NoError(t, err)
	assert.Equal(t, names, invocations)

	require.NotNil(t, report)
	assert.True(t, report.Succeeded)
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Steps, len(names))
	for i, step := range report.Steps {
		assert.Equal(t, names[i], step.Handle)
		assert.Equal(t, names[i], step.Name)
		assert.Empty(t, step.Error)
	}
}

func TestStartupRunner_AbortsOnFirstFailure(t *testing.T) {
	errBoom := errors.New("BoomError")
	var invocations []string

	initializers := map[domain.InitializerHandle]domain.StartupInitializer{
		"ok_one": domain.InitializerFunc{ID: "ok_one", Fn: func(ctx context.Context) error {
			invocations = append(invocations, "ok_one")
			return nil
		}},
		"bad": domain.InitializerFunc{ID: "bad", Fn: func(ctx context.Context) error {
			invocations = append(invocations, "bad")
			return errBoom
		}},
		"never": domain.InitializerFunc{ID: "never", Fn: func(ctx context.Context) error {
			invocations = append(invocations, "never")
			return nil
		}},
	}

	resolver := NewMapResolver(initializers)
	registry := newRegistry(t, "ok_one", "bad", "never")
	runner := NewStartupRunner(nopLogger{})

	report, err := runner.Run(context.Background(), resolver, registry)

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), `startup initializer "bad" failed`)

	// The failing initializer ran, everything after it did not.
	assert.Equal(t, []string{"ok_one", "bad"}, invocations)

	require.NotNil(t, report)
	assert.False(t, report.Succeeded)
	require.Len(t, report.Steps, 2)
	assert.Empty(t, report.Steps[0].Error)
	assert.Equal(t, errBoom.Error(), report.Steps[1].Error)
}

func TestStartupRunner_EmptyRegistrySucceedsImmediately(t *testing.T) {
	runner := NewStartupRunner(nopLogger{})
	resolver := NewMapResolver(nil)
	registry := NewStartupRegistry()

	report, err := runner.Run(context.Background(), resolver, registry)

	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.Succeeded)
	assert.Empty(t, report.Steps)
}

// Later initializers may rely on side effects of earlier ones because the
// runner awaits each step before starting the next.
func TestStartupRunner_LaterStepObservesEarlierSideEffect(t *testing.T) {
	var seeded bool

	initializers := map[domain.InitializerHandle]domain.StartupInitializer{
		"seed": domain.InitializerFunc{ID: "seed", Fn: func(ctx context.Context) error {
			seeded = true
			return nil
		}},
		"check": domain.InitializerFunc{ID: "check", Fn: func(ctx context.Context) error {
			if !seeded {
				return errors.New("seed did not run before check")
			}
			return nil
		}},
	}

	resolver := NewMapResolver(initializers)
	registry := newRegistry(t, "seed", "check")
	runner := NewStartupRunner(nopLogger{})

	_, err := runner.Run(context.Background(), resolver, registry)
	require.NoError(t, err)
}

func TestStartupRunner_SealsRegistryWhenRunStarts(t *testing.T) {
	var invocations []string
	resolver := newRecordingResolver(&invocations, "only")
	registry := newRegistry(t, "only")
	runner := NewStartupRunner(nopLogger{})

	_, err := runner.Run(context.Background(), resolver, registry)
	require.NoError(t, err)

	assert.ErrorIs(t, registry.Register("late"), ErrRegistrationClosed)
}

func TestStartupRunner_ResolutionFailureAbortsSequence(t *testing.T) {
	var invocations []string
	resolver := newRecordingResolver(&invocations, "known")
	registry := newRegistry(t, "known", "unknown", "known")
	runner := NewStartupRunner(nopLogger{})

	report, err := runner.Run(context.Background(), resolver, registry)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `startup initializer "unknown": resolution failed`)
	assert.Equal(t, []string{"known"}, invocations)

	require.NotNil(t, report)
	assert.False(t, report.Succeeded)
	require.Len(t, report.Steps, 2)
	assert.NotEmpty(t, report.Steps[1].Error)
}

func TestStartupRunner_DuplicateHandlesRunOncePerRegistration(t *testing.T) {
	var invocations []string
	resolver := newRecordingResolver(&invocations, "warmup")
	registry := newRegistry(t, "warmup", "warmup")
	runner := NewStartupRunner(nopLogger{})

	report, err := runner.Run(context.Background(), resolver, registry)

	require.NoError(t, err)
	assert.Equal(t, []string{"warmup", "warmup"}, invocations)
	assert.Len(t, report.Steps, 2)
}

func TestStartupRunner_PropagatesRunIDThroughContext(t *testing.T) {
	var observedRunID string

	initializers := map[domain.InitializerHandle]domain.StartupInitializer{
		"capture": domain.InitializerFunc{ID: "capture", Fn: func(ctx context.Context) error {
			if v, ok := ctx.Value(contextkeys.StartupRunIDKey).(string); ok {
				observedRunID = v
			}
			return nil
		}},
	}

	resolver := NewMapResolver(initializers)
	registry := newRegistry(t, "capture")
	runner := NewStartupRunner(nopLogger{})

	report, err := runner.Run(context.Background(), resolver, registry)

	require.NoError(t, err)
	assert.Equal(t, report.RunID, observedRunID)
}

func BenchmarkStartupRunner_Run(b *testing.B) {
	const count = 16

	initializers := make(map[domain.InitializerHandle]domain.StartupInitializer, count)
	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("init_%02d", i)
		names = append(names, name)
		initializers[domain.InitializerHandle(name)] = domain.InitializerFunc{
			ID: name,
			Fn: func(ctx context.Context) error { return nil },
		}
	}
	resolver := NewMapResolver(initializers)
	runner := NewStartupRunner(nopLogger{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		registry := NewStartupRegistry()
		for _, name := range names {
			if err := registry.Register(domain.InitializerHandle(name)); err != nil {
				b.Fatal(err)
			}
		}
		if _, err := runner.Run(context.Background(), resolver, registry); err != nil {
			b.Fatal(err)
		}
	}
}
