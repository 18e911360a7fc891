package safego

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
)

type captureLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *captureLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *captureLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func (l *captureLogger) Debug(ctx context.Context, msg string, fields ...any) { l.record(msg) }
func (l *captureLogger) Info(ctx context.Context, msg string, fields ...any)  { l.record(msg) }
func (l *captureLogger) Warn(ctx context.Context, msg string, fields ...any)  { l.record(msg) }
func (l *captureLogger) Error(ctx context.Context, msg string, fields ...any) { l.record(msg) }
func (l *captureLogger) Fatal(ctx context.Context, msg string, fields ...any) { l.record(msg) }
func (l *captureLogger) With(fields ...any) domain.Logger                     { return l }

func TestExecute_RunsFunction(t *testing.T) {
	done := make(chan struct{})
	Execute(context.Background(), &captureLogger{}, "worker", func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestExecute_RecoversPanic(t *testing.T) {
	logger := &captureLogger{}
	panicked := make(chan struct{})

	Execute(context.Background(), logger, "panicky", func() {
		defer close(panicked)
		panic("boom")
	})

	select {
	case <-panicked:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}

	// The deferred recover logs after the channel closes; poll briefly.
	require.Eventually(t, func() bool {
		return len(logger.all()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Contains(t, logger.all()[0], "panicky")
}
