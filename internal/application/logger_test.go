package application

import (
	"context"

	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
)

// nopLogger satisfies domain.Logger for tests that do not assert on log output.
type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Fatal(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) With(fields ...any) domain.Logger                     { return nopLogger{} }
