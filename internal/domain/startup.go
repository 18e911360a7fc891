package domain

import "context"

// StartupInitializer is the capability contract for a unit of startup logic.
// Implementations perform one no-argument asynchronous action that must
// complete before the application begins serving external requests. The
// context carries cancellation and log-correlation values only; it is not a
// domain argument.
type StartupInitializer interface {
	// Name returns a stable identifier for the initializer, used for logging,
	// metrics and the startup report.
	Name() string

	// Initialize performs the startup work. Returning an error aborts the
	// whole startup sequence.
	Initialize(ctx context.Context) error
}

// InitializerHandle is an opaque reference to a registered initializer. It is
// resolved to a concrete StartupInitializer by an InitializerResolver when the
// startup sequence runs, so registration never requires a constructed
// instance.
type InitializerHandle string

// InitializerResolver maps a handle to a constructed StartupInitializer with
// its dependencies satisfied. The bootstrap package provides a resolver backed
// by the Wire-built object graph.
type InitializerResolver interface {
	Resolve(ctx context.Context, handle InitializerHandle) (StartupInitializer, error)
}

// InitializerFunc adapts a plain function to the StartupInitializer interface.
type InitializerFunc struct {
	ID string
	Fn func(ctx context.Context) error
}

func (f InitializerFunc) Name() string { return f.ID }

func (f InitializerFunc) Initialize(ctx context.Context) error { return f.Fn(ctx) }
