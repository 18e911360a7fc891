package application

import (
	"errors"
	"sync"
	"sync/atomic"

	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
)

var (
	ErrEmptyHandle        = errors.New("initializer handle is empty")
	ErrRegistrationClosed = errors.New("startup sequence already started; registration is closed")
)

// StartupRegistry is the ordered collection of initializer handles accumulated
// during application configuration. Insertion order is significant: the
// startup runner executes handles in exactly the order they were registered.
// Registering the same handle twice is allowed and results in the initializer
// running twice, matching the ordered-sequence semantics.
type StartupRegistry struct {
	mu      sync.Mutex
	sealed  atomic.Bool
	handles []domain.InitializerHandle
}

// NewStartupRegistry creates an empty registry.
func NewStartupRegistry() *StartupRegistry {
	return &StartupRegistry{
		handles: make([]domain.InitializerHandle, 0, 8),
	}
}

// Register appends a handle to the ordered sequence. It fails with
// ErrRegistrationClosed once the startup runner has begun executing the
// sequence; the registry is immutable from that point on.
func (r *StartupRegistry) Register(handle domain.InitializerHandle) error {
	if handle == "" {
		return ErrEmptyHandle
	}
	if r.sealed.Load() {
		return ErrRegistrationClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the lock so a concurrent seal cannot lose a late append.
	if r.sealed.Load() {
		return ErrRegistrationClosed
	}
	r.handles = append(r.handles, handle)
	return nil
}

// Handles returns a snapshot of the registered handles in registration order.
func (r *StartupRegistry) Handles() []domain.InitializerHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.InitializerHandle, len(r.handles))
	copy(out, r.handles)
	return out
}

// Len returns the number of registered handles.
func (r *StartupRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// seal closes the registry for registration. Called by the runner when
// execution begins; sealing is permanent.
func (r *StartupRegistry) seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed.Store(true)
}
