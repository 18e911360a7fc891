package application

import (
	"context"
	"fmt"

	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
)

// MapResolver resolves initializer handles against a fixed map of constructed
// instances. The bootstrap package populates it from the Wire-built object
// graph, so every initializer it hands out already has its dependencies
// satisfied.
type MapResolver struct {
	initializers map[domain.InitializerHandle]domain.StartupInitializer
}

// NewMapResolver creates a resolver over the given instances.
func NewMapResolver(initializers map[domain.InitializerHandle]domain.StartupInitializer) *MapResolver {
	if initializers == nil {
		initializers = make(map[domain.InitializerHandle]domain.StartupInitializer)
	}
	return &MapResolver{initializers: initializers}
}

// Resolve returns the initializer registered under the handle.
func (r *MapResolver) Resolve(_ context.Context, handle domain.InitializerHandle) (domain.StartupInitializer, error) {
	initializer, ok := r.initializers[handle]
	if !ok {
		return nil, fmt.Errorf("initializer %q is not known to the resolver", string(handle))
	}
	if initializer == nil {
		return nil, fmt.Errorf("initializer %q resolved to nil", string(handle))
	}
	return initializer, nil
}
