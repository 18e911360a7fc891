package domain

import (
	"context"
	"time"
)

// TokenCacheStore defines the interface for caching validated authenticated user contexts.
type TokenCacheStore interface {
	// Get retrieves an AuthenticatedUserContext from the cache.
	// If the item is not found, it should return (nil, application.ErrCacheMiss).
	Get(ctx context.Context, key string) (*AuthenticatedUserContext, error)

	// Set stores an AuthenticatedUserContext in the cache with a specific TTL.
	Set(ctx context.Context, key string, value *AuthenticatedUserContext, ttl time.Duration) error
}
