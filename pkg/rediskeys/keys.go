package rediskeys

import (
	"fmt"

	"gitlab.com/timkado/api/daisi-token-service/pkg/crypto"
)

// TokenCacheKey generates the Redis key for caching a validated company token.
// It takes the original raw token string, hashes it, and then formats the key.
func TokenCacheKey(rawToken string) string {
	hashedToken := crypto.Sha256Hex(rawToken)
	return fmt.Sprintf("token_cache:%s", hashedToken)
}

// StartupReportKey generates the Redis key under which a pod's last startup
// report is stored.
func StartupReportKey(podID string) string {
	return fmt.Sprintf("startup:report:%s", podID)
}

// StartupReadyKey generates the Redis key for the per-pod readiness marker set
// once the startup sequence has completed.
func StartupReadyKey(podID string) string {
	return fmt.Sprintf("startup:ready:%s", podID)
}
