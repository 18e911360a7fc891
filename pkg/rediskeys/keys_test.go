package rediskeys

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/timkado/api/daisi-token-service/pkg/crypto"
)

func TestTokenCacheKey(t *testing.T) {
	rawToken := "some-raw-token"
	expected := "token_cache:" + crypto.Sha256Hex(rawToken)
	assert.Equal(t, expected, TokenCacheKey(rawToken))

	// Different tokens must never collide on the same key.
	assert.NotEqual(t, TokenCacheKey("a"), TokenCacheKey("b"))
}

func TestStartupKeys(t *testing.T) {
	assert.Equal(t, "startup:report:pod-1", StartupReportKey("pod-1"))
	assert.Equal(t, "startup:ready:pod-1", StartupReadyKey("pod-1"))
}
