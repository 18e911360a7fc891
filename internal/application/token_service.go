package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gitlab.com/timkado/api/daisi-token-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-token-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
	"gitlab.com/timkado/api/daisi-token-service/pkg/crypto"
	"gitlab.com/timkado/api/daisi-token-service/pkg/rediskeys"
)

var (
	ErrTokenPayloadInvalid = errors.New("token payload is invalid")
	ErrTokenExpired        = errors.New("token has expired")
	ErrCacheMiss           = errors.New("token not found in cache") // Specific error for cache miss
	ErrKeyNotConfigured    = errors.New("token AES key is not configured")
)

// TokenService handles issuance, decryption, validation, and caching of
// company tokens.
type TokenService struct {
	logger domain.Logger
	config config.Provider
	cache  domain.TokenCacheStore
	audit  domain.AuditPublisher
}

// NewTokenService creates a new TokenService.
// The audit publisher may be nil when auditing is disabled by configuration.
func NewTokenService(logger domain.Logger, cfg config.Provider, cache domain.TokenCacheStore, audit domain.AuditPublisher) *TokenService {
	if logger == nil {
		panic("logger is nil in NewTokenService")
	}
	if cfg == nil {
		panic("config provider is nil in NewTokenService")
	}
	if cache == nil {
		panic("cache store is nil in NewTokenService")
	}
	return &TokenService{
		logger: logger,
		config: cfg,
		cache:  cache,
		audit:  audit,
	}
}

// IssueToken creates an encrypted company token for the given identity,
// publishes an audit event, and returns the base64 token string.
func (s *TokenService) IssueToken(ctx context.Context, companyID, agentID, userID string, expiresIn time.Duration) (string, error) {
	if companyID == "" || agentID == "" || userID == "" || expiresIn <= 0 {
		return "", fmt.Errorf("%w: company_id, agent_id, user_id and a positive expiry are required", ErrTokenPayloadInvalid)
	}

	aesKeyHex := s.config.Get().Auth.TokenAESKey
	if aesKeyHex == "" {
		s.logger.Error(ctx, "TokenAESKey not configured, cannot issue token", "config_key", "auth.token_aes_key")
		return "", ErrKeyNotConfigured
	}

	now := time.Now()
	payload := domain.AuthenticatedUserContext{
		CompanyID: companyID,
		AgentID:   agentID,
		UserID:    userID,
		ExpiresAt: now.Add(expiresIn),
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token payload: %w", err)
	}

	token, err := crypto.EncryptAESGCM(aesKeyHex, plaintext)
	if err != nil {
		s.logger.Error(ctx, "Token encryption failed", "error", err.Error())
		return "", fmt.Errorf("failed to encrypt token: %w", err)
	}

	metrics.IncTokensIssued()

	if s.audit != nil {
		event := domain.TokenIssuedEvent{
			CompanyID: companyID,
			AgentID:   agentID,
			UserID:    userID,
			IssuedAt:  now,
			ExpiresAt: payload.ExpiresAt,
			PodID:     s.config.Get().Server.PodID,
		}
		if err := s.audit.PublishTokenIssued(ctx, event); err != nil {
			// Auditing is best-effort; issuance already succeeded.
			s.logger.Warn(ctx, "Failed to publish token issuance audit event", "error", err.Error())
		}
	}

	s.logger.Info(ctx, "Token issued", "company_id", companyID, "agent_id", agentID, "user_id", userID, "expires_at", payload.ExpiresAt)
	return token, nil
}

// ParseAndValidateDecryptedToken parses the decrypted token data, validates it,
// and populates an AuthenticatedUserContext struct.
// rawTokenB64 is the original base64 encoded token, used for caching key generation later.
func (s *TokenService) ParseAndValidateDecryptedToken(decryptedPayload []byte, rawTokenB64 string) (*domain.AuthenticatedUserContext, error) {
	var ctx domain.AuthenticatedUserContext
	err := json.Unmarshal(decryptedPayload, &ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal token JSON: %v", ErrTokenPayloadInvalid, err)
	}

	if ctx.CompanyID == "" || ctx.AgentID == "" || ctx.UserID == "" || ctx.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("%w: missing essential fields (company_id, agent_id, user_id, expires_at)", ErrTokenPayloadInvalid)
	}

	if time.Now().After(ctx.ExpiresAt) {
		return nil, fmt.Errorf("%w: token expired at %v", ErrTokenExpired, ctx.ExpiresAt)
	}

	ctx.Token = rawTokenB64 // Store the raw token for caching purposes

	return &ctx, nil
}

// ProcessToken attempts to retrieve a validated token from cache.
// If not found, it decrypts, validates, and then caches the token.
func (s *TokenService) ProcessToken(reqCtx context.Context, tokenB64 string) (*domain.AuthenticatedUserContext, error) {
	cacheKey := rediskeys.TokenCacheKey(tokenB64)

	// 1. Try to get from cache
	cachedCtx, err := s.cache.Get(reqCtx, cacheKey)
	if err == nil && cachedCtx != nil {
		// Cache hit; Redis TTL should already bound this, re-check defensively.
		if time.Now().After(cachedCtx.ExpiresAt) {
			s.logger.Warn(reqCtx, "Cached token found but was expired", "cache_key", cacheKey, "expires_at", cachedCtx.ExpiresAt)
			// Treat as cache miss, proceed to decrypt and validate
		} else {
			s.logger.Debug(reqCtx, "Token found in cache and is valid", "cache_key", cacheKey)
			return cachedCtx, nil
		}
	} else if err != nil && !errors.Is(err, ErrCacheMiss) {
		s.logger.Error(reqCtx, "Error retrieving token from cache", "cache_key", cacheKey, "error", err.Error())
		// Proceed to decrypt, as cache is unreliable or errored
	}

	s.logger.Debug(reqCtx, "Token not found in cache or cache error, proceeding to decrypt", "cache_key", cacheKey)

	// 2. If cache miss or error, decrypt and validate
	aesKeyHex := s.config.Get().Auth.TokenAESKey
	if aesKeyHex == "" {
		s.logger.Error(reqCtx, "TokenAESKey not configured", "config_key", "auth.token_aes_key")
		return nil, ErrKeyNotConfigured
	}

	decryptedPayload, err := crypto.DecryptAESGCM(aesKeyHex, tokenB64)
	if err != nil {
		s.logger.Warn(reqCtx, "Token decryption failed", "error", err.Error())
		return nil, err // err is already descriptive (e.g., crypto.ErrTokenDecryptionFailed)
	}

	validatedCtx, err := s.ParseAndValidateDecryptedToken(decryptedPayload, tokenB64)
	if err != nil {
		s.logger.Warn(reqCtx, "Decrypted token failed validation", "error", err.Error())
		return nil, err
	}

	// 3. Cache the successfully validated token
	cacheTTLSeconds := s.config.Get().Auth.TokenCacheTTLSeconds
	cacheTTL := time.Duration(cacheTTLSeconds) * time.Second

	if cacheTTLSeconds == 0 {
		cacheTTL = 30 * time.Second
		s.logger.Debug(reqCtx, "auth.token_cache_ttl_seconds not configured or zero, using default 30s", "cache_key", cacheKey)
	}

	if err := s.cache.Set(reqCtx, cacheKey, validatedCtx, cacheTTL); err != nil {
		s.logger.Error(reqCtx, "Failed to cache validated token", "cache_key", cacheKey, "error", err.Error())
		// Non-fatal error for caching, proceed with the validated context
	}
	s.logger.Info(reqCtx, "Token decrypted, validated, and cached successfully", "cache_key", cacheKey)
	return validatedCtx, nil
}
