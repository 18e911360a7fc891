package domain

import "time"

// AuthenticatedUserContext holds the validated and decrypted data from a company token.
// The same struct is the plaintext payload of issued tokens, so issuance and
// validation stay symmetric.
type AuthenticatedUserContext struct {
	CompanyID string    `json:"company_id"`
	AgentID   string    `json:"agent_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"-"` // Store the raw token for caching key generation, but don't marshal to JSON
}
