package domain

import (
	"context"
	"time"
)

// TokenIssuedEvent is published to the audit stream whenever a company token
// is generated.
type TokenIssuedEvent struct {
	CompanyID string    `json:"company_id"`
	AgentID   string    `json:"agent_id"`
	UserID    string    `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	PodID     string    `json:"pod_id,omitempty"`
}

// AuditPublisher publishes audit events for token operations. The NATS
// JetStream adapter implements this; the startup sequence guarantees the
// backing stream exists before the first publish.
type AuditPublisher interface {
	PublishTokenIssued(ctx context.Context, event TokenIssuedEvent) error
}
