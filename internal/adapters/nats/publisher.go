package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"gitlab.com/timkado/api/daisi-token-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
)

// PublisherAdapter publishes audit events to NATS JetStream. It implements
// domain.AuditPublisher. The stream it publishes to is created (if missing)
// by the nats_stream startup initializer via EnsureStream, so publishes never
// race stream provisioning.
type PublisherAdapter struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	logger  domain.Logger
	cfg     *config.NATSConfig
	appName string
}

// NewPublisherAdapter creates a new NATS PublisherAdapter.
// It establishes a connection to the NATS server and gets a JetStream context.
func NewPublisherAdapter(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*PublisherAdapter, func(), error) {
	appFullCfg := cfgProvider.Get()
	natsCfg := appFullCfg.NATS
	appName := appFullCfg.App.ServiceName

	appLogger.Info(ctx, "Attempting to connect to NATS server", "url", natsCfg.URL)

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-publisher-%s", appName, appFullCfg.Server.PodID)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second), // Connection timeout
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) {
			subject := ""
			if s != nil {
				subject = s.Subject
			}
			appLogger.Error(ctx, "NATS error", "subscription", subject, "error", err.Error())
		}),
		nats.ClosedHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			appLogger.Warn(ctx, "NATS disconnected", "error", err)
		}),
	)
	if err != nil {
		appLogger.Error(ctx, "Failed to connect to NATS", "url", natsCfg.URL, "error", err.Error())
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}

	appLogger.Info(ctx, "Successfully connected to NATS server", "url", nc.ConnectedUrl())

	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		appLogger.Error(ctx, "Failed to get JetStream context", "error", err.Error())
		nc.Close()
		return nil, nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	adapter := &PublisherAdapter{
		nc:      nc,
		js:      js,
		logger:  appLogger,
		cfg:     &natsCfg,
		appName: appName,
	}

	cleanup := func() {
		appLogger.Info(context.Background(), "Closing NATS connection...")
		adapter.Close()
	}

	return adapter, cleanup, nil
}

// Close drains and closes the NATS connection.
func (a *PublisherAdapter) Close() {
	if a.nc != nil && !a.nc.IsClosed() {
		a.logger.Info(context.Background(), "Draining NATS connection...")
		if err := a.nc.Drain(); err != nil {
			a.logger.Error(context.Background(), "Error draining NATS connection", "error", err.Error())
		} else {
			a.logger.Info(context.Background(), "NATS connection drained successfully.")
		}
		// Drain closes the connection once complete, no explicit Close needed.
	}
}

// NatsConn returns the underlying NATS connection.
func (a *PublisherAdapter) NatsConn() *nats.Conn {
	return a.nc
}

// EnsureStream creates the audit stream if it does not exist yet. It is
// idempotent and safe to call on every boot.
func (a *PublisherAdapter) EnsureStream(ctx context.Context) error {
	if a.js == nil {
		return errors.New("JetStream context is not initialized")
	}

	streamName := a.cfg.StreamName
	_, err := a.js.StreamInfo(streamName)
	if err == nil {
		a.logger.Info(ctx, "JetStream stream already exists", "stream_name", streamName)
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		a.logger.Error(ctx, "Failed to look up JetStream stream", "stream_name", streamName, "error", err.Error())
		return fmt.Errorf("failed to look up stream '%s': %w", streamName, err)
	}

	subjects := append([]string{a.cfg.StreamSubject}, a.cfg.ExtraSubjects...)

	maxAge := time.Duration(a.cfg.MaxAgeHours) * time.Hour
	if a.cfg.MaxAgeHours <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	replicas := a.cfg.Replicas
	if replicas <= 0 {
		replicas = 1
	}

	_, err = a.js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  subjects,
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    maxAge,
		Replicas:  replicas,
	})
	if err != nil {
		a.logger.Error(ctx, "Failed to create JetStream stream", "stream_name", streamName, "error", err.Error())
		return fmt.Errorf("failed to create stream '%s': %w", streamName, err)
	}

	a.logger.Info(ctx, "JetStream stream created", "stream_name", streamName, "subjects", subjects)
	return nil
}

// PublishTokenIssued publishes a token issuance audit event to the audit stream.
func (a *PublisherAdapter) PublishTokenIssued(ctx context.Context, event domain.TokenIssuedEvent) error {
	if a.js == nil {
		return errors.New("JetStream context is not initialized")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal token issuance event: %w", err)
	}

	if _, err := a.js.Publish(a.cfg.StreamSubject, payload, nats.Context(ctx)); err != nil {
		a.logger.Error(ctx, "Failed to publish token issuance audit event", "subject", a.cfg.StreamSubject, "error", err.Error())
		return fmt.Errorf("failed to publish audit event to '%s': %w", a.cfg.StreamSubject, err)
	}

	a.logger.Debug(ctx, "Token issuance audit event published", "subject", a.cfg.StreamSubject, "company_id", event.CompanyID)
	return nil
}
