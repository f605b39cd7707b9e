// Package natsbus publishes domain events to NATS subjects.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/phrazzld/farecard/internal/config"
	"github.com/phrazzld/farecard/internal/events"
	"github.com/phrazzld/farecard/internal/platform/logger"
)

const (
	connectionName = "farecard"
	flushTimeout   = 2 * time.Second
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher is an events.EventHandler that publishes each event as JSON to
// "<prefix>.<event type>".
type Publisher struct {
	conn   Conn
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

var _ events.EventHandler = (*Publisher)(nil)

// NewPublisher creates a Publisher over an existing connection.
// A nil logger uses slog.Default().
func NewPublisher(conn Conn, prefix string, l *slog.Logger) *Publisher {
	if l == nil {
		l = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		prefix: prefix,
		logger: l.With(slog.String("component", "nats_publisher")),
	}
}

// Connect dials the NATS server named in cfg and returns a Publisher that
// owns the connection.
func Connect(cfg config.EventsConfig, l *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name(connectionName),
	}
	if cfg.NATSToken != "" {
		opts = append(opts, nats.Token(cfg.NATSToken))
	}

	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}

	p := NewPublisher(nc, cfg.SubjectPrefix, l)
	p.nc = nc
	p.logger.Info("connected to NATS",
		slog.String("url", nc.ConnectedUrlRedacted()),
		slog.String("subject_prefix", cfg.SubjectPrefix))
	return p, nil
}

// Subject returns the subject an event of the given type is published to.
func Subject(prefix, eventType string) string {
	return prefix + "." + eventType
}

// HandleEvent implements events.EventHandler.
func (p *Publisher) HandleEvent(ctx context.Context, event *events.Event) error {
	log := logger.FromContextOrDefault(ctx, p.logger)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}

	subject := Subject(p.prefix, event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event %s to %s: %w", event.ID, subject, err)
	}

	log.Debug("event published",
		slog.String("subject", subject),
		slog.String("event_id", event.ID.String()))
	return nil
}

// Close flushes pending messages and closes a connection opened by Connect.
// It is a no-op for publishers created with NewPublisher.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	defer p.nc.Close()
	if err := p.nc.FlushTimeout(flushTimeout); err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	return nil
}
