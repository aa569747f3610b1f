// Package notification publishes requisition transitions to downstream consumers.
//
// Subject convention: <prefix>.<event>, e.g. oversight.requisitions.approved.
// Publishing is best effort; the requisition service logs and drops failures
// so a broker outage never blocks an approval.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/oversight/internal/core/domain"
	portssvc "github.com/SscSPs/oversight/internal/core/ports/services"
	"github.com/SscSPs/oversight/internal/middleware"
	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn used here.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier sends transition events as JSON messages.
type NATSNotifier struct {
	pub    Publisher
	prefix string
}

// NewNATSNotifier creates a notifier publishing under prefix.
func NewNATSNotifier(pub Publisher, prefix string) *NATSNotifier {
	return &NATSNotifier{pub: pub, prefix: prefix}
}

var _ portssvc.Notifier = (*NATSNotifier)(nil)

// Subject returns the subject an event is published on.
func (n *NATSNotifier) Subject(event string) string {
	return fmt.Sprintf("%s.%s", n.prefix, event)
}

func (n *NATSNotifier) NotifyTransition(ctx context.Context, event domain.TransitionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notification: failed to marshal event: %w", err)
	}
	subject := n.Subject(event.Event)
	if err := n.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("notification: failed to publish to %s: %w", subject, err)
	}
	middleware.GetLoggerFromCtx(ctx).Debug("notification: event published",
		slog.String("subject", subject),
		slog.String("transaction_id", event.TransactionID))
	return nil
}

// LogNotifier writes transition events to the request logger. Used when no broker is configured.
type LogNotifier struct{}

var _ portssvc.Notifier = LogNotifier{}

func (LogNotifier) NotifyTransition(ctx context.Context, event domain.TransitionEvent) error {
	middleware.GetLoggerFromCtx(ctx).Info("Requisition transition",
		slog.String("event", event.Event),
		slog.String("transaction_id", event.TransactionID),
		slog.String("action", event.Action),
		slog.String("actor", event.Actor),
		slog.String("status", string(event.Status)),
		slog.String("requester_email", event.RequesterEmail))
	return nil
}

// Connect dials NATS with reconnects enabled, logging connection state changes.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("oversight"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	logger.Info("Connected to NATS", slog.String("url", nc.ConnectedUrl()))
	return nc, nil
}
