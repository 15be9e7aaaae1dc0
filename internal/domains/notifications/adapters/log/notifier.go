package log

import (
	"context"
	"log/slog"

	"github.com/dormshop/go-order-api/internal/domains/notifications/ports"
)

var _ ports.Notifier = (*Notifier)(nil)

// Notifier delivers notifications to the structured log. It stands in
// for push/email gateways in development and keeps the relay exercised
// end to end.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier wires a slog-backed notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// Deliver logs the record to every recipient.
func (n *Notifier) Deliver(ctx context.Context, record ports.Record) error {
	if n.logger == nil {
		return nil
	}
	n.logger.LogAttrs(ctx, slog.LevelInfo, "notification delivered",
		slog.String("event.id", record.EventID),
		slog.String("event.name", record.Name),
		slog.Any("recipients", record.RecipientIDs),
		slog.String("payload", string(record.Payload)),
	)
	return nil
}
