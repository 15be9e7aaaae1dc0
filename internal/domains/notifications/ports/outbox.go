package ports

import (
	"context"
	"encoding/json"
	"time"

	ordersdomain "github.com/dormshop/go-order-api/internal/domains/orders/domain"
)

// Record is one durably stored notification awaiting delivery.
type Record struct {
	ID           int64
	EventID      string
	Name         string
	Payload      json.RawMessage
	RecipientIDs []string
	CreatedAt    time.Time
	SentAt       *time.Time
}

// OutboxAppender stores events durably. When obtained from a transactional
// scope the append commits or rolls back with the rest of the scope.
type OutboxAppender interface {
	Append(ctx context.Context, events ...ordersdomain.NotificationEvent) error
}

// OutboxStore adds the relay side: fetching pending records in insertion
// order and marking them sent after delivery. Delivery is at-least-once;
// a crash between Deliver and MarkSent redelivers.
type OutboxStore interface {
	OutboxAppender
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
}

// Notifier pushes one stored record to its recipients.
type Notifier interface {
	Deliver(ctx context.Context, record Record) error
}
