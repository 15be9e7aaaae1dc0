package application

import (
	"context"
	"time"

	"github.com/dormshop/go-order-api/internal/domains/notifications/ports"
)

// DefaultBatchSize bounds how many records one drain pass claims.
const DefaultBatchSize = 100

// Relay drains the outbox and delivers pending notifications. Records are
// marked sent only after the notifier accepts them, so delivery is
// at-least-once and survives restarts.
type Relay struct {
	outbox    ports.OutboxStore
	notifier  ports.Notifier
	batchSize int
}

// NewRelay wires a relay over the outbox store and notifier.
func NewRelay(outbox ports.OutboxStore, notifier ports.Notifier) *Relay {
	return &Relay{outbox: outbox, notifier: notifier, batchSize: DefaultBatchSize}
}

// WithBatchSize overrides how many records one pass drains.
func (r *Relay) WithBatchSize(size int) *Relay {
	if size > 0 {
		r.batchSize = size
	}
	return r
}

// DrainOnce fetches one batch of pending records and delivers them in
// insertion order. A failed delivery stops the pass so ordering holds;
// the record stays pending and is retried next pass. Returns how many
// records were delivered.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	records, err := r.outbox.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, record := range records {
		if err := r.notifier.Deliver(ctx, record); err != nil {
			return delivered, err
		}
		if err := r.outbox.MarkSent(ctx, record.ID); err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}

// Run drains on the given interval until the context is cancelled.
// Errors are reported through onError and do not stop the loop.
func (r *Relay) Run(ctx context.Context, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := r.DrainOnce(ctx); err != nil && onError != nil {
			onError(err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
