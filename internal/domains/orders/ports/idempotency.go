package ports

import (
	"context"
	"errors"
	"time"
)

// ErrIdempotencyConflict indicates the same key was used with a different payload.
var ErrIdempotencyConflict = errors.New("idempotency conflict")

// IdempotencyRecord associates a client-supplied key with the orders a
// checkout produced.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	OrderIDs    []string
	CreatedAt   time.Time
}

// IdempotencyStore persists idempotency keys so checkout retries replay
// the original result instead of creating duplicate orders.
type IdempotencyStore interface {
	// Get returns the stored record for the key, or nil when unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Save persists the record. When the key exists with a different
	// request hash, ErrIdempotencyConflict is returned with the stored record.
	Save(ctx context.Context, record IdempotencyRecord) (*IdempotencyRecord, error)
}
