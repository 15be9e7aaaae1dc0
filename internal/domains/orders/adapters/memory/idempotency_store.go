package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore keeps checkout idempotency records in process memory. It
// backs development mode and tests; deployments with more than one API
// instance use the Redis store instead.
type IdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]idempotencyEntry
	ttl     time.Duration
	now     func() time.Time
}

type idempotencyEntry struct {
	record    ports.IdempotencyRecord
	expiresAt time.Time
}

// NewIdempotencyStore constructs an empty store. A non-positive ttl disables
// expiry.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		records: map[string]idempotencyEntry{},
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (s *IdempotencyStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns the stored record for the provided key, or nil when absent or
// expired.
func (s *IdempotencyStore) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.live(key)
	if !ok {
		return nil, nil
	}
	record := entry.record
	return &record, nil
}

// Save persists the record. A key that already maps to the same request
// returns the stored record; a different request returns
// ports.ErrIdempotencyConflict alongside it.
func (s *IdempotencyStore) Save(_ context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.live(record.Key); ok {
		stored := entry.record
		if stored.RequestHash != record.RequestHash || !slices.Equal(stored.OrderIDs, record.OrderIDs) {
			return &stored, ports.ErrIdempotencyConflict
		}
		return &stored, nil
	}

	record.CreatedAt = s.now()
	entry := idempotencyEntry{record: record}
	if s.ttl > 0 {
		entry.expiresAt = record.CreatedAt.Add(s.ttl)
	}
	s.records[record.Key] = entry
	saved := record
	return &saved, nil
}

// live looks up a key and treats expired entries as absent. Callers hold at
// least the read lock.
func (s *IdempotencyStore) live(key string) (idempotencyEntry, bool) {
	entry, ok := s.records[key]
	if !ok {
		return idempotencyEntry{}, false
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		return idempotencyEntry{}, false
	}
	return entry, true
}
