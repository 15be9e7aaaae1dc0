package redis

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// DefaultTTL bounds how long a checkout key can be replayed. Retries of a
// failed request arrive within seconds; a day is generous.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "orders:checkout:"

// IdempotencyStore keeps checkout idempotency records in Redis so retries
// replay across API instances.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewIdempotencyStore connects a Redis-backed store. Caller manages the
// client lifecycle.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl, now: time.Now}
}

type storedRecord struct {
	RequestHash string    `json:"requestHash"`
	OrderIDs    []string  `json:"orderIds"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Get returns the stored record for the provided key, or nil when absent.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedRecord
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}
	return &ports.IdempotencyRecord{
		Key:         key,
		RequestHash: stored.RequestHash,
		OrderIDs:    stored.OrderIDs,
		CreatedAt:   stored.CreatedAt,
	}, nil
}

// Save persists the record, refusing to overwrite a key that maps to a
// different request.
func (s *IdempotencyStore) Save(ctx context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	existing, err := s.Get(ctx, record.Key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.RequestHash != record.RequestHash || !slices.Equal(existing.OrderIDs, record.OrderIDs) {
			return existing, ports.ErrIdempotencyConflict
		}
		return existing, nil
	}
	record.CreatedAt = s.now()
	raw, err := json.Marshal(storedRecord{
		RequestHash: record.RequestHash,
		OrderIDs:    record.OrderIDs,
		CreatedAt:   record.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	if err := s.client.SetNX(ctx, keyPrefix+record.Key, raw, s.ttl).Err(); err != nil {
		return nil, err
	}
	saved := record
	return &saved, nil
}
