package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

func TestIdempotencyStore_SaveAndReplay(t *testing.T) {
	store := NewIdempotencyStore(0)
	ctx := context.Background()

	record := ports.IdempotencyRecord{Key: "key-1", RequestHash: "hash-a", OrderIDs: []string{"order-1"}}
	saved, err := store.Save(ctx, record)
	require.NoError(t, err)
	require.False(t, saved.CreatedAt.IsZero())

	got, err := store.Get(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, []string{"order-1"}, got.OrderIDs)

	replayed, err := store.Save(ctx, record)
	require.NoError(t, err)
	require.Equal(t, saved.OrderIDs, replayed.OrderIDs)
}

func TestIdempotencyStore_ConflictOnDifferentRequest(t *testing.T) {
	store := NewIdempotencyStore(0)
	ctx := context.Background()

	_, err := store.Save(ctx, ports.IdempotencyRecord{Key: "key-1", RequestHash: "hash-a", OrderIDs: []string{"order-1"}})
	require.NoError(t, err)

	stored, err := store.Save(ctx, ports.IdempotencyRecord{Key: "key-1", RequestHash: "hash-b", OrderIDs: []string{"order-2"}})
	require.ErrorIs(t, err, ports.ErrIdempotencyConflict)
	require.NotNil(t, stored)
	require.Equal(t, []string{"order-1"}, stored.OrderIDs, "conflict must return the original record")
}

func TestIdempotencyStore_ExpiredKeyIsReusable(t *testing.T) {
	store := NewIdempotencyStore(time.Hour)
	current := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	store.WithClock(func() time.Time { return current })
	ctx := context.Background()

	_, err := store.Save(ctx, ports.IdempotencyRecord{Key: "key-1", RequestHash: "hash-a", OrderIDs: []string{"order-1"}})
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)

	got, err := store.Get(ctx, "key-1")
	require.NoError(t, err)
	require.Nil(t, got)

	saved, err := store.Save(ctx, ports.IdempotencyRecord{Key: "key-1", RequestHash: "hash-b", OrderIDs: []string{"order-2"}})
	require.NoError(t, err)
	require.Equal(t, []string{"order-2"}, saved.OrderIDs)
}

func TestIdempotencyStore_UnknownKey(t *testing.T) {
	store := NewIdempotencyStore(0)
	got, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, got)
}
