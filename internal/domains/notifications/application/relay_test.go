package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dormshop/go-order-api/internal/domains/notifications/ports"
	ordersmemory "github.com/dormshop/go-order-api/internal/domains/orders/adapters/memory"
	ordersdomain "github.com/dormshop/go-order-api/internal/domains/orders/domain"
)

type recordingNotifier struct {
	delivered []ports.Record
	failOn    string
}

func (n *recordingNotifier) Deliver(_ context.Context, record ports.Record) error {
	if n.failOn != "" && record.Name == n.failOn {
		return errors.New("push gateway unavailable")
	}
	n.delivered = append(n.delivered, record)
	return nil
}

func seedOutbox(t *testing.T, store *ordersmemory.Store, names ...string) {
	t.Helper()
	now := time.Now()
	for _, name := range names {
		require.NoError(t, store.Append(context.Background(), ordersdomain.NotificationEvent{
			Name:         name,
			Payload:      map[string]string{"orderId": "order-1"},
			RecipientIDs: []string{"buyer-1"},
			OccurredAt:   now,
		}))
	}
}

func TestDrainOnce_DeliversInInsertionOrder(t *testing.T) {
	store := ordersmemory.NewStore()
	seedOutbox(t, store, "OrderStatusChanged-Processing", "ProductOutOfStock", "OrderStatusChanged-Shipped")
	notifier := &recordingNotifier{}
	relay := NewRelay(store, notifier)

	delivered, err := relay.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, delivered)
	require.Len(t, notifier.delivered, 3)
	require.Equal(t, "OrderStatusChanged-Processing", notifier.delivered[0].Name)
	require.Equal(t, "OrderStatusChanged-Shipped", notifier.delivered[2].Name)

	pending, err := store.FetchPending(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, pending, "delivered records are marked sent")
}

func TestDrainOnce_FailureStopsThePassAndRetries(t *testing.T) {
	store := ordersmemory.NewStore()
	seedOutbox(t, store, "OrderStatusChanged-Processing", "ProductOutOfStock", "OrderStatusChanged-Shipped")
	notifier := &recordingNotifier{failOn: "ProductOutOfStock"}
	relay := NewRelay(store, notifier)

	delivered, err := relay.DrainOnce(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, delivered, "the pass stops at the failure so ordering holds")

	pending, err := store.FetchPending(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 2, "the failed record stays pending")
	require.Equal(t, "ProductOutOfStock", pending[0].Name)

	// A later pass redelivers once the notifier recovers.
	notifier.failOn = ""
	delivered, err = relay.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, delivered)
}

func TestDrainOnce_RespectsBatchSize(t *testing.T) {
	store := ordersmemory.NewStore()
	seedOutbox(t, store, "a", "b", "c", "d")
	notifier := &recordingNotifier{}
	relay := NewRelay(store, notifier).WithBatchSize(3)

	delivered, err := relay.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, delivered)

	delivered, err = relay.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, delivered)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	store := ordersmemory.NewStore()
	seedOutbox(t, store, "OrderStatusChanged-Processing")
	notifier := &recordingNotifier{}
	relay := NewRelay(store, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx, time.Millisecond, nil)
		close(done)
	}()

	require.Eventually(t, func() bool {
		pending, err := store.FetchPending(context.Background(), 0)
		return err == nil && len(pending) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancellation")
	}
}
