package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	inventorydomain "github.com/dormshop/go-order-api/internal/domains/inventory/domain"
	inventoryports "github.com/dormshop/go-order-api/internal/domains/inventory/ports"
	"github.com/dormshop/go-order-api/internal/domains/orders/domain"
	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

func TestReserve_NoOversellUnderContention(t *testing.T) {
	const initialStock = 50
	const workers = 200

	store := NewStore()
	store.SeedProduct(inventorydomain.Product{ID: "prod-1", StoreID: "store-1", Name: "Kettle"})
	store.SeedSKU(inventorydomain.SKU{ID: "sku-1", ProductID: "prod-1", Quantity: initialStock})

	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := int32(0)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Do(context.Background(), func(tx ports.TxContext) error {
				_, err := tx.Ledger().Reserve(context.Background(), []inventoryports.Reservation{
					{SKUID: "sku-1", Quantity: 1},
				})
				return err
			})
			if err == nil {
				mu.Lock()
				committed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sku, ok := store.SKU("sku-1")
	require.True(t, ok)
	require.Equal(t, int32(initialStock), committed, "every unit is sold exactly once")
	require.Equal(t, int32(0), sku.Quantity)
	require.True(t, sku.IsOutOfStock)
}

func TestReserve_RoundTrip(t *testing.T) {
	store := NewStore()
	store.SeedProduct(inventorydomain.Product{ID: "prod-1", StoreID: "store-1", Name: "Kettle"})
	store.SeedSKU(inventorydomain.SKU{ID: "sku-1", ProductID: "prod-1", Quantity: 7})

	err := store.Do(context.Background(), func(tx ports.TxContext) error {
		drained, err := tx.Ledger().Reserve(context.Background(), []inventoryports.Reservation{
			{SKUID: "sku-1", Quantity: 3},
		})
		require.NoError(t, err)
		require.Empty(t, drained)
		return nil
	})
	require.NoError(t, err)

	sku, _ := store.SKU("sku-1")
	require.Equal(t, int32(4), sku.Quantity)
	require.False(t, sku.IsOutOfStock)
}

func TestReserve_BatchIsAllOrNothing(t *testing.T) {
	store := NewStore()
	store.SeedSKU(inventorydomain.SKU{ID: "sku-1", ProductID: "prod-1", Quantity: 10})
	store.SeedSKU(inventorydomain.SKU{ID: "sku-2", ProductID: "prod-1", Quantity: 1})

	err := store.Do(context.Background(), func(tx ports.TxContext) error {
		_, err := tx.Ledger().Reserve(context.Background(), []inventoryports.Reservation{
			{SKUID: "sku-1", Quantity: 4},
			{SKUID: "sku-2", Quantity: 2},
		})
		return err
	})
	var ins inventorydomain.InsufficientStockError
	require.ErrorAs(t, err, &ins)
	require.Equal(t, "sku-2", ins.SKUID)

	sku1, _ := store.SKU("sku-1")
	require.Equal(t, int32(10), sku1.Quantity, "the passing line must not decrement either")
}

func TestReserve_ProductFlagNeedsEverySKUDrained(t *testing.T) {
	store := NewStore()
	store.SeedProduct(inventorydomain.Product{ID: "prod-1", StoreID: "store-1", Name: "Kettle"})
	store.SeedSKU(inventorydomain.SKU{ID: "sku-1", ProductID: "prod-1", Quantity: 1})
	store.SeedSKU(inventorydomain.SKU{ID: "sku-2", ProductID: "prod-1", Quantity: 1})

	require.NoError(t, store.Do(context.Background(), func(tx ports.TxContext) error {
		drained, err := tx.Ledger().Reserve(context.Background(), []inventoryports.Reservation{{SKUID: "sku-1", Quantity: 1}})
		require.NoError(t, err)
		require.Len(t, drained, 1)
		return nil
	}))
	product, _ := store.Product("prod-1")
	require.False(t, product.IsOutOfStock, "one live SKU keeps the product in stock")

	require.NoError(t, store.Do(context.Background(), func(tx ports.TxContext) error {
		_, err := tx.Ledger().Reserve(context.Background(), []inventoryports.Reservation{{SKUID: "sku-2", Quantity: 1}})
		return err
	}))
	product, _ = store.Product("prod-1")
	require.True(t, product.IsOutOfStock)
}

func TestDo_FailedScopeLeavesNothingBehind(t *testing.T) {
	store := NewStore()
	store.SeedSKU(inventorydomain.SKU{ID: "sku-1", ProductID: "prod-1", Quantity: 5})
	now := time.Now()
	order, err := domain.NewOrder("order-1", "buyer-1", "store-1", "room-1", domain.MethodCOD,
		[]domain.OrderItem{{ID: "item-1", OrderID: "order-1", SKUID: "sku-1", Quantity: 1, Price: 100}}, 100, 0, now)
	require.NoError(t, err)

	boom := context.DeadlineExceeded
	err = store.Do(context.Background(), func(tx ports.TxContext) error {
		require.NoError(t, tx.Orders().Create(context.Background(), order))
		_, err := tx.Ledger().Reserve(context.Background(), []inventoryports.Reservation{{SKUID: "sku-1", Quantity: 1}})
		require.NoError(t, err)
		require.NoError(t, tx.Outbox().Append(context.Background(), domain.NotificationEvent{Name: "OrderStatusChanged-Processing", OccurredAt: now}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetByID(context.Background(), "order-1")
	require.ErrorIs(t, err, ports.ErrNotFound)
	sku, _ := store.SKU("sku-1")
	require.Equal(t, int32(5), sku.Quantity)
	records, err := store.FetchPending(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestDo_ScopeSeesItsOwnWrites(t *testing.T) {
	store := NewStore()
	now := time.Now()
	order, err := domain.NewOrder("order-1", "buyer-1", "store-1", "room-1", domain.MethodCOD,
		[]domain.OrderItem{{ID: "item-1", OrderID: "order-1", SKUID: "sku-1", Quantity: 1, Price: 100}}, 100, 0, now)
	require.NoError(t, err)

	require.NoError(t, store.Do(context.Background(), func(tx ports.TxContext) error {
		require.NoError(t, tx.Orders().Create(context.Background(), order))
		loaded, err := tx.Orders().GetForUpdate(context.Background(), "order-1")
		require.NoError(t, err)
		loaded.Note = "staged"
		return tx.Orders().Update(context.Background(), loaded)
	}))

	committed, err := store.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.Equal(t, "staged", committed.Note)
}
