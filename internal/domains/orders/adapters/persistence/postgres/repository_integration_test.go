//go:build integration
// +build integration

// To enable gopls support for this file, add the following to your VSCode settings.json:
// "gopls": {
//   "buildFlags": ["-tags=integration"]
// }

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	inventorydomain "github.com/dormshop/go-order-api/internal/domains/inventory/domain"
	inventoryports "github.com/dormshop/go-order-api/internal/domains/inventory/ports"
	notificationpostgres "github.com/dormshop/go-order-api/internal/domains/notifications/adapters/persistence/postgres"
	"github.com/dormshop/go-order-api/internal/domains/orders/domain"
	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
	"github.com/dormshop/go-order-api/internal/platform/migrations"
)

func setupPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("orders_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = migrations.Run(db)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}

	return db, cleanup
}

func seedOrder(t *testing.T, uow *UnitOfWork, id string) *domain.Order {
	t.Helper()
	ctx := context.Background()
	order, err := domain.NewOrder(id, "buyer-1", "store-1", "room-101", domain.MethodCOD,
		[]domain.OrderItem{{ID: id + "-item-1", OrderID: id, SKUID: "sku-1", Quantity: 2, Price: 1500}},
		3000, 200, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, err)
	require.NoError(t, uow.Do(ctx, func(tx ports.TxContext) error {
		return tx.Orders().Create(ctx, order)
	}))
	return order
}

func TestUnitOfWork_CreateAndGetByID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	uow := NewUnitOfWork(db)
	order := seedOrder(t, uow, "order-1")

	retrieved, err := uow.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, retrieved.Status)
	assert.Equal(t, domain.PaymentPending, retrieved.PaymentStatus)
	assert.Equal(t, "buyer-1", retrieved.BuyerID)
	require.Len(t, retrieved.Items, 1)
	assert.Equal(t, "sku-1", retrieved.Items[0].SKUID)
	assert.Equal(t, int32(2), retrieved.Items[0].Quantity)
}

func TestUnitOfWork_ListByBuyerAndStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	uow := NewUnitOfWork(db)
	seedOrder(t, uow, "order-1")
	seedOrder(t, uow, "order-2")

	byBuyer, err := uow.ListByBuyer(context.Background(), "buyer-1")
	require.NoError(t, err)
	assert.Len(t, byBuyer, 2)

	byStore, err := uow.ListByStore(context.Background(), "store-1")
	require.NoError(t, err)
	assert.Len(t, byStore, 2)

	none, err := uow.ListByBuyer(context.Background(), "buyer-404")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUnitOfWork_RollbackLeavesNothing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	ctx := context.Background()
	uow := NewUnitOfWork(db)
	require.NoError(t, uow.SeedSKU(ctx, inventorydomain.SKU{ID: "sku-1", ProductID: "prod-1", Quantity: 5}))

	order, err := domain.NewOrder("order-1", "buyer-1", "store-1", "room-101", domain.MethodCOD,
		[]domain.OrderItem{{ID: "item-1", OrderID: "order-1", SKUID: "sku-1", Quantity: 1, Price: 100}},
		100, 0, time.Now().UTC())
	require.NoError(t, err)

	boom := errors.New("forced rollback")
	err = uow.Do(ctx, func(tx ports.TxContext) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		if _, err := tx.Ledger().Reserve(ctx, []inventoryports.Reservation{{SKUID: "sku-1", Quantity: 1}}); err != nil {
			return err
		}
		if err := tx.Outbox().Append(ctx, domain.NotificationEvent{Name: "OrderStatusChanged-Processing", OccurredAt: time.Now().UTC()}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = uow.GetByID(ctx, "order-1")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	outbox := notificationpostgres.NewStore(db)
	pending, err := outbox.FetchPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestLedger_NoOversellUnderConcurrentReservations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	ctx := context.Background()
	uow := NewUnitOfWork(db)
	require.NoError(t, uow.SeedProduct(ctx, inventorydomain.Product{ID: "prod-1", StoreID: "store-1", Name: "Kettle"}))
	require.NoError(t, uow.SeedSKU(ctx, inventorydomain.SKU{ID: "sku-1", ProductID: "prod-1", Quantity: 10}))

	const workers = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := uow.Do(ctx, func(tx ports.TxContext) error {
				_, err := tx.Ledger().Reserve(ctx, []inventoryports.Reservation{{SKUID: "sku-1", Quantity: 1}})
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

	assert.Equal(t, 10, committed, "the sum of committed decrements never exceeds the initial stock")

	sku, err := uow.GetSKU(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, int32(0), sku.Quantity)
	assert.True(t, sku.IsOutOfStock)
}

func TestOutboxStore_AppendFetchMarkSent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	ctx := context.Background()
	store := notificationpostgres.NewStore(db)
	require.NoError(t, store.Append(ctx,
		domain.NotificationEvent{Name: "OrderStatusChanged-Processing", Payload: map[string]string{"orderId": "order-1"}, RecipientIDs: []string{"buyer-1"}, OccurredAt: time.Now().UTC()},
		domain.NotificationEvent{Name: "ProductOutOfStock", Payload: map[string]string{"skuId": "sku-1"}, RecipientIDs: []string{"owner-1"}, OccurredAt: time.Now().UTC()},
	))

	pending, err := store.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "OrderStatusChanged-Processing", pending[0].Name)
	assert.Equal(t, []string{"buyer-1"}, pending[0].RecipientIDs)

	require.NoError(t, store.MarkSent(ctx, pending[0].ID))
	pending, err = store.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ProductOutOfStock", pending[0].Name)
}
