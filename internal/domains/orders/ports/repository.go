package ports

import (
	"context"
	"errors"

	inventorydomain "github.com/dormshop/go-order-api/internal/domains/inventory/domain"
	inventoryports "github.com/dormshop/go-order-api/internal/domains/inventory/ports"
	notificationports "github.com/dormshop/go-order-api/internal/domains/notifications/ports"
	"github.com/dormshop/go-order-api/internal/domains/orders/domain"
)

var (
	ErrNotFound   = errors.New("order not found")
	ErrRepository = errors.New("order repository failure")
)

// OrderTxRepository mutates orders inside a transactional scope.
// GetForUpdate must lock the order row so concurrent status changes on
// one order serialize: the loser reloads the already-updated status.
type OrderTxRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetForUpdate(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
}

// CatalogReader resolves SKU parents for event enrichment.
type CatalogReader interface {
	GetProduct(ctx context.Context, id string) (inventorydomain.Product, error)
}

// TxContext exposes every participant of one transaction. All writes made
// through it commit together or not at all.
type TxContext interface {
	Orders() OrderTxRepository
	Ledger() inventoryports.Ledger
	Catalog() CatalogReader
	Outbox() notificationports.OutboxAppender
}

// UnitOfWork runs fn inside one transaction. A non-nil error from fn
// rolls back every write made through the TxContext; nil commits them.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx TxContext) error) error
}

// Repository is the read side used by listings and dashboards; it takes
// no part in mutation.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error)
	ListByStore(ctx context.Context, storeID string) ([]*domain.Order, error)
}
