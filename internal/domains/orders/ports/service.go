package ports

import (
	"context"

	"github.com/dormshop/go-order-api/internal/domains/orders/domain"
)

// CheckoutItem is one requested line within a sub-order.
type CheckoutItem struct {
	SKUID    string
	Quantity int32
	Price    int64
}

// CheckoutSubOrder groups the items of one store; each sub-order becomes
// its own order aggregate.
type CheckoutSubOrder struct {
	StoreID     string
	Items       []CheckoutItem
	TotalPrice  int64
	ShippingFee int64
	VoucherID   string
}

// CreateOrderInput is the validated checkout payload.
type CreateOrderInput struct {
	BuyerID           string
	ShippingAddressID string
	PaymentMethod     domain.PaymentMethod
	Note              string
	SubOrders         []CheckoutSubOrder
	IdempotencyKey    string
}

// CheckoutResult reports the orders one checkout created, in sub-order order.
type CheckoutResult struct {
	OrderIDs []string
}

// UpdateOrderInput edits mutable order details and optionally requests a
// status change, which routes through the authoritative transition path.
type UpdateOrderInput struct {
	OrderID           string
	ActorID           string
	ShippingAddressID string
	Note              *string
	NewStatus         *domain.OrderStatus
	ShipperID         string
	CancelReason      string
}

// ChangeStatusInput requests one status transition.
type ChangeStatusInput struct {
	OrderID      string
	ActorID      string
	NewStatus    domain.OrderStatus
	ShipperID    string
	CancelReason string
}

// Service exposes the order fulfillment use cases to adapters.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CheckoutResult, error)
	UpdateOrder(ctx context.Context, input UpdateOrderInput) error
	ChangeOrderStatus(ctx context.Context, input ChangeStatusInput) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error)
	ListByStore(ctx context.Context, storeID string) ([]*domain.Order, error)
}
