package ports

import (
	"context"

	"github.com/dormshop/go-order-api/internal/domains/inventory/domain"
)

// Reservation asks the ledger to decrement one SKU by a quantity.
type Reservation struct {
	SKUID    string
	Quantity int32
}

// Ledger reserves stock for a batch of SKUs. The reservation is
// all-or-nothing: if any SKU has less available than requested, no SKU is
// decremented and domain.InsufficientStockError is returned. The returned
// slice holds the SKUs that just transitioned into out-of-stock.
//
// Implementations must perform the availability read and the decrement
// under the same per-SKU lock, and must take part in the surrounding
// transaction when one exists.
type Ledger interface {
	Reserve(ctx context.Context, batch []Reservation) ([]domain.SKU, error)
}
