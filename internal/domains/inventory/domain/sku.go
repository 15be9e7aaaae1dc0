package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity = errors.New("reservation quantity must be greater than zero")
	ErrUnknownSKU      = errors.New("sku not found")
)

// InsufficientStockError reports a reservation that exceeds a SKU's
// available quantity. The whole batch it belongs to must be discarded.
type InsufficientStockError struct {
	SKUID     string
	Available int32
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for sku %s: %d available", e.SKUID, e.Available)
}

// SKU is the sellable variant-level unit. It owns the available quantity
// and the out-of-stock flag; only ledger reservations may mutate either.
type SKU struct {
	ID           string
	ProductID    string
	Quantity     int32
	Price        int64
	IsOutOfStock bool
}

// Product derives its out-of-stock flag from its SKUs.
type Product struct {
	ID           string
	StoreID      string
	Name         string
	IsOutOfStock bool
}

// Reserve decrements the available quantity. It returns true when the SKU
// just transitioned into out-of-stock. Callers must hold whatever lock
// covers this SKU for the duration of the read-decide-write.
func (s *SKU) Reserve(quantity int32) (becameOutOfStock bool, err error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}
	if s.Quantity < quantity {
		return false, InsufficientStockError{SKUID: s.ID, Available: s.Quantity}
	}
	s.Quantity -= quantity
	if s.Quantity == 0 && !s.IsOutOfStock {
		s.IsOutOfStock = true
		return true, nil
	}
	return false, nil
}

// AllOutOfStock reports whether every SKU of one product is exhausted,
// which is when the product-level flag flips.
func AllOutOfStock(skus []SKU) bool {
	if len(skus) == 0 {
		return false
	}
	for _, s := range skus {
		if !s.IsOutOfStock {
			return false
		}
	}
	return true
}
