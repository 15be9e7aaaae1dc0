package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReserve_DecrementsAndFlags(t *testing.T) {
	sku := SKU{ID: "sku-1", ProductID: "prod-1", Quantity: 5}

	became, err := sku.Reserve(2)
	require.NoError(t, err)
	require.False(t, became)
	require.Equal(t, int32(3), sku.Quantity)
	require.False(t, sku.IsOutOfStock)

	became, err = sku.Reserve(3)
	require.NoError(t, err)
	require.True(t, became)
	require.Equal(t, int32(0), sku.Quantity)
	require.True(t, sku.IsOutOfStock)
}

func TestReserve_InsufficientStock(t *testing.T) {
	sku := SKU{ID: "sku-1", ProductID: "prod-1", Quantity: 3}

	_, err := sku.Reserve(5)
	var ins InsufficientStockError
	require.ErrorAs(t, err, &ins)
	require.Equal(t, "sku-1", ins.SKUID)
	require.Equal(t, int32(3), ins.Available)
	require.Equal(t, int32(3), sku.Quantity, "a rejected reservation must not decrement")
}

func TestReserve_InvalidQuantity(t *testing.T) {
	sku := SKU{ID: "sku-1", Quantity: 3}

	_, err := sku.Reserve(0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = sku.Reserve(-1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAllOutOfStock(t *testing.T) {
	require.False(t, AllOutOfStock(nil))
	require.False(t, AllOutOfStock([]SKU{{IsOutOfStock: true}, {IsOutOfStock: false}}))
	require.True(t, AllOutOfStock([]SKU{{IsOutOfStock: true}, {IsOutOfStock: true}}))
}
