package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewOrder_Validation(t *testing.T) {
	now := time.Now()
	item := OrderItem{ID: "item-1", OrderID: "order-1", SKUID: "sku-1", Quantity: 1, Price: 100}

	_, err := NewOrder("order-1", "buyer-1", "store-1", "room-1", MethodCOD, nil, 0, 0, now)
	require.ErrorIs(t, err, ErrEmptyItems)

	bad := item
	bad.Quantity = 0
	_, err = NewOrder("order-1", "buyer-1", "store-1", "room-1", MethodCOD, []OrderItem{bad}, 100, 0, now)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	bad = item
	bad.Price = -1
	_, err = NewOrder("order-1", "buyer-1", "store-1", "room-1", MethodCOD, []OrderItem{bad}, 100, 0, now)
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = NewOrder("order-1", "buyer-1", "store-1", "room-1", MethodCOD, []OrderItem{item}, -5, 0, now)
	require.ErrorIs(t, err, ErrInvalidTotal)

	order, err := NewOrder("order-1", "buyer-1", "store-1", "room-1", MethodCOD, []OrderItem{item}, 100, 20, now)
	require.NoError(t, err)
	require.Equal(t, StatusPending, order.Status)
	require.Equal(t, PaymentPending, order.PaymentStatus)
}

func TestInitialPaymentStatus(t *testing.T) {
	require.Equal(t, PaymentPending, InitialPaymentStatus(MethodCOD))
	require.Equal(t, PaymentPaid, InitialPaymentStatus(MethodBankTransfer))
}

func TestUpdateDetails_OnlyWhilePending(t *testing.T) {
	now := time.Now()
	item := OrderItem{ID: "item-1", OrderID: "order-1", SKUID: "sku-1", Quantity: 1, Price: 100}
	order, err := NewOrder("order-1", "buyer-1", "store-1", "room-1", MethodCOD, []OrderItem{item}, 100, 0, now)
	require.NoError(t, err)

	require.NoError(t, order.UpdateDetails("room-2", "leave at the desk", now.Add(time.Minute)))
	require.Equal(t, "room-2", order.ShippingAddressID)
	require.Equal(t, "leave at the desk", order.Note)

	require.ErrorIs(t, order.UpdateDetails("", strings.Repeat("x", 101), now), ErrNoteTooLong)

	order.Status = StatusProcessing
	require.ErrorIs(t, order.UpdateDetails("room-3", "", now), ErrOrderLocked)
	require.Equal(t, "room-2", order.ShippingAddressID)
}

func TestParseOrderStatus(t *testing.T) {
	for _, status := range allStatuses {
		parsed, err := ParseOrderStatus(status.String())
		require.NoError(t, err)
		require.Equal(t, status, parsed)
	}
	_, err := ParseOrderStatus("Assigned")
	require.Error(t, err)
}
