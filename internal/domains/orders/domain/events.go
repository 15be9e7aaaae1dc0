package domain

import "time"

// NotificationEvent is the fire-and-forget contract the fulfillment core
// emits towards the notification surface. Payload must marshal to stable
// JSON field names.
type NotificationEvent struct {
	Name         string
	Payload      any
	RecipientIDs []string
	OccurredAt   time.Time
}

// OrderStatusChangedName builds the per-status event name, e.g.
// "OrderStatusChanged-Processing".
func OrderStatusChangedName(status OrderStatus) string {
	return "OrderStatusChanged-" + status.String()
}

// Event names without a per-status suffix.
const (
	EventProductOutOfStock  = "ProductOutOfStock"
	EventOrderProcessFailed = "OrderProcessFailed"
)

// OrderStatusChanged is emitted after a status transition commits.
type OrderStatusChanged struct {
	OrderID       string        `json:"orderId"`
	StoreID       string        `json:"storeId"`
	StoreName     string        `json:"storeName"`
	NewStatus     OrderStatus   `json:"newStatus"`
	OldStatus     OrderStatus   `json:"oldStatus"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// ProductOutOfStock is emitted once per SKU that a committed reservation
// drained to zero.
type ProductOutOfStock struct {
	SKUID       string `json:"skuId"`
	ProductName string `json:"productName"`
	StoreName   string `json:"storeName"`
	StoreID     string `json:"storeId"`
}

// OrderProcessFailed tells the store owner a status change rolled back.
type OrderProcessFailed struct {
	OrderID      string `json:"orderId"`
	ErrorMessage string `json:"errorMessage"`
}
