package mapper

import (
	"time"

	ordersdomain "github.com/dormshop/go-order-api/internal/domains/orders/domain"
	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

// CheckoutRequest is the transport-layer checkout payload.
type CheckoutRequest struct {
	BuyerID           string            `json:"buyerId"`
	ShippingAddressID string            `json:"shippingAddressId"`
	PaymentMethod     string            `json:"paymentMethod"`
	Note              string            `json:"note"`
	SubOrders         []SubOrderRequest `json:"subOrders"`
}

// SubOrderRequest groups one store's items within a checkout.
type SubOrderRequest struct {
	StoreID     string        `json:"storeId"`
	Items       []ItemRequest `json:"items"`
	TotalPrice  int64         `json:"totalPrice"`
	ShippingFee int64         `json:"shippingFee"`
	VoucherID   string        `json:"voucherId,omitempty"`
}

// ItemRequest is one requested order line.
type ItemRequest struct {
	SKUID    string `json:"skuId"`
	Quantity int32  `json:"quantity"`
	Price    int64  `json:"price"`
}

// UpdateOrderRequest edits order details and optionally the status.
type UpdateOrderRequest struct {
	ShippingAddressID string  `json:"shippingAddressId,omitempty"`
	Note              *string `json:"note,omitempty"`
	Status            *string `json:"status,omitempty"`
	ShipperID         string  `json:"shipperId,omitempty"`
	CancelReason      string  `json:"cancelReason,omitempty"`
}

// ChangeStatusRequest requests one status transition.
type ChangeStatusRequest struct {
	Status       string `json:"status"`
	ShipperID    string `json:"shipperId,omitempty"`
	CancelReason string `json:"cancelReason,omitempty"`
}

// CheckoutResponse reports the orders one checkout created.
type CheckoutResponse struct {
	OrderIDs []string `json:"orderIds"`
}

// OrderItemResponse is the transport shape of one order line.
type OrderItemResponse struct {
	ID       string `json:"id"`
	SKUID    string `json:"skuId"`
	Quantity int32  `json:"quantity"`
	Price    int64  `json:"price"`
}

// OrderResponse is the transport shape of one order aggregate.
type OrderResponse struct {
	ID                string              `json:"id"`
	Status            string              `json:"status"`
	PaymentStatus     string              `json:"paymentStatus"`
	PaymentMethod     string              `json:"paymentMethod"`
	TotalPrice        int64               `json:"totalPrice"`
	ShippingFee       int64               `json:"shippingFee"`
	Note              string              `json:"note,omitempty"`
	ShippingAddressID string              `json:"shippingAddressId"`
	BuyerID           string              `json:"buyerId"`
	StoreID           string              `json:"storeId"`
	ShipperID         string              `json:"shipperId,omitempty"`
	VoucherID         string              `json:"voucherId,omitempty"`
	CancelReason      string              `json:"cancelReason,omitempty"`
	Items             []OrderItemResponse `json:"items"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// ToCreateOrderInput converts the transport checkout into the application input.
func ToCreateOrderInput(request CheckoutRequest, idempotencyKey string) ports.CreateOrderInput {
	subOrders := make([]ports.CheckoutSubOrder, 0, len(request.SubOrders))
	for _, sub := range request.SubOrders {
		items := make([]ports.CheckoutItem, 0, len(sub.Items))
		for _, item := range sub.Items {
			items = append(items, ports.CheckoutItem{SKUID: item.SKUID, Quantity: item.Quantity, Price: item.Price})
		}
		subOrders = append(subOrders, ports.CheckoutSubOrder{
			StoreID:     sub.StoreID,
			Items:       items,
			TotalPrice:  sub.TotalPrice,
			ShippingFee: sub.ShippingFee,
			VoucherID:   sub.VoucherID,
		})
	}
	return ports.CreateOrderInput{
		BuyerID:           request.BuyerID,
		ShippingAddressID: request.ShippingAddressID,
		PaymentMethod:     ordersdomain.PaymentMethod(request.PaymentMethod),
		Note:              request.Note,
		SubOrders:         subOrders,
		IdempotencyKey:    idempotencyKey,
	}
}

// FromDomainOrder converts a domain order to the transport representation.
func FromDomainOrder(order *ordersdomain.Order) OrderResponse {
	if order == nil {
		return OrderResponse{}
	}
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ID:       item.ID,
			SKUID:    item.SKUID,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	return OrderResponse{
		ID:                order.ID,
		Status:            order.Status.String(),
		PaymentStatus:     string(order.PaymentStatus),
		PaymentMethod:     string(order.PaymentMethod),
		TotalPrice:        order.TotalPrice,
		ShippingFee:       order.ShippingFee,
		Note:              order.Note,
		ShippingAddressID: order.ShippingAddressID,
		BuyerID:           order.BuyerID,
		StoreID:           order.StoreID,
		ShipperID:         order.ShipperID,
		VoucherID:         order.VoucherID,
		CancelReason:      order.CancelReason,
		Items:             items,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}

// FromDomainOrderList converts a list of orders.
func FromDomainOrderList(orders []*ordersdomain.Order) []OrderResponse {
	list := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		list = append(list, FromDomainOrder(order))
	}
	return list
}
