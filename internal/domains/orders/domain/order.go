package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// OrderStatus enumerates order progression. The member names are part of
// the wire contract and must not change.
type OrderStatus int

const (
	StatusNone OrderStatus = iota
	StatusPending
	StatusProcessing
	StatusShipped
	StatusDelivered
	StatusCustomerNotAvailable
	StatusCancelled
	StatusReported
)

var orderStatusNames = map[OrderStatus]string{
	StatusNone:                 "None",
	StatusPending:              "Pending",
	StatusProcessing:           "Processing",
	StatusShipped:              "Shipped",
	StatusDelivered:            "Delivered",
	StatusCustomerNotAvailable: "CustomerNotAvailable",
	StatusCancelled:            "Cancelled",
	StatusReported:             "Reported",
}

func (s OrderStatus) String() string {
	if name, ok := orderStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("OrderStatus(%d)", int(s))
}

// IsTerminal reports whether no further transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	name, ok := orderStatusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown order status %d", int(s))
	}
	return []byte(`"` + name + `"`), nil
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	parsed, err := ParseOrderStatus(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseOrderStatus resolves a wire name back to its status value.
func ParseOrderStatus(name string) (OrderStatus, error) {
	for status, n := range orderStatusNames {
		if n == name {
			return status, nil
		}
	}
	return StatusNone, fmt.Errorf("unknown order status %q", name)
}

// PaymentStatus tracks money state alongside the order status.
type PaymentStatus string

const (
	PaymentNone     PaymentStatus = "None"
	PaymentPending  PaymentStatus = "Pending"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentFailed   PaymentStatus = "Failed"
	PaymentRefunded PaymentStatus = "Refunded"
)

// PaymentMethod selects how the buyer pays at checkout.
type PaymentMethod string

const (
	MethodCOD          PaymentMethod = "COD"
	MethodBankTransfer PaymentMethod = "BankTransfer"
)

// InitialPaymentStatus derives the payment status a fresh order starts in.
// Cash on delivery stays Pending until the order is delivered; anything
// else was settled up front.
func InitialPaymentStatus(method PaymentMethod) PaymentStatus {
	if method == MethodCOD {
		return PaymentPending
	}
	return PaymentPaid
}

const maxNoteLength = 100

var (
	ErrEmptyItems          = errors.New("order must contain at least one item")
	ErrInvalidQuantity     = errors.New("item quantity must be greater than zero")
	ErrInvalidPrice        = errors.New("item price must not be negative")
	ErrInvalidTotal        = errors.New("total price must not be negative")
	ErrNoteTooLong         = errors.New("note must not exceed 100 characters")
	ErrMissingShipper      = errors.New("shipper is required when shipping an order")
	ErrMissingCancelReason = errors.New("cancel reason is required when cancelling an order")
	ErrOrderLocked         = errors.New("address and note can only change while the order is pending")
)

// OrderItem is one line of an order. Items are created once at checkout
// and immutable afterwards.
type OrderItem struct {
	ID       string
	OrderID  string
	SKUID    string
	Quantity int32
	Price    int64
}

// Order is one store-scoped purchase plus its line items. Sibling orders
// from one checkout share buyer and payment method. Orders are never
// physically deleted.
type Order struct {
	ID                string
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	PaymentMethod     PaymentMethod
	TotalPrice        int64
	ShippingFee       int64
	Note              string
	ShippingAddressID string
	BuyerID           string
	StoreID           string
	ShipperID         string
	VoucherID         string
	CancelReason      string
	Items             []OrderItem
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewOrder validates and constructs a pending order for one store.
func NewOrder(id, buyerID, storeID, addressID string, method PaymentMethod, items []OrderItem, totalPrice, shippingFee int64, now time.Time) (*Order, error) {
	order := &Order{
		ID:                id,
		Status:            StatusPending,
		PaymentStatus:     InitialPaymentStatus(method),
		PaymentMethod:     method,
		TotalPrice:        totalPrice,
		ShippingFee:       shippingFee,
		ShippingAddressID: addressID,
		BuyerID:           buyerID,
		StoreID:           storeID,
		Items:             items,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate enforces invariants on the aggregate.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if item.Price < 0 {
			return ErrInvalidPrice
		}
	}
	if o.TotalPrice < 0 {
		return ErrInvalidTotal
	}
	if len(o.Note) > maxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

// UpdateDetails edits the shipping address and note. Both are frozen the
// moment the order leaves Pending.
func (o *Order) UpdateDetails(addressID, note string, now time.Time) error {
	if o.Status != StatusPending {
		return ErrOrderLocked
	}
	if len(note) > maxNoteLength {
		return ErrNoteTooLong
	}
	if addressID != "" {
		o.ShippingAddressID = addressID
	}
	o.Note = note
	o.UpdatedAt = now
	return nil
}
