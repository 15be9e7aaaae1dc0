package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

type normalizedCheckout struct {
	BuyerID           string               `json:"buyerId"`
	ShippingAddressID string               `json:"shippingAddressId"`
	PaymentMethod     string               `json:"paymentMethod"`
	Note              string               `json:"note"`
	SubOrders         []normalizedSubOrder `json:"subOrders"`
}

type normalizedSubOrder struct {
	StoreID     string           `json:"storeId"`
	Items       []normalizedItem `json:"items"`
	TotalPrice  int64            `json:"totalPrice"`
	ShippingFee int64            `json:"shippingFee"`
	VoucherID   string           `json:"voucherId,omitempty"`
}

type normalizedItem struct {
	SKUID    string `json:"skuId"`
	Quantity int32  `json:"quantity"`
	Price    int64  `json:"price"`
}

// FingerprintCheckout builds a deterministic hash of the checkout payload
// (excluding the idempotency key) so a reused key with a different payload
// can be rejected.
func FingerprintCheckout(input ports.CreateOrderInput) (string, error) {
	normalized := normalizedCheckout{
		BuyerID:           input.BuyerID,
		ShippingAddressID: input.ShippingAddressID,
		PaymentMethod:     string(input.PaymentMethod),
		Note:              input.Note,
		SubOrders:         make([]normalizedSubOrder, 0, len(input.SubOrders)),
	}
	for _, sub := range input.SubOrders {
		items := make([]normalizedItem, 0, len(sub.Items))
		for _, item := range sub.Items {
			items = append(items, normalizedItem{SKUID: item.SKUID, Quantity: item.Quantity, Price: item.Price})
		}
		normalized.SubOrders = append(normalized.SubOrders, normalizedSubOrder{
			StoreID:     sub.StoreID,
			Items:       items,
			TotalPrice:  sub.TotalPrice,
			ShippingFee: sub.ShippingFee,
			VoucherID:   sub.VoucherID,
		})
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
