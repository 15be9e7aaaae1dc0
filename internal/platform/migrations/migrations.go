package migrations

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Run applies the schema for the bounded contexts. Intended to replace adapter-level automigrate.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&orderRecord{},
		&orderItemRecord{},
		&skuRecord{},
		&productRecord{},
		&outboxRecord{},
	)
}

// Order schema mirrors the orders Postgres adapter.
type orderRecord struct {
	ID                string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Status            string    `gorm:"column:status;type:varchar(32);index:idx_orders_store_status"`
	PaymentStatus     string    `gorm:"column:payment_status;type:varchar(16)"`
	PaymentMethod     string    `gorm:"column:payment_method;type:varchar(16)"`
	TotalPrice        int64     `gorm:"column:total_price"`
	ShippingFee       int64     `gorm:"column:shipping_fee"`
	Note              string    `gorm:"column:note;type:varchar(100)"`
	ShippingAddressID string    `gorm:"column:shipping_address_id"`
	BuyerID           string    `gorm:"column:buyer_id;index"`
	StoreID           string    `gorm:"column:store_id;index:idx_orders_store_status"`
	ShipperID         string    `gorm:"column:shipper_id;index"`
	VoucherID         string    `gorm:"column:voucher_id"`
	CancelReason      string    `gorm:"column:cancel_reason"`
	CreatedAt         time.Time `gorm:"column:created_at;index"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

// Order item schema mirrors the orders Postgres adapter.
type orderItemRecord struct {
	ID       string `gorm:"primaryKey;column:id;type:varchar(36)"`
	OrderID  string `gorm:"column:order_id;index"`
	SKUID    string `gorm:"column:sku_id;index"`
	Quantity int32  `gorm:"column:quantity"`
	Price    int64  `gorm:"column:price"`
}

func (orderItemRecord) TableName() string { return "order_items" }

// SKU schema mirrors the inventory ledger rows.
type skuRecord struct {
	ID           string `gorm:"primaryKey;column:id;type:varchar(36)"`
	ProductID    string `gorm:"column:product_id;index"`
	Quantity     int32  `gorm:"column:quantity"`
	Price        int64  `gorm:"column:price"`
	IsOutOfStock bool   `gorm:"column:is_out_of_stock;index"`
}

func (skuRecord) TableName() string { return "skus" }

// Product schema carries the derived out-of-stock flag.
type productRecord struct {
	ID           string `gorm:"primaryKey;column:id;type:varchar(36)"`
	StoreID      string `gorm:"column:store_id;index"`
	Name         string `gorm:"column:name"`
	IsOutOfStock bool   `gorm:"column:is_out_of_stock"`
}

func (productRecord) TableName() string { return "products" }

// Outbox schema mirrors the notifications Postgres adapter.
type outboxRecord struct {
	ID           int64          `gorm:"primaryKey;autoIncrement;column:id"`
	EventID      string         `gorm:"column:event_id;type:varchar(36);uniqueIndex"`
	Name         string         `gorm:"column:name;type:varchar(64);index"`
	Payload      []byte         `gorm:"column:payload;type:jsonb"`
	RecipientIDs pq.StringArray `gorm:"column:recipient_ids;type:text[]"`
	CreatedAt    time.Time      `gorm:"column:created_at;index"`
	SentAt       *time.Time     `gorm:"column:sent_at;index"`
}

func (outboxRecord) TableName() string { return "notification_outbox" }
