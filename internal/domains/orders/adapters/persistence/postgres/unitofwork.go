package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	inventorydomain "github.com/dormshop/go-order-api/internal/domains/inventory/domain"
	inventoryports "github.com/dormshop/go-order-api/internal/domains/inventory/ports"
	notificationpostgres "github.com/dormshop/go-order-api/internal/domains/notifications/adapters/persistence/postgres"
	notificationports "github.com/dormshop/go-order-api/internal/domains/notifications/ports"
	"github.com/dormshop/go-order-api/internal/domains/orders/domain"
	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

var (
	_ ports.UnitOfWork = (*UnitOfWork)(nil)
	_ ports.Repository = (*UnitOfWork)(nil)
)

// UnitOfWork runs order, inventory, and outbox writes inside one
// PostgreSQL transaction via GORM. A non-nil error from the scope rolls
// everything back; commit happens only when the scope returns nil.
type UnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork wires a PostgreSQL-backed unit of work. Caller manages
// the DB lifecycle.
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// orderRecord maps the order aggregate to a relational table.
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

// orderItemRecord maps one order line.
type orderItemRecord struct {
	ID       string `gorm:"primaryKey;column:id;type:varchar(36)"`
	OrderID  string `gorm:"column:order_id;index"`
	SKUID    string `gorm:"column:sku_id;index"`
	Quantity int32  `gorm:"column:quantity"`
	Price    int64  `gorm:"column:price"`
}

func (orderItemRecord) TableName() string { return "order_items" }

// skuRecord maps the inventory ledger entry.
type skuRecord struct {
	ID           string `gorm:"primaryKey;column:id;type:varchar(36)"`
	ProductID    string `gorm:"column:product_id;index"`
	Quantity     int32  `gorm:"column:quantity"`
	Price        int64  `gorm:"column:price"`
	IsOutOfStock bool   `gorm:"column:is_out_of_stock;index"`
}

func (skuRecord) TableName() string { return "skus" }

// productRecord carries the derived product-level out-of-stock flag.
type productRecord struct {
	ID           string `gorm:"primaryKey;column:id;type:varchar(36)"`
	StoreID      string `gorm:"column:store_id;index"`
	Name         string `gorm:"column:name"`
	IsOutOfStock bool   `gorm:"column:is_out_of_stock"`
}

func (productRecord) TableName() string { return "products" }

// Do executes fn inside one database transaction.
func (u *UnitOfWork) Do(ctx context.Context, fn func(tx ports.TxContext) error) error {
	if err := u.ensureDB(); err != nil {
		return err
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txContext{db: tx})
	})
}

// GetByID fetches an order with its items.
func (u *UnitOfWork) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := u.ensureDB(); err != nil {
		return nil, err
	}
	return loadOrder(u.db.WithContext(ctx), id, false)
}

// ListByBuyer returns the buyer's orders, newest first.
func (u *UnitOfWork) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	return u.list(ctx, "buyer_id = ?", buyerID)
}

// ListByStore returns a store's orders, newest first.
func (u *UnitOfWork) ListByStore(ctx context.Context, storeID string) ([]*domain.Order, error) {
	return u.list(ctx, "store_id = ?", storeID)
}

func (u *UnitOfWork) list(ctx context.Context, query string, arg any) ([]*domain.Order, error) {
	if err := u.ensureDB(); err != nil {
		return nil, err
	}
	var records []orderRecord
	if err := u.db.WithContext(ctx).Where(query, arg).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		items, err := loadItems(u.db.WithContext(ctx), records[i].ID)
		if err != nil {
			return nil, err
		}
		orders = append(orders, records[i].toDomain(items))
	}
	return orders, nil
}

func (u *UnitOfWork) ensureDB() error {
	if u == nil || u.db == nil {
		return errors.New("postgres order unit of work not configured")
	}
	return nil
}

// txContext adapts one open transaction to the transactional ports.
type txContext struct {
	db *gorm.DB
}

func (tx *txContext) Orders() ports.OrderTxRepository { return &txOrders{db: tx.db} }
func (tx *txContext) Ledger() inventoryports.Ledger   { return &txLedger{db: tx.db} }
func (tx *txContext) Catalog() ports.CatalogReader    { return &txCatalog{db: tx.db} }
func (tx *txContext) Outbox() notificationports.OutboxAppender {
	return notificationpostgres.NewStore(tx.db)
}

type txOrders struct {
	db *gorm.DB
}

func (r *txOrders) Create(ctx context.Context, order *domain.Order) error {
	record := toRecord(order)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}
	for _, item := range order.Items {
		itemRecord := orderItemRecord{
			ID:       item.ID,
			OrderID:  item.OrderID,
			SKUID:    item.SKUID,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
		if err := r.db.WithContext(ctx).Create(&itemRecord).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetForUpdate locks the order row for the rest of the transaction so
// concurrent status changes on one order serialize.
func (r *txOrders) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return loadOrder(r.db.WithContext(ctx), id, true)
}

func (r *txOrders) Update(ctx context.Context, order *domain.Order) error {
	record := toRecord(order)
	result := r.db.WithContext(ctx).
		Model(&orderRecord{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":              record.Status,
			"payment_status":      record.PaymentStatus,
			"note":                record.Note,
			"shipping_address_id": record.ShippingAddressID,
			"shipper_id":          record.ShipperID,
			"cancel_reason":       record.CancelReason,
			"updated_at":          record.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

type txLedger struct {
	db *gorm.DB
}

// Reserve locks each SKU row, verifies the whole batch, then decrements.
// Rows are locked in ID order so two overlapping batches cannot
// deadlock. Any failure aborts the surrounding transaction, which undoes
// every decrement already written.
func (l *txLedger) Reserve(ctx context.Context, batch []inventoryports.Reservation) ([]inventorydomain.SKU, error) {
	sorted := append([]inventoryports.Reservation{}, batch...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SKUID < sorted[j].SKUID })

	locked := make([]skuRecord, len(sorted))
	for i, reservation := range sorted {
		var record skuRecord
		err := l.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&record, "id = ?", reservation.SKUID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, inventorydomain.ErrUnknownSKU
			}
			return nil, err
		}
		if record.Quantity < reservation.Quantity {
			return nil, inventorydomain.InsufficientStockError{SKUID: record.ID, Available: record.Quantity}
		}
		locked[i] = record
	}

	drained := make([]inventorydomain.SKU, 0)
	for i, reservation := range sorted {
		sku := inventorydomain.SKU{
			ID:           locked[i].ID,
			ProductID:    locked[i].ProductID,
			Quantity:     locked[i].Quantity,
			Price:        locked[i].Price,
			IsOutOfStock: locked[i].IsOutOfStock,
		}
		becameOOS, err := sku.Reserve(reservation.Quantity)
		if err != nil {
			return nil, err
		}
		err = l.db.WithContext(ctx).
			Model(&skuRecord{}).
			Where("id = ?", sku.ID).
			Updates(map[string]any{
				"quantity":        sku.Quantity,
				"is_out_of_stock": sku.IsOutOfStock,
			}).Error
		if err != nil {
			return nil, err
		}
		if becameOOS {
			drained = append(drained, sku)
			if err := l.flagProductIfExhausted(ctx, sku.ProductID); err != nil {
				return nil, err
			}
		}
	}
	return drained, nil
}

func (l *txLedger) flagProductIfExhausted(ctx context.Context, productID string) error {
	var inStock int64
	err := l.db.WithContext(ctx).
		Model(&skuRecord{}).
		Where("product_id = ? AND is_out_of_stock = ?", productID, false).
		Count(&inStock).Error
	if err != nil {
		return err
	}
	if inStock > 0 {
		return nil
	}
	return l.db.WithContext(ctx).
		Model(&productRecord{}).
		Where("id = ?", productID).
		Update("is_out_of_stock", true).Error
}

type txCatalog struct {
	db *gorm.DB
}

func (c *txCatalog) GetProduct(ctx context.Context, id string) (inventorydomain.Product, error) {
	var record productRecord
	if err := c.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventorydomain.Product{}, ports.ErrNotFound
		}
		return inventorydomain.Product{}, err
	}
	return inventorydomain.Product{
		ID:           record.ID,
		StoreID:      record.StoreID,
		Name:         record.Name,
		IsOutOfStock: record.IsOutOfStock,
	}, nil
}

func loadOrder(db *gorm.DB, id string, forUpdate bool) (*domain.Order, error) {
	query := db
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var record orderRecord
	if err := query.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	items, err := loadItems(db, id)
	if err != nil {
		return nil, err
	}
	return record.toDomain(items), nil
}

func loadItems(db *gorm.DB, orderID string) ([]domain.OrderItem, error) {
	var records []orderItemRecord
	if err := db.Where("order_id = ?", orderID).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	items := make([]domain.OrderItem, 0, len(records))
	for _, record := range records {
		items = append(items, domain.OrderItem{
			ID:       record.ID,
			OrderID:  record.OrderID,
			SKUID:    record.SKUID,
			Quantity: record.Quantity,
			Price:    record.Price,
		})
	}
	return items, nil
}

func toRecord(order *domain.Order) orderRecord {
	return orderRecord{
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
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}

func (r orderRecord) toDomain(items []domain.OrderItem) *domain.Order {
	status, err := domain.ParseOrderStatus(r.Status)
	if err != nil {
		status = domain.StatusNone
	}
	return &domain.Order{
		ID:                r.ID,
		Status:            status,
		PaymentStatus:     domain.PaymentStatus(r.PaymentStatus),
		PaymentMethod:     domain.PaymentMethod(r.PaymentMethod),
		TotalPrice:        r.TotalPrice,
		ShippingFee:       r.ShippingFee,
		Note:              r.Note,
		ShippingAddressID: r.ShippingAddressID,
		BuyerID:           r.BuyerID,
		StoreID:           r.StoreID,
		ShipperID:         r.ShipperID,
		VoucherID:         r.VoucherID,
		CancelReason:      r.CancelReason,
		Items:             items,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// SeedSKU inserts or replaces a SKU row, used by integration tests.
func (u *UnitOfWork) SeedSKU(ctx context.Context, sku inventorydomain.SKU) error {
	if err := u.ensureDB(); err != nil {
		return err
	}
	record := skuRecord{
		ID:           sku.ID,
		ProductID:    sku.ProductID,
		Quantity:     sku.Quantity,
		Price:        sku.Price,
		IsOutOfStock: sku.IsOutOfStock,
	}
	return u.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"product_id", "quantity", "price", "is_out_of_stock"}),
		}).Create(&record).Error
}

// GetSKU reads one SKU row outside any transaction, used by integration tests.
func (u *UnitOfWork) GetSKU(ctx context.Context, id string) (inventorydomain.SKU, error) {
	if err := u.ensureDB(); err != nil {
		return inventorydomain.SKU{}, err
	}
	var record skuRecord
	if err := u.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventorydomain.SKU{}, inventorydomain.ErrUnknownSKU
		}
		return inventorydomain.SKU{}, fmt.Errorf("%w: %w", ports.ErrRepository, err)
	}
	return inventorydomain.SKU{
		ID:           record.ID,
		ProductID:    record.ProductID,
		Quantity:     record.Quantity,
		Price:        record.Price,
		IsOutOfStock: record.IsOutOfStock,
	}, nil
}

// SeedProduct inserts or replaces a product row, used by integration tests.
func (u *UnitOfWork) SeedProduct(ctx context.Context, product inventorydomain.Product) error {
	if err := u.ensureDB(); err != nil {
		return err
	}
	record := productRecord{
		ID:           product.ID,
		StoreID:      product.StoreID,
		Name:         product.Name,
		IsOutOfStock: product.IsOutOfStock,
	}
	return u.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"store_id", "name", "is_out_of_stock"}),
		}).Create(&record).Error
}
