package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	inventorydomain "github.com/dormshop/go-order-api/internal/domains/inventory/domain"
	inventoryports "github.com/dormshop/go-order-api/internal/domains/inventory/ports"
	notificationports "github.com/dormshop/go-order-api/internal/domains/notifications/ports"
	"github.com/dormshop/go-order-api/internal/domains/orders/domain"
	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

var (
	_ ports.UnitOfWork              = (*Store)(nil)
	_ ports.Repository              = (*Store)(nil)
	_ notificationports.OutboxStore = (*Store)(nil)
)

// Store holds orders, inventory, and the outbox in memory behind one
// mutex. Transactions stage their writes and publish them only on
// success, so a failing scope leaves nothing behind. The single mutex
// trivially serializes per-order and per-SKU contention.
type Store struct {
	mu           sync.Mutex
	orders       map[string]*domain.Order
	skus         map[string]*inventorydomain.SKU
	products     map[string]*inventorydomain.Product
	outbox       []notificationports.Record
	nextOutboxID int64
}

// NewStore constructs an empty in-memory store for development and tests.
func NewStore() *Store {
	return &Store{
		orders:   map[string]*domain.Order{},
		skus:     map[string]*inventorydomain.SKU{},
		products: map[string]*inventorydomain.Product{},
	}
}

// SeedProduct registers a product for catalog lookups.
func (s *Store) SeedProduct(product inventorydomain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := product
	s.products[product.ID] = &clone
}

// SeedSKU registers a SKU with its starting quantity.
func (s *Store) SeedSKU(sku inventorydomain.SKU) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := sku
	s.skus[sku.ID] = &clone
}

// SeedOrder places an order directly into the store, bypassing checkout.
func (s *Store) SeedOrder(order *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := cloneOrder(order)
	s.orders[order.ID] = clone
}

// SKU returns a snapshot of one SKU, for assertions.
func (s *Store) SKU(id string) (inventorydomain.SKU, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sku, ok := s.skus[id]
	if !ok {
		return inventorydomain.SKU{}, false
	}
	return *sku, true
}

// Product returns a snapshot of one product, for assertions.
func (s *Store) Product(id string) (inventorydomain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[id]
	if !ok {
		return inventorydomain.Product{}, false
	}
	return *product, true
}

// Do runs fn inside a staged transaction under the store mutex.
func (s *Store) Do(_ context.Context, fn func(tx ports.TxContext) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &txContext{
		store:         s,
		stagedOrders:  map[string]*domain.Order{},
		stagedSKUs:    map[string]*inventorydomain.SKU{},
		stagedFlagged: map[string]bool{},
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// GetByID fetches an order snapshot by identifier.
func (s *Store) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cloneOrder(order), nil
}

// ListByBuyer returns the buyer's orders, newest first.
func (s *Store) ListByBuyer(_ context.Context, buyerID string) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listWhere(func(o *domain.Order) bool { return o.BuyerID == buyerID }), nil
}

// ListByStore returns the store's orders, newest first.
func (s *Store) ListByStore(_ context.Context, storeID string) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listWhere(func(o *domain.Order) bool { return o.StoreID == storeID }), nil
}

func (s *Store) listWhere(match func(*domain.Order) bool) []*domain.Order {
	list := make([]*domain.Order, 0)
	for _, order := range s.orders {
		if match(order) {
			list = append(list, cloneOrder(order))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

// Append stores events outside any transaction, used for failure reports.
func (s *Store) Append(_ context.Context, events ...domain.NotificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(events)
}

func (s *Store) appendLocked(events []domain.NotificationEvent) error {
	for _, event := range events {
		payload, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}
		s.nextOutboxID++
		s.outbox = append(s.outbox, notificationports.Record{
			ID:           s.nextOutboxID,
			EventID:      uuid.NewString(),
			Name:         event.Name,
			Payload:      payload,
			RecipientIDs: append([]string{}, event.RecipientIDs...),
			CreatedAt:    event.OccurredAt,
		})
	}
	return nil
}

// FetchPending returns unsent records in insertion order.
func (s *Store) FetchPending(_ context.Context, limit int) ([]notificationports.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := make([]notificationports.Record, 0)
	for _, record := range s.outbox {
		if record.SentAt != nil {
			continue
		}
		pending = append(pending, record)
		if limit > 0 && len(pending) == limit {
			break
		}
	}
	return pending, nil
}

// MarkSent stamps a record as delivered.
func (s *Store) MarkSent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			now := time.Now()
			s.outbox[i].SentAt = &now
			return nil
		}
	}
	return nil
}

// txContext stages writes until commit. All reads see staged state first
// so a scope observes its own writes.
type txContext struct {
	store         *Store
	stagedOrders  map[string]*domain.Order
	stagedSKUs    map[string]*inventorydomain.SKU
	stagedFlagged map[string]bool
	stagedEvents  []domain.NotificationEvent
}

func (tx *txContext) commit() {
	for id, order := range tx.stagedOrders {
		tx.store.orders[id] = order
	}
	for id, sku := range tx.stagedSKUs {
		tx.store.skus[id] = sku
	}
	for id, flagged := range tx.stagedFlagged {
		if product, ok := tx.store.products[id]; ok {
			product.IsOutOfStock = flagged
		}
	}
	_ = tx.store.appendLocked(tx.stagedEvents)
}

func (tx *txContext) Orders() ports.OrderTxRepository      { return (*txOrders)(tx) }
func (tx *txContext) Ledger() inventoryports.Ledger        { return (*txLedger)(tx) }
func (tx *txContext) Catalog() ports.CatalogReader         { return (*txCatalog)(tx) }
func (tx *txContext) Outbox() notificationports.OutboxAppender { return (*txOutbox)(tx) }

type txOrders txContext

func (o *txOrders) Create(_ context.Context, order *domain.Order) error {
	o.stagedOrders[order.ID] = cloneOrder(order)
	return nil
}

func (o *txOrders) GetForUpdate(_ context.Context, id string) (*domain.Order, error) {
	if order, ok := o.stagedOrders[id]; ok {
		return cloneOrder(order), nil
	}
	order, ok := o.store.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (o *txOrders) Update(_ context.Context, order *domain.Order) error {
	if _, staged := o.stagedOrders[order.ID]; !staged {
		if _, ok := o.store.orders[order.ID]; !ok {
			return ports.ErrNotFound
		}
	}
	o.stagedOrders[order.ID] = cloneOrder(order)
	return nil
}

type txLedger txContext

func (l *txLedger) Reserve(_ context.Context, batch []inventoryports.Reservation) ([]inventorydomain.SKU, error) {
	// Validate the whole batch before touching anything so a failure
	// leaves no partial decrement behind.
	staged := make([]*inventorydomain.SKU, len(batch))
	for i, reservation := range batch {
		sku, err := l.skuForUpdate(reservation.SKUID)
		if err != nil {
			return nil, err
		}
		if sku.Quantity < reservation.Quantity {
			return nil, inventorydomain.InsufficientStockError{SKUID: sku.ID, Available: sku.Quantity}
		}
		staged[i] = sku
	}
	drained := make([]inventorydomain.SKU, 0)
	for i, reservation := range batch {
		becameOOS, err := staged[i].Reserve(reservation.Quantity)
		if err != nil {
			return nil, err
		}
		if becameOOS {
			drained = append(drained, *staged[i])
			if l.productExhausted(staged[i].ProductID) {
				l.stagedFlagged[staged[i].ProductID] = true
			}
		}
	}
	return drained, nil
}

func (l *txLedger) skuForUpdate(id string) (*inventorydomain.SKU, error) {
	if sku, ok := l.stagedSKUs[id]; ok {
		return sku, nil
	}
	sku, ok := l.store.skus[id]
	if !ok {
		return nil, inventorydomain.ErrUnknownSKU
	}
	clone := *sku
	l.stagedSKUs[id] = &clone
	return &clone, nil
}

func (l *txLedger) productExhausted(productID string) bool {
	skus := make([]inventorydomain.SKU, 0)
	for id, sku := range l.store.skus {
		effective := *sku
		if staged, ok := l.stagedSKUs[id]; ok {
			effective = *staged
		}
		if effective.ProductID == productID {
			skus = append(skus, effective)
		}
	}
	return inventorydomain.AllOutOfStock(skus)
}

type txCatalog txContext

func (c *txCatalog) GetProduct(_ context.Context, id string) (inventorydomain.Product, error) {
	product, ok := c.store.products[id]
	if !ok {
		return inventorydomain.Product{}, ports.ErrNotFound
	}
	return *product, nil
}

type txOutbox txContext

func (o *txOutbox) Append(_ context.Context, events ...domain.NotificationEvent) error {
	o.stagedEvents = append(o.stagedEvents, events...)
	return nil
}

func cloneOrder(order *domain.Order) *domain.Order {
	clone := *order
	clone.Items = append([]domain.OrderItem{}, order.Items...)
	return &clone
}
