package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	inventoryports "github.com/dormshop/go-order-api/internal/domains/inventory/ports"
	notificationports "github.com/dormshop/go-order-api/internal/domains/notifications/ports"
	"github.com/dormshop/go-order-api/internal/domains/orders/domain"
	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

// Directories bundles the read-mostly collaborator lookups the
// fulfillment core consumes.
type Directories struct {
	Users    ports.UserDirectory
	Stores   ports.StoreDirectory
	Shippers ports.ShipperDirectory
	Rooms    ports.RoomDirectory
	Carts    ports.CartGateway
}

// Service orchestrates the order fulfillment use cases: checkout,
// detail edits, and the authoritative status transition path.
type Service struct {
	uow         ports.UnitOfWork
	reads       ports.Repository
	dirs        Directories
	outbox      notificationports.OutboxAppender
	idempotency ports.IdempotencyStore
	newID       func() string
	now         func() time.Time
}

type Option func(*Service)

// WithIdempotencyStore enables checkout replay protection.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) {
		s.idempotency = store
	}
}

// WithIDGenerator overrides identifier generation, mainly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewService wires the fulfillment service with its dependencies. The
// outbox appender is used for post-rollback failure reports; in-scope
// events go through the transactional outbox instead.
func NewService(uow ports.UnitOfWork, reads ports.Repository, dirs Directories, outbox notificationports.OutboxAppender, opts ...Option) *Service {
	s := &Service{
		uow:    uow,
		reads:  reads,
		dirs:   dirs,
		outbox: outbox,
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateOrder validates the checkout payload and creates one pending
// order per referenced store as a single atomic batch. On success the
// purchased SKUs are removed from the buyer's cart; a cleanup failure is
// returned alongside the (already committed) result rather than hidden.
func (s *Service) CreateOrder(ctx context.Context, input ports.CreateOrderInput) (*ports.CheckoutResult, error) {
	if err := validateCheckout(input); err != nil {
		return nil, err
	}

	var fingerprint string
	if s.idempotency != nil && input.IdempotencyKey != "" {
		var err error
		fingerprint, err = FingerprintCheckout(input)
		if err != nil {
			return nil, mapError(err)
		}
		stored, err := s.idempotency.Get(ctx, input.IdempotencyKey)
		if err != nil {
			return nil, mapError(err)
		}
		if stored != nil {
			if stored.RequestHash != fingerprint {
				return nil, ports.ErrIdempotencyConflict
			}
			return &ports.CheckoutResult{OrderIDs: stored.OrderIDs}, nil
		}
	}

	buyer, err := s.dirs.Users.GetUser(ctx, input.BuyerID)
	if err != nil {
		return nil, mapError(err)
	}
	if !buyer.HasRole(ports.UserRoleBuyer) {
		return nil, validationError("user does not hold the buyer role")
	}
	roomExists, err := s.dirs.Rooms.RoomExists(ctx, input.ShippingAddressID)
	if err != nil {
		return nil, mapError(err)
	}
	if !roomExists {
		return nil, ports.ErrRoomNotFound
	}
	cart, err := s.dirs.Carts.GetCart(ctx, input.BuyerID)
	if err != nil {
		return nil, mapError(err)
	}
	if len(cart.SKUIDs) == 0 {
		return nil, validationError("cart is empty")
	}
	for _, sub := range input.SubOrders {
		if _, err := s.dirs.Stores.GetStore(ctx, sub.StoreID); err != nil {
			return nil, mapError(err)
		}
	}

	now := s.now()
	orderIDs := make([]string, 0, len(input.SubOrders))
	err = s.uow.Do(ctx, func(tx ports.TxContext) error {
		for _, sub := range input.SubOrders {
			orderID := s.newID()
			items := make([]domain.OrderItem, 0, len(sub.Items))
			for _, item := range sub.Items {
				items = append(items, domain.OrderItem{
					ID:       s.newID(),
					OrderID:  orderID,
					SKUID:    item.SKUID,
					Quantity: item.Quantity,
					Price:    item.Price,
				})
			}
			order, err := domain.NewOrder(orderID, input.BuyerID, sub.StoreID, input.ShippingAddressID, input.PaymentMethod, items, sub.TotalPrice, sub.ShippingFee, now)
			if err != nil {
				return err
			}
			order.Note = input.Note
			order.VoucherID = sub.VoucherID
			if err := order.Validate(); err != nil {
				return err
			}
			if err := tx.Orders().Create(ctx, order); err != nil {
				return fmt.Errorf("%w: %w", ErrCreateFailed, err)
			}
			orderIDs = append(orderIDs, orderID)
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}

	result := &ports.CheckoutResult{OrderIDs: orderIDs}
	if s.idempotency != nil && input.IdempotencyKey != "" {
		record := ports.IdempotencyRecord{
			Key:         input.IdempotencyKey,
			RequestHash: fingerprint,
			OrderIDs:    orderIDs,
			CreatedAt:   now,
		}
		if _, err := s.idempotency.Save(ctx, record); err != nil {
			return result, mapError(err)
		}
	}
	if err := s.dirs.Carts.DeleteItemsBySKU(ctx, cart.ID, purchasedSKUs(input.SubOrders)); err != nil {
		return result, fmt.Errorf("checkout committed but cart cleanup failed: %w", err)
	}
	return result, nil
}

// UpdateOrder edits the shipping address and note, which is only allowed
// while the order is still pending. A requested status change is routed
// through ChangeOrderStatus so the two paths cannot diverge.
func (s *Service) UpdateOrder(ctx context.Context, input ports.UpdateOrderInput) error {
	if input.ShippingAddressID == "" && input.Note == nil && input.NewStatus == nil {
		return validationError("nothing to update")
	}
	if input.ShippingAddressID != "" {
		roomExists, err := s.dirs.Rooms.RoomExists(ctx, input.ShippingAddressID)
		if err != nil {
			return mapError(err)
		}
		if !roomExists {
			return ports.ErrRoomNotFound
		}
	}
	if input.ShippingAddressID != "" || input.Note != nil {
		err := s.uow.Do(ctx, func(tx ports.TxContext) error {
			order, err := tx.Orders().GetForUpdate(ctx, input.OrderID)
			if err != nil {
				return err
			}
			store, err := s.dirs.Stores.GetStore(ctx, order.StoreID)
			if err != nil {
				return err
			}
			if _, err := order.Authorize(store.OwnerID, input.ActorID); err != nil {
				return err
			}
			note := order.Note
			if input.Note != nil {
				note = *input.Note
			}
			if err := order.UpdateDetails(input.ShippingAddressID, note, s.now()); err != nil {
				return err
			}
			return tx.Orders().Update(ctx, order)
		})
		if err != nil {
			return mapError(err)
		}
	}
	if input.NewStatus != nil {
		return s.ChangeOrderStatus(ctx, ports.ChangeStatusInput{
			OrderID:      input.OrderID,
			ActorID:      input.ActorID,
			NewStatus:    *input.NewStatus,
			ShipperID:    input.ShipperID,
			CancelReason: input.CancelReason,
		})
	}
	return nil
}

// ChangeOrderStatus is the authoritative transition entry point. One
// transaction loads and locks the order, validates the transition and the
// actor, reserves stock for the Processing target, applies the new status,
// and appends the notification events; any failure rolls all of it back.
func (s *Service) ChangeOrderStatus(ctx context.Context, input ports.ChangeStatusInput) error {
	if input.NewStatus == domain.StatusShipped && input.ShipperID != "" {
		shipperExists, err := s.dirs.Shippers.ShipperExists(ctx, input.ShipperID)
		if err != nil {
			return mapError(err)
		}
		if !shipperExists {
			return ports.ErrShipperNotFound
		}
	}

	var store ports.Store
	var haveStore bool
	err := s.uow.Do(ctx, func(tx ports.TxContext) error {
		order, err := tx.Orders().GetForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}
		store, err = s.dirs.Stores.GetStore(ctx, order.StoreID)
		if err != nil {
			return err
		}
		haveStore = true
		if _, err := order.Authorize(store.OwnerID, input.ActorID); err != nil {
			return err
		}

		oldStatus := order.Status
		now := s.now()
		payload := domain.TransitionPayload{ShipperID: input.ShipperID, CancelReason: input.CancelReason}
		if err := order.ApplyTransition(input.NewStatus, payload, now); err != nil {
			return err
		}

		events := []domain.NotificationEvent{buildStatusChangedEvent(order, store, oldStatus, now)}
		if order.Status == domain.StatusProcessing {
			drained, err := tx.Ledger().Reserve(ctx, reservationBatch(order.Items))
			if err != nil {
				return err
			}
			if len(drained) > 0 {
				names := make(map[string]string, len(drained))
				for _, sku := range drained {
					if _, ok := names[sku.ProductID]; ok {
						continue
					}
					product, err := tx.Catalog().GetProduct(ctx, sku.ProductID)
					if err != nil {
						return err
					}
					names[sku.ProductID] = product.Name
				}
				events = append(events, buildOutOfStockEvents(drained, names, store, now)...)
			}
		}
		if err := tx.Orders().Update(ctx, order); err != nil {
			return err
		}
		return tx.Outbox().Append(ctx, events...)
	})
	if err != nil {
		if haveStore && !isBusinessRejection(err) {
			// Best-effort failure report; it must not mask the original error.
			_ = s.outbox.Append(ctx, buildProcessFailedEvent(input.OrderID, store.OwnerID, err, s.now()))
		}
		return mapError(err)
	}
	return nil
}

// GetByID loads a single order aggregate.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.reads.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

// ListByBuyer returns a buyer's orders for storefront history views.
func (s *Service) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	orders, err := s.reads.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, mapError(err)
	}
	return orders, nil
}

// ListByStore returns a store's orders for seller dashboards.
func (s *Service) ListByStore(ctx context.Context, storeID string) ([]*domain.Order, error) {
	orders, err := s.reads.ListByStore(ctx, storeID)
	if err != nil {
		return nil, mapError(err)
	}
	return orders, nil
}

func validateCheckout(input ports.CreateOrderInput) error {
	if input.BuyerID == "" {
		return validationError("buyer is required")
	}
	if input.ShippingAddressID == "" {
		return validationError("shipping address is required")
	}
	if input.PaymentMethod != domain.MethodCOD && input.PaymentMethod != domain.MethodBankTransfer {
		return validationError("unknown payment method")
	}
	if len(input.SubOrders) == 0 {
		return validationError("checkout must contain at least one sub-order")
	}
	for _, sub := range input.SubOrders {
		if sub.StoreID == "" {
			return validationError("sub-order store is required")
		}
		if len(sub.Items) == 0 {
			return validationError("sub-order must contain at least one item")
		}
		if sub.TotalPrice < 0 {
			return validationError("sub-order total must not be negative")
		}
		for _, item := range sub.Items {
			if item.SKUID == "" {
				return validationError("item sku is required")
			}
			if item.Quantity <= 0 {
				return validationError("item quantity must be greater than zero")
			}
			if item.Price < 0 {
				return validationError("item price must not be negative")
			}
		}
	}
	return nil
}

// reservationBatch merges duplicate SKU lines so each SKU's requested sum
// is checked against availability exactly once.
func reservationBatch(items []domain.OrderItem) []inventoryports.Reservation {
	totals := make(map[string]int32, len(items))
	seen := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := totals[item.SKUID]; !ok {
			seen = append(seen, item.SKUID)
		}
		totals[item.SKUID] += item.Quantity
	}
	batch := make([]inventoryports.Reservation, 0, len(seen))
	for _, skuID := range seen {
		batch = append(batch, inventoryports.Reservation{SKUID: skuID, Quantity: totals[skuID]})
	}
	return batch
}

// purchasedSKUs collects the distinct SKUs a checkout bought for cart cleanup.
func purchasedSKUs(subOrders []ports.CheckoutSubOrder) []string {
	seen := make(map[string]struct{})
	skuIDs := make([]string, 0)
	for _, sub := range subOrders {
		for _, item := range sub.Items {
			if _, ok := seen[item.SKUID]; ok {
				continue
			}
			seen[item.SKUID] = struct{}{}
			skuIDs = append(skuIDs, item.SKUID)
		}
	}
	return skuIDs
}

var _ ports.Service = (*Service)(nil)
