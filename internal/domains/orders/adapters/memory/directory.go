package memory

import (
	"context"
	"sync"

	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

var (
	_ ports.UserDirectory    = (*Directory)(nil)
	_ ports.StoreDirectory   = (*Directory)(nil)
	_ ports.ShipperDirectory = (*Directory)(nil)
	_ ports.RoomDirectory    = (*Directory)(nil)
	_ ports.CartGateway      = (*Directory)(nil)
)

// Directory is an in-memory implementation of every collaborator lookup,
// for development and tests.
type Directory struct {
	mu       sync.RWMutex
	users    map[string]ports.User
	stores   map[string]ports.Store
	shippers map[string]struct{}
	rooms    map[string]struct{}
	carts    map[string]*ports.Cart
}

// NewDirectory constructs an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		users:    map[string]ports.User{},
		stores:   map[string]ports.Store{},
		shippers: map[string]struct{}{},
		rooms:    map[string]struct{}{},
		carts:    map[string]*ports.Cart{},
	}
}

// AddUser registers an account.
func (d *Directory) AddUser(user ports.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
}

// AddStore registers a store.
func (d *Directory) AddStore(store ports.Store) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stores[store.ID] = store
}

// AddShipper registers a shipper identifier.
func (d *Directory) AddShipper(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shippers[id] = struct{}{}
}

// AddRoom registers a shipping address.
func (d *Directory) AddRoom(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rooms[id] = struct{}{}
}

// SetCart registers a buyer's cart content.
func (d *Directory) SetCart(buyerID string, cart ports.Cart) {
	d.mu.Lock()
	defer d.mu.Unlock()
	clone := cart
	clone.SKUIDs = append([]string{}, cart.SKUIDs...)
	d.carts[buyerID] = &clone
}

func (d *Directory) GetUser(_ context.Context, id string) (ports.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[id]
	if !ok {
		return ports.User{}, ports.ErrUserNotFound
	}
	return user, nil
}

func (d *Directory) GetStore(_ context.Context, id string) (ports.Store, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	store, ok := d.stores[id]
	if !ok {
		return ports.Store{}, ports.ErrStoreNotFound
	}
	return store, nil
}

func (d *Directory) ShipperExists(_ context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.shippers[id]
	return ok, nil
}

func (d *Directory) RoomExists(_ context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.rooms[id]
	return ok, nil
}

func (d *Directory) GetCart(_ context.Context, buyerID string) (ports.Cart, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cart, ok := d.carts[buyerID]
	if !ok {
		return ports.Cart{}, ports.ErrCartNotFound
	}
	clone := *cart
	clone.SKUIDs = append([]string{}, cart.SKUIDs...)
	return clone, nil
}

func (d *Directory) DeleteItemsBySKU(_ context.Context, cartID string, skuIDs []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	remove := make(map[string]struct{}, len(skuIDs))
	for _, id := range skuIDs {
		remove[id] = struct{}{}
	}
	for _, cart := range d.carts {
		if cart.ID != cartID {
			continue
		}
		kept := cart.SKUIDs[:0]
		for _, id := range cart.SKUIDs {
			if _, ok := remove[id]; !ok {
				kept = append(kept, id)
			}
		}
		cart.SKUIDs = kept
	}
	return nil
}
