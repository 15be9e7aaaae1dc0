package directory

import (
	"context"
	"errors"
	"fmt"

	directoryclient "github.com/dormshop/go-order-api/internal/clients/http/directory"
	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

// Directory implements the collaborator lookup ports against the
// platform directory HTTP API.
type Directory struct {
	client *directoryclient.Client
}

// New wires a directory HTTP client into the collaborator adapter.
func New(client *directoryclient.Client) *Directory {
	return &Directory{client: client}
}

// GetUser resolves an account from the directory service.
func (d *Directory) GetUser(ctx context.Context, id string) (ports.User, error) {
	if d == nil || d.client == nil {
		return ports.User{}, errors.New("directory adapter not configured")
	}
	payload, err := d.client.GetUser(ctx, id)
	if errors.Is(err, directoryclient.ErrNotFound) {
		return ports.User{}, ports.ErrUserNotFound
	}
	if err != nil {
		return ports.User{}, fmt.Errorf("get user %q: %w", id, err)
	}
	roles := make([]ports.UserRole, 0, len(payload.Roles))
	for _, role := range payload.Roles {
		roles = append(roles, ports.UserRole(role))
	}
	return ports.User{ID: payload.ID, Roles: roles, StoreID: payload.StoreID}, nil
}

// GetStore resolves a store from the directory service.
func (d *Directory) GetStore(ctx context.Context, id string) (ports.Store, error) {
	if d == nil || d.client == nil {
		return ports.Store{}, errors.New("directory adapter not configured")
	}
	payload, err := d.client.GetStore(ctx, id)
	if errors.Is(err, directoryclient.ErrNotFound) {
		return ports.Store{}, ports.ErrStoreNotFound
	}
	if err != nil {
		return ports.Store{}, fmt.Errorf("get store %q: %w", id, err)
	}
	return ports.Store{ID: payload.ID, OwnerID: payload.OwnerID, Name: payload.Name}, nil
}

// ShipperExists probes the shipper registry.
func (d *Directory) ShipperExists(ctx context.Context, id string) (bool, error) {
	if d == nil || d.client == nil {
		return false, errors.New("directory adapter not configured")
	}
	ok, err := d.client.ShipperExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check shipper %q: %w", id, err)
	}
	return ok, nil
}

// RoomExists probes the room registry.
func (d *Directory) RoomExists(ctx context.Context, id string) (bool, error) {
	if d == nil || d.client == nil {
		return false, errors.New("directory adapter not configured")
	}
	ok, err := d.client.RoomExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check room %q: %w", id, err)
	}
	return ok, nil
}

// GetCart fetches the buyer's active cart.
func (d *Directory) GetCart(ctx context.Context, buyerID string) (ports.Cart, error) {
	if d == nil || d.client == nil {
		return ports.Cart{}, errors.New("directory adapter not configured")
	}
	payload, err := d.client.GetCart(ctx, buyerID)
	if errors.Is(err, directoryclient.ErrNotFound) {
		return ports.Cart{}, ports.ErrCartNotFound
	}
	if err != nil {
		return ports.Cart{}, fmt.Errorf("get cart for buyer %q: %w", buyerID, err)
	}
	return ports.Cart{ID: payload.ID, SKUIDs: append([]string{}, payload.SKUIDs...)}, nil
}

// DeleteItemsBySKU removes purchased SKUs from the cart after checkout.
func (d *Directory) DeleteItemsBySKU(ctx context.Context, cartID string, skuIDs []string) error {
	if d == nil || d.client == nil {
		return errors.New("directory adapter not configured")
	}
	err := d.client.DeleteItemsBySKU(ctx, cartID, skuIDs)
	if errors.Is(err, directoryclient.ErrNotFound) {
		return ports.ErrCartNotFound
	}
	if err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return nil
}

var (
	_ ports.UserDirectory    = (*Directory)(nil)
	_ ports.StoreDirectory   = (*Directory)(nil)
	_ ports.ShipperDirectory = (*Directory)(nil)
	_ ports.RoomDirectory    = (*Directory)(nil)
	_ ports.CartGateway      = (*Directory)(nil)
)
