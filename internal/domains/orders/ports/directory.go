package ports

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrStoreNotFound   = errors.New("store not found")
	ErrShipperNotFound = errors.New("shipper not found")
	ErrRoomNotFound    = errors.New("room not found")
	ErrCartNotFound    = errors.New("cart not found")
)

// UserRole is a platform-wide role from the user directory, distinct from
// the per-order capability resolved during authorization.
type UserRole string

const (
	UserRoleBuyer   UserRole = "buyer"
	UserRoleSeller  UserRole = "seller"
	UserRoleShipper UserRole = "shipper"
	UserRoleAdmin   UserRole = "admin"
)

// User is the directory view of an account.
type User struct {
	ID      string
	Roles   []UserRole
	StoreID string
}

// HasRole reports whether the directory granted the role.
func (u User) HasRole(role UserRole) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Store is the directory view of a store.
type Store struct {
	ID      string
	OwnerID string
	Name    string
}

// Cart is the directory view of a buyer's cart.
type Cart struct {
	ID     string
	SKUIDs []string
}

// UserDirectory resolves accounts. Read-only collaborator.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// StoreDirectory resolves stores and their owners. Read-only collaborator.
type StoreDirectory interface {
	GetStore(ctx context.Context, id string) (Store, error)
}

// ShipperDirectory checks shipper existence. Read-only collaborator.
type ShipperDirectory interface {
	ShipperExists(ctx context.Context, id string) (bool, error)
}

// RoomDirectory checks shipping address existence. Read-only collaborator.
type RoomDirectory interface {
	RoomExists(ctx context.Context, id string) (bool, error)
}

// CartGateway reads the buyer's cart and removes purchased SKUs after a
// committed checkout.
type CartGateway interface {
	GetCart(ctx context.Context, buyerID string) (Cart, error)
	DeleteItemsBySKU(ctx context.Context, cartID string, skuIDs []string) error
}
