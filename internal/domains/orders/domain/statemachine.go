package domain

import (
	"fmt"
	"time"
)

// TransitionError rejects a requested status change. It carries the
// current status so a caller racing against a concurrent change can see
// what the order moved to.
type TransitionError struct {
	Current   OrderStatus
	Requested OrderStatus
	Reason    string
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s: %s", e.Current, e.Requested, e.Reason)
}

// NotAuthorizedError rejects a command from a user who is neither the
// buyer, the store owner, nor the assigned shipper.
type NotAuthorizedError struct {
	UserID string
}

func (e NotAuthorizedError) Error() string {
	return fmt.Sprintf("user %s is not authorized to act on this order", e.UserID)
}

// Role is the capability a user holds towards one specific order,
// resolved once per command.
type Role int

const (
	RoleNone Role = iota
	RoleBuyer
	RoleStoreOwner
	RoleShipper
)

// Authorize resolves the role a user holds towards the order. Only the
// buyer, the owning store's owner, and the assigned shipper may act.
func (o *Order) Authorize(storeOwnerID, userID string) (Role, error) {
	switch {
	case userID != "" && userID == o.BuyerID:
		return RoleBuyer, nil
	case userID != "" && userID == storeOwnerID:
		return RoleStoreOwner, nil
	case userID != "" && o.ShipperID != "" && userID == o.ShipperID:
		return RoleShipper, nil
	default:
		return RoleNone, NotAuthorizedError{UserID: userID}
	}
}

// next returns the sole step forward in the linear progression, or
// StatusNone when the current status has no linear successor.
func next(current OrderStatus) OrderStatus {
	switch current {
	case StatusPending:
		return StatusProcessing
	case StatusProcessing:
		return StatusShipped
	case StatusShipped:
		return StatusDelivered
	default:
		return StatusNone
	}
}

// ValidateTransition decides whether an order in the current status may
// move to the requested one. The rules are evaluated in a fixed order so
// the rejection reason is deterministic for every (current, requested)
// pair.
func ValidateTransition(current, requested OrderStatus) error {
	reject := func(reason string) error {
		return TransitionError{Current: current, Requested: requested, Reason: reason}
	}
	switch {
	case requested == StatusNone:
		return reject("status does not exist")
	case requested == StatusReported:
		return reject("not a valid target")
	case current == StatusDelivered:
		return reject("order already complete")
	case current == StatusCancelled:
		return reject("already cancelled")
	case requested == StatusPending:
		return reject("cannot revert to pending")
	case requested == StatusCustomerNotAvailable && current != StatusShipped:
		return reject("order not yet shipped")
	case requested == StatusDelivered && current != StatusShipped && current != StatusCustomerNotAvailable:
		return reject("not in shipping state")
	case current == StatusPending:
		if requested == StatusProcessing || requested == StatusCancelled {
			return nil
		}
		return reject("unprocessed order may only be processed or cancelled")
	case requested == StatusCancelled, requested == StatusCustomerNotAvailable, requested == StatusDelivered:
		return nil
	case requested == next(current):
		return nil
	default:
		return reject("skipped a status step")
	}
}

// TransitionPayload carries the per-target extras a status change needs.
type TransitionPayload struct {
	ShipperID    string
	CancelReason string
}

// ApplyTransition validates the requested change and mutates the order
// accordingly. Stock reservation for the Processing target is the
// orchestrator's job and must commit atomically with this change.
func (o *Order) ApplyTransition(requested OrderStatus, payload TransitionPayload, now time.Time) error {
	if err := ValidateTransition(o.Status, requested); err != nil {
		return err
	}
	switch requested {
	case StatusShipped:
		if payload.ShipperID == "" {
			return ErrMissingShipper
		}
		o.ShipperID = payload.ShipperID
	case StatusDelivered:
		o.PaymentStatus = PaymentPaid
	case StatusCancelled:
		if payload.CancelReason == "" {
			return ErrMissingCancelReason
		}
		o.CancelReason = payload.CancelReason
		// An order settled up front gets its money back; an unsettled
		// one simply fails.
		if o.PaymentStatus == PaymentPaid {
			o.PaymentStatus = PaymentRefunded
		} else {
			o.PaymentStatus = PaymentFailed
		}
	}
	o.Status = requested
	o.UpdatedAt = now
	return nil
}
