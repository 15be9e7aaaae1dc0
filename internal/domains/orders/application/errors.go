package application

import (
	"errors"
	"fmt"

	inventorydomain "github.com/dormshop/go-order-api/internal/domains/inventory/domain"
	"github.com/dormshop/go-order-api/internal/domains/orders/domain"
	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

var (
	// ErrValidationFailed signals the request violated a business rule or
	// input constraint. Always caller-recoverable.
	ErrValidationFailed = errors.New("validation failed")
	// ErrCreateFailed signals the checkout batch could not be persisted.
	ErrCreateFailed = errors.New("order creation failed")
)

// validationError wraps a rule violation with the shared sentinel so
// callers can match the whole class with errors.Is.
func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, msg)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var insufficient inventorydomain.InsufficientStockError
	var transition domain.TransitionError
	var unauthorized domain.NotAuthorizedError
	switch {
	case errors.As(err, &insufficient),
		errors.As(err, &transition),
		errors.As(err, &unauthorized):
		return err
	case errors.Is(err, ports.ErrNotFound),
		errors.Is(err, ports.ErrUserNotFound),
		errors.Is(err, ports.ErrStoreNotFound),
		errors.Is(err, ports.ErrShipperNotFound),
		errors.Is(err, ports.ErrRoomNotFound),
		errors.Is(err, ports.ErrCartNotFound),
		errors.Is(err, ports.ErrIdempotencyConflict),
		errors.Is(err, ErrValidationFailed),
		errors.Is(err, ErrCreateFailed):
		return err
	case errors.Is(err, domain.ErrEmptyItems),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidTotal),
		errors.Is(err, domain.ErrNoteTooLong),
		errors.Is(err, domain.ErrMissingShipper),
		errors.Is(err, domain.ErrMissingCancelReason),
		errors.Is(err, domain.ErrOrderLocked):
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	default:
		return fmt.Errorf("%w: %w", ports.ErrRepository, err)
	}
}

// isBusinessRejection reports whether the error was raised before any
// mutation took place. Such rejections abort cleanly and do not warrant a
// process-failure notification to the store owner.
func isBusinessRejection(err error) bool {
	var transition domain.TransitionError
	var unauthorized domain.NotAuthorizedError
	return errors.As(err, &transition) ||
		errors.As(err, &unauthorized) ||
		errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ports.ErrNotFound) ||
		errors.Is(err, domain.ErrMissingShipper) ||
		errors.Is(err, domain.ErrMissingCancelReason)
}
