package application

import (
	"time"

	inventorydomain "github.com/dormshop/go-order-api/internal/domains/inventory/domain"
	"github.com/dormshop/go-order-api/internal/domains/orders/domain"
	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

// statusChangeRecipients computes who hears about a committed transition.
// Targets not listed are still recorded in the outbox with no recipients.
func statusChangeRecipients(newStatus domain.OrderStatus, buyerID, ownerID string) []string {
	switch newStatus {
	case domain.StatusProcessing:
		return []string{buyerID}
	case domain.StatusShipped, domain.StatusDelivered, domain.StatusCustomerNotAvailable, domain.StatusCancelled:
		return []string{buyerID, ownerID}
	default:
		return nil
	}
}

// buildStatusChangedEvent translates a committed transition into its
// notification event.
func buildStatusChangedEvent(order *domain.Order, store ports.Store, oldStatus domain.OrderStatus, now time.Time) domain.NotificationEvent {
	return domain.NotificationEvent{
		Name: domain.OrderStatusChangedName(order.Status),
		Payload: domain.OrderStatusChanged{
			OrderID:       order.ID,
			StoreID:       store.ID,
			StoreName:     store.Name,
			NewStatus:     order.Status,
			OldStatus:     oldStatus,
			PaymentStatus: order.PaymentStatus,
			CreatedAt:     order.CreatedAt,
			UpdatedAt:     order.UpdatedAt,
		},
		RecipientIDs: statusChangeRecipients(order.Status, order.BuyerID, store.OwnerID),
		OccurredAt:   now,
	}
}

// buildOutOfStockEvents emits one event per SKU a reservation drained,
// addressed to the owning store.
func buildOutOfStockEvents(skus []inventorydomain.SKU, productNames map[string]string, store ports.Store, now time.Time) []domain.NotificationEvent {
	events := make([]domain.NotificationEvent, 0, len(skus))
	for _, sku := range skus {
		events = append(events, domain.NotificationEvent{
			Name: domain.EventProductOutOfStock,
			Payload: domain.ProductOutOfStock{
				SKUID:       sku.ID,
				ProductName: productNames[sku.ProductID],
				StoreName:   store.Name,
				StoreID:     store.ID,
			},
			RecipientIDs: []string{store.OwnerID},
			OccurredAt:   now,
		})
	}
	return events
}

// buildProcessFailedEvent tells the store owner a status change rolled back.
func buildProcessFailedEvent(orderID, ownerID string, cause error, now time.Time) domain.NotificationEvent {
	return domain.NotificationEvent{
		Name: domain.EventOrderProcessFailed,
		Payload: domain.OrderProcessFailed{
			OrderID:      orderID,
			ErrorMessage: cause.Error(),
		},
		RecipientIDs: []string{ownerID},
		OccurredAt:   now,
	}
}
