package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	inventorydomain "github.com/dormshop/go-order-api/internal/domains/inventory/domain"
	ordershttpmapper "github.com/dormshop/go-order-api/internal/domains/orders/adapters/http/mapper"
	ordersapp "github.com/dormshop/go-order-api/internal/domains/orders/application"
	ordersdomain "github.com/dormshop/go-order-api/internal/domains/orders/domain"
	ordersports "github.com/dormshop/go-order-api/internal/domains/orders/ports"
	sharederrors "github.com/dormshop/go-order-api/internal/shared/errors"
)

// ActorHeader carries the authenticated user identity. Authentication
// itself is handled upstream; this core only consumes the resolved id.
const ActorHeader = "X-User-Id"

// IdempotencyKeyHeader carries the optional checkout replay key.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderAPI wires HTTP transport with the orders bounded context service.
type OrderAPI struct {
	service   ordersports.Service
	responder *sharederrors.ChainedResponder
}

// NewOrderAPI creates an OrderAPI backed by the provided service.
func NewOrderAPI(service ordersports.Service) OrderAPI {
	return OrderAPI{
		service:   service,
		responder: sharederrors.NewChainedResponder("", mapOrderError),
	}
}

// Register mounts the order routes on the router group.
func (api *OrderAPI) Register(group *gin.RouterGroup) {
	group.POST("/orders", api.CreateOrder)
	group.GET("/orders", api.ListOrders)
	group.GET("/orders/:orderId", api.GetOrder)
	group.PATCH("/orders/:orderId", api.UpdateOrder)
	group.PUT("/orders/:orderId/status", api.ChangeOrderStatus)
}

// Post /v1/orders
// Creates one pending order per store in the checkout payload.
func (api *OrderAPI) CreateOrder(c *gin.Context) {
	var payload ordershttpmapper.CheckoutRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	input := ordershttpmapper.ToCreateOrderInput(payload, c.GetHeader(IdempotencyKeyHeader))
	result, err := api.service.CreateOrder(c.Request.Context(), input)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ordershttpmapper.CheckoutResponse{OrderIDs: result.OrderIDs})
}

// Get /v1/orders/:orderId
func (api *OrderAPI) GetOrder(c *gin.Context) {
	order, err := api.service.GetByID(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordershttpmapper.FromDomainOrder(order))
}

// Get /v1/orders?buyerId= | ?storeId=
func (api *OrderAPI) ListOrders(c *gin.Context) {
	buyerID := c.Query("buyerId")
	storeID := c.Query("storeId")
	switch {
	case buyerID != "" && storeID == "":
		orders, err := api.service.ListByBuyer(c.Request.Context(), buyerID)
		if err != nil {
			api.responder.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ordershttpmapper.FromDomainOrderList(orders))
	case storeID != "" && buyerID == "":
		orders, err := api.service.ListByStore(c.Request.Context(), storeID)
		if err != nil {
			api.responder.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ordershttpmapper.FromDomainOrderList(orders))
	default:
		api.responder.BadRequest(c, "exactly one of buyerId or storeId is required")
	}
}

// Patch /v1/orders/:orderId
// Edits address and note while pending; status edits route through the
// transition path.
func (api *OrderAPI) UpdateOrder(c *gin.Context) {
	var payload ordershttpmapper.UpdateOrderRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	input := ordersports.UpdateOrderInput{
		OrderID:           c.Param("orderId"),
		ActorID:           c.GetHeader(ActorHeader),
		ShippingAddressID: payload.ShippingAddressID,
		Note:              payload.Note,
		ShipperID:         payload.ShipperID,
		CancelReason:      payload.CancelReason,
	}
	if payload.Status != nil {
		status, err := ordersdomain.ParseOrderStatus(*payload.Status)
		if err != nil {
			api.responder.BadRequest(c, err.Error())
			return
		}
		input.NewStatus = &status
	}
	if err := api.service.UpdateOrder(c.Request.Context(), input); err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Put /v1/orders/:orderId/status
// The authoritative status transition entry point.
func (api *OrderAPI) ChangeOrderStatus(c *gin.Context) {
	var payload ordershttpmapper.ChangeStatusRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	status, err := ordersdomain.ParseOrderStatus(payload.Status)
	if err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	input := ordersports.ChangeStatusInput{
		OrderID:      c.Param("orderId"),
		ActorID:      c.GetHeader(ActorHeader),
		NewStatus:    status,
		ShipperID:    payload.ShipperID,
		CancelReason: payload.CancelReason,
	}
	if err := api.service.ChangeOrderStatus(c.Request.Context(), input); err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// mapOrderError translates application errors into Problem Details.
func mapOrderError(err error) (sharederrors.ProblemDetail, bool) {
	var insufficient inventorydomain.InsufficientStockError
	var transition ordersdomain.TransitionError
	var unauthorized ordersdomain.NotAuthorizedError
	switch {
	case errors.As(err, &insufficient):
		return sharederrors.ErrConflict.
			WithDetail(insufficient.Error()).
			WithExtension("skuId", insufficient.SKUID).
			WithExtension("available", insufficient.Available), true
	case errors.As(err, &transition):
		return sharederrors.ErrConflict.
			WithDetail(transition.Error()).
			WithExtension("currentStatus", transition.Current.String()).
			WithExtension("requestedStatus", transition.Requested.String()), true
	case errors.As(err, &unauthorized):
		return sharederrors.ErrForbidden.WithDetail(unauthorized.Error()), true
	case errors.Is(err, ordersports.ErrIdempotencyConflict):
		return sharederrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, ordersports.ErrNotFound):
		return sharederrors.NewNotFoundProblem("order", ""), true
	case errors.Is(err, ordersports.ErrUserNotFound):
		return sharederrors.NewNotFoundProblem("user", ""), true
	case errors.Is(err, ordersports.ErrStoreNotFound):
		return sharederrors.NewNotFoundProblem("store", ""), true
	case errors.Is(err, ordersports.ErrShipperNotFound):
		return sharederrors.NewNotFoundProblem("shipper", ""), true
	case errors.Is(err, ordersports.ErrRoomNotFound):
		return sharederrors.NewNotFoundProblem("room", ""), true
	case errors.Is(err, ordersports.ErrCartNotFound):
		return sharederrors.NewNotFoundProblem("cart", ""), true
	case errors.Is(err, ordersapp.ErrValidationFailed):
		return sharederrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrCreateFailed):
		return sharederrors.ErrUnprocessable.WithDetail(err.Error()), true
	default:
		return sharederrors.ProblemDetail{}, false
	}
}
