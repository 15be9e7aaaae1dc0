package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	inventorydomain "github.com/dormshop/go-order-api/internal/domains/inventory/domain"
	"github.com/dormshop/go-order-api/internal/domains/orders/domain"
	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

type stubService struct {
	createResult *ports.CheckoutResult
	createErr    error
	changeErr    error
	getOrder     *domain.Order
	getErr       error
	lastChange   ports.ChangeStatusInput
}

func (s *stubService) CreateOrder(_ context.Context, _ ports.CreateOrderInput) (*ports.CheckoutResult, error) {
	return s.createResult, s.createErr
}

func (s *stubService) UpdateOrder(_ context.Context, _ ports.UpdateOrderInput) error { return nil }

func (s *stubService) ChangeOrderStatus(_ context.Context, input ports.ChangeStatusInput) error {
	s.lastChange = input
	return s.changeErr
}

func (s *stubService) GetByID(_ context.Context, _ string) (*domain.Order, error) {
	return s.getOrder, s.getErr
}

func (s *stubService) ListByBuyer(_ context.Context, _ string) ([]*domain.Order, error) {
	return nil, nil
}

func (s *stubService) ListByStore(_ context.Context, _ string) ([]*domain.Order, error) {
	return nil, nil
}

func newTestRouter(svc ports.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := NewOrderAPI(svc)
	api.Register(router.Group("/v1"))
	return router
}

func TestCreateOrder_Returns201(t *testing.T) {
	svc := &stubService{createResult: &ports.CheckoutResult{OrderIDs: []string{"order-1"}}}
	router := newTestRouter(svc)

	body := `{"buyerId":"buyer-1","shippingAddressId":"room-101","paymentMethod":"COD","subOrders":[{"storeId":"store-1","items":[{"skuId":"sku-1","quantity":2,"price":1500}],"totalPrice":3000}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	var payload struct {
		OrderIDs []string `json:"orderIds"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Equal(t, []string{"order-1"}, payload.OrderIDs)
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/orders", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Type"), "application/problem+json")
}

func TestChangeOrderStatus_InsufficientStockMapsToConflict(t *testing.T) {
	svc := &stubService{changeErr: inventorydomain.InsufficientStockError{SKUID: "sku-1", Available: 3}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPut, "/v1/orders/order-1/status", strings.NewReader(`{"status":"Processing"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ActorHeader, "owner-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusConflict, resp.Code)
	var problem map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &problem))
	require.Equal(t, "sku-1", problem["skuId"])
	require.Equal(t, float64(3), problem["available"])
	require.Equal(t, "order-1", svc.lastChange.OrderID)
	require.Equal(t, "owner-1", svc.lastChange.ActorID)
	require.Equal(t, domain.StatusProcessing, svc.lastChange.NewStatus)
}

func TestChangeOrderStatus_TransitionRejectionCarriesStatuses(t *testing.T) {
	svc := &stubService{changeErr: domain.TransitionError{
		Current:   domain.StatusDelivered,
		Requested: domain.StatusCancelled,
		Reason:    "order already complete",
	}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPut, "/v1/orders/order-1/status", strings.NewReader(`{"status":"Cancelled","cancelReason":"late"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusConflict, resp.Code)
	var problem map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &problem))
	require.Equal(t, "Delivered", problem["currentStatus"])
	require.Equal(t, "Cancelled", problem["requestedStatus"])
}

func TestChangeOrderStatus_UnauthorizedMapsToForbidden(t *testing.T) {
	svc := &stubService{changeErr: domain.NotAuthorizedError{UserID: "stranger"}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPut, "/v1/orders/order-1/status", strings.NewReader(`{"status":"Processing"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestChangeOrderStatus_UnknownStatusName(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPut, "/v1/orders/order-1/status", strings.NewReader(`{"status":"Assigned"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := &stubService{getErr: ports.ErrNotFound}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders/missing", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListOrders_RequiresExactlyOneFilter(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/orders?buyerId=b&storeId=s", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
