package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/dormshop/go-order-api/internal/domains/orders/domain"
	"github.com/dormshop/go-order-api/internal/domains/orders/ports"
)

const tracerName = "github.com/dormshop/go-order-api/internal/domains/orders/adapters/observability/service"

// Service decorates the orders application port with tracing, logging,
// and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// CreateOrder creates the checkout batch with instrumentation.
func (s *Service) CreateOrder(ctx context.Context, input ports.CreateOrderInput) (*ports.CheckoutResult, error) {
	ctx, span := s.startSpan(ctx, "Service.CreateOrder",
		attribute.String("order.buyer_id", input.BuyerID),
		attribute.Int("order.sub_orders", len(input.SubOrders)),
	)
	defer span.End()

	s.logInfo(ctx, "creating orders", slog.String("buyer.id", input.BuyerID), slog.Int("sub_orders", len(input.SubOrders)))
	result, err := s.inner.CreateOrder(ctx, input)
	if err != nil {
		return result, s.handleError(ctx, span, err, "checkout failed", slog.String("buyer.id", input.BuyerID))
	}
	s.metrics.recordCheckout(ctx, len(result.OrderIDs))
	s.logInfo(ctx, "orders created", slog.String("buyer.id", input.BuyerID), slog.Int("orders", len(result.OrderIDs)))
	return result, nil
}

// UpdateOrder edits order details with instrumentation.
func (s *Service) UpdateOrder(ctx context.Context, input ports.UpdateOrderInput) error {
	ctx, span := s.startSpan(ctx, "Service.UpdateOrder", attribute.String("order.id", input.OrderID))
	defer span.End()

	s.logInfo(ctx, "updating order", slog.String("order.id", input.OrderID))
	if err := s.inner.UpdateOrder(ctx, input); err != nil {
		return s.handleError(ctx, span, err, "failed to update order", slog.String("order.id", input.OrderID))
	}
	s.logInfo(ctx, "order updated", slog.String("order.id", input.OrderID))
	return nil
}

// ChangeOrderStatus applies a status transition with instrumentation.
func (s *Service) ChangeOrderStatus(ctx context.Context, input ports.ChangeStatusInput) error {
	ctx, span := s.startSpan(ctx, "Service.ChangeOrderStatus",
		attribute.String("order.id", input.OrderID),
		attribute.String("order.requested_status", input.NewStatus.String()),
	)
	defer span.End()

	s.logInfo(ctx, "changing order status",
		slog.String("order.id", input.OrderID),
		slog.String("requested_status", input.NewStatus.String()),
	)
	if err := s.inner.ChangeOrderStatus(ctx, input); err != nil {
		s.metrics.recordTransitionRejected(ctx, input.NewStatus)
		return s.handleError(ctx, span, err, "status change rejected",
			slog.String("order.id", input.OrderID),
			slog.String("requested_status", input.NewStatus.String()),
		)
	}
	s.metrics.recordTransitionApplied(ctx, input.NewStatus)
	s.logInfo(ctx, "order status changed",
		slog.String("order.id", input.OrderID),
		slog.String("new_status", input.NewStatus.String()),
	)
	return nil
}

// GetByID loads a single order aggregate.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.GetByID", attribute.String("order.id", id))
	defer span.End()

	result, err := s.inner.GetByID(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order.id", id))
	}
	span.SetAttributes(attribute.String("order.status", result.Status.String()))
	return result, nil
}

// ListByBuyer returns a buyer's orders.
func (s *Service) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.ListByBuyer", attribute.String("order.buyer_id", buyerID))
	defer span.End()

	result, err := s.inner.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list buyer orders", slog.String("buyer.id", buyerID))
	}
	span.SetAttributes(attribute.Int("order.result.count", len(result)))
	return result, nil
}

// ListByStore returns a store's orders.
func (s *Service) ListByStore(ctx context.Context, storeID string) ([]*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.ListByStore", attribute.String("order.store_id", storeID))
	defer span.End()

	result, err := s.inner.ListByStore(ctx, storeID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list store orders", slog.String("store.id", storeID))
	}
	span.SetAttributes(attribute.Int("order.result.count", len(result)))
	return result, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if s.logger != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		s.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
	}
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	checkouts           metric.Int64Counter
	ordersCreated       metric.Int64Counter
	transitionsApplied  metric.Int64Counter
	transitionsRejected metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	metrics := serviceMetrics{}
	metrics.checkouts, _ = m.Int64Counter("orders.checkouts")
	metrics.ordersCreated, _ = m.Int64Counter("orders.created")
	metrics.transitionsApplied, _ = m.Int64Counter("orders.transitions.applied")
	metrics.transitionsRejected, _ = m.Int64Counter("orders.transitions.rejected")
	return metrics
}

func (m serviceMetrics) recordCheckout(ctx context.Context, orderCount int) {
	if m.checkouts != nil {
		m.checkouts.Add(ctx, 1)
	}
	if m.ordersCreated != nil {
		m.ordersCreated.Add(ctx, int64(orderCount))
	}
}

func (m serviceMetrics) recordTransitionApplied(ctx context.Context, status domain.OrderStatus) {
	if m.transitionsApplied != nil {
		m.transitionsApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status.String())))
	}
}

func (m serviceMetrics) recordTransitionRejected(ctx context.Context, status domain.OrderStatus) {
	if m.transitionsRejected != nil {
		m.transitionsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status.String())))
	}
}
