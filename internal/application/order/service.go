package order

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/commerce-hub/commerce-hub/internal/domain/audit"
	"github.com/commerce-hub/commerce-hub/internal/domain/order"
	"github.com/commerce-hub/commerce-hub/internal/domain/product"
)

// AuditSource identifies the order flow on the audit bus.
const AuditSource = "app.order"

// InvalidOrderDetail is the audit payload for a rejected order.
type InvalidOrderDetail struct {
	Reason     string   `json:"reason"`
	Email      string   `json:"email"`
	ProductIDs []string `json:"productIds"`
}

// CreateOrderRequest carries the client's order intent.
type CreateOrderRequest struct {
	Email      string
	ProductIDs []string
	Payment    order.PaymentType
	Shipping   order.Shipping
	RequestID  string
}

// Service handles order operations.
type Service struct {
	orders    order.Repository
	products  product.Repository
	publisher order.EventPublisher
	audit     audit.Publisher
	logger    zerolog.Logger
}

// NewService creates a new order service.
func NewService(
	orders order.Repository,
	products product.Repository,
	publisher order.EventPublisher,
	auditBus audit.Publisher,
	logger zerolog.Logger,
) *Service {
	return &Service{
		orders:    orders,
		products:  products,
		publisher: publisher,
		audit:     auditBus,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// Create validates the referenced products, snapshots them into a new
// order, and publishes an ORDER_CREATED event. A missing product
// rejects the order and emits one audit event.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*order.Order, error) {
	products, err := s.products.GetByIDs(ctx, req.ProductIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order products: %w", err)
	}

	if len(products) != len(req.ProductIDs) {
		detail := InvalidOrderDetail{
			Reason:     "PRODUCT_NOT_FOUND",
			Email:      req.Email,
			ProductIDs: req.ProductIDs,
		}
		if err := s.audit.Publish(ctx, AuditSource, "order", detail); err != nil {
			s.logger.Error().Err(err).Str("email", req.Email).Msg("failed to publish invalid order audit event")
		}
		return nil, fmt.Errorf("order for %s references missing products: %w", req.Email, product.ErrProductNotFound)
	}

	snapshots := make([]order.ProductSnapshot, 0, len(products))
	for _, p := range products {
		snapshots = append(snapshots, order.ProductSnapshot{Code: p.Code, Price: p.Price})
	}

	o := order.NewOrder(req.Email, snapshots, req.Payment, req.Shipping)
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.publish(ctx, order.EventCreated, o, req.RequestID)

	s.logger.Info().
		Str("orderId", o.ID).
		Str("email", o.Email).
		Float64("totalPrice", o.Billing.TotalPrice).
		Msg("order created")
	return o, nil
}

// GetAll returns every order.
func (s *Service) GetAll(ctx context.Context) ([]*order.Order, error) {
	orders, err := s.orders.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetByEmail returns a customer's orders.
func (s *Service) GetByEmail(ctx context.Context, email string) ([]*order.Order, error) {
	orders, err := s.orders.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for %s: %w", email, err)
	}
	return orders, nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, email, id string) (*order.Order, error) {
	o, err := s.orders.GetByEmailAndID(ctx, email, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return o, nil
}

// Delete removes an order and publishes an ORDER_DELETED event.
func (s *Service) Delete(ctx context.Context, email, id, requestID string) (*order.Order, error) {
	o, err := s.orders.Delete(ctx, email, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete order %s: %w", id, err)
	}

	s.publish(ctx, order.EventDeleted, o, requestID)

	s.logger.Info().Str("orderId", id).Str("email", email).Msg("order deleted")
	return o, nil
}

// publish sends an order event to the topic. Event loss is tolerated:
// the order mutation already committed, so failures are logged only.
func (s *Service) publish(ctx context.Context, eventType order.EventType, o *order.Order, requestID string) {
	env, err := order.NewEnvelope(eventType, order.Event{
		Email:        o.Email,
		OrderID:      o.ID,
		ProductCodes: o.ProductCodes(),
		RequestID:    requestID,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("orderId", o.ID).Msg("failed to build order event envelope")
		return
	}

	messageID, err := s.publisher.Publish(ctx, env)
	if err != nil {
		s.logger.Error().Err(err).
			Str("orderId", o.ID).
			Str("eventType", string(eventType)).
			Msg("failed to publish order event")
		return
	}

	s.logger.Debug().
		Str("orderId", o.ID).
		Str("eventType", string(eventType)).
		Str("messageId", messageID).
		Msg("order event published")
}
