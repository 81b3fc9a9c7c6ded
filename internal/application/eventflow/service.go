package eventflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/commerce-hub/commerce-hub/internal/domain/event"
	"github.com/commerce-hub/commerce-hub/internal/domain/invoice"
	"github.com/commerce-hub/commerce-hub/internal/domain/order"
	"github.com/commerce-hub/commerce-hub/internal/domain/product"
)

const (
	// Retention windows for history entries; the store's ttl mechanism
	// ages them out.
	invoiceEventRetention = time.Hour
	orderEventRetention   = 5 * time.Minute
	productEventRetention = 5 * time.Minute
)

// Service is the read-model projection: it turns store change
// notifications and topic messages into append-only history entries. It
// makes no control decisions.
type Service struct {
	events event.Repository
	logger zerolog.Logger
}

// NewService creates a new event projection service.
func NewService(events event.Repository, logger zerolog.Logger) *Service {
	return &Service{
		events: events,
		logger: logger.With().Str("service", "eventflow").Logger(),
	}
}

// RecordInvoiceCreated appends an INVOICE_CREATED entry for a freshly
// inserted invoice row.
func (s *Service) RecordInvoiceCreated(ctx context.Context, inv *invoice.Invoice) error {
	// The invoice partition key is "#invoice_<customerName>".
	email := inv.PK
	if _, suffix, ok := strings.Cut(inv.PK, "_"); ok {
		email = suffix
	}

	rec := event.NewRecord(
		fmt.Sprintf("#invoice_%s", inv.InvoiceNumber),
		"INVOICE_CREATED",
		email,
		invoiceEventRetention,
		map[string]any{
			"transaction": inv.TransactionID,
			"productId":   inv.ProductID,
		},
	)

	if err := s.events.Create(ctx, rec); err != nil {
		return fmt.Errorf("failed to record invoice event: %w", err)
	}

	s.logger.Info().
		Str("invoiceNumber", inv.InvoiceNumber).
		Str("transactionId", inv.TransactionID).
		Msg("invoice event recorded")
	return nil
}

// RecordOrderEvent appends a history entry for an envelope delivered on
// the order topic. messageID is the broker-assigned id of the delivery.
func (s *Service) RecordOrderEvent(ctx context.Context, env order.Envelope, messageID string) error {
	var ev order.Event
	if err := json.Unmarshal([]byte(env.Data), &ev); err != nil {
		return fmt.Errorf("failed to parse order event envelope: %w", err)
	}

	rec := event.NewRecord(
		fmt.Sprintf("#order_%s", ev.OrderID),
		string(env.EventType),
		ev.Email,
		orderEventRetention,
		map[string]any{
			"orderId":      ev.OrderID,
			"productCodes": ev.ProductCodes,
			"messageId":    messageID,
		},
	)
	rec.RequestID = ev.RequestID

	if err := s.events.Create(ctx, rec); err != nil {
		return fmt.Errorf("failed to record order event: %w", err)
	}

	s.logger.Info().
		Str("orderId", ev.OrderID).
		Str("eventType", string(env.EventType)).
		Str("messageId", messageID).
		Msg("order event recorded")
	return nil
}

// RecordProductEvent appends a history entry for a catalog mutation.
func (s *Service) RecordProductEvent(ctx context.Context, ev product.Event) error {
	rec := event.NewRecord(
		fmt.Sprintf("#product_%s", ev.ProductCode),
		string(ev.EventType),
		ev.Email,
		productEventRetention,
		map[string]any{
			"productId":    ev.ProductID,
			"productPrice": ev.ProductPrice,
		},
	)
	rec.RequestID = ev.RequestID

	if err := s.events.Create(ctx, rec); err != nil {
		return fmt.Errorf("failed to record product event: %w", err)
	}
	return nil
}

// OrderHistory returns the order history entries for an email.
func (s *Service) OrderHistory(ctx context.Context, email string) ([]*event.Record, error) {
	recs, err := s.events.GetByEmail(ctx, email, "ORDER_")
	if err != nil {
		return nil, fmt.Errorf("failed to query order history: %w", err)
	}
	return recs, nil
}
