package product

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/commerce-hub/commerce-hub/internal/application/eventflow"
	"github.com/commerce-hub/commerce-hub/internal/domain/product"
)

// Service handles catalog operations. Mutations are mirrored into the
// history projection; a failed mirror write never fails the mutation.
type Service struct {
	repo   product.Repository
	events *eventflow.Service
	logger zerolog.Logger
}

// NewService creates a new product service.
func NewService(repo product.Repository, events *eventflow.Service, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		logger: logger.With().Str("service", "product").Logger(),
	}
}

// GetAll returns every catalog entry.
func (s *Service) GetAll(ctx context.Context) ([]*product.Product, error) {
	items, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return items, nil
}

// GetByID returns one catalog entry.
func (s *Service) GetByID(ctx context.Context, id string) (*product.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return p, nil
}

// Create inserts a catalog entry and mirrors a PRODUCT_CREATED event.
func (s *Service) Create(ctx context.Context, p *product.Product, email, requestID string) (*product.Product, error) {
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.mirror(ctx, product.EventCreated, p, email, requestID)

	s.logger.Info().Str("productId", p.ID).Str("code", p.Code).Msg("product created")
	return p, nil
}

// Update replaces an existing catalog entry and mirrors a
// PRODUCT_UPDATED event.
func (s *Service) Update(ctx context.Context, p *product.Product, email, requestID string) (*product.Product, error) {
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", p.ID, err)
	}
	s.mirror(ctx, product.EventUpdated, p, email, requestID)
	return p, nil
}

// Delete removes a catalog entry and mirrors a PRODUCT_DELETED event.
func (s *Service) Delete(ctx context.Context, id, email, requestID string) (*product.Product, error) {
	p, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	s.mirror(ctx, product.EventDeleted, p, email, requestID)
	return p, nil
}

func (s *Service) mirror(ctx context.Context, eventType product.EventType, p *product.Product, email, requestID string) {
	ev := product.Event{
		RequestID:    requestID,
		EventType:    eventType,
		ProductID:    p.ID,
		ProductCode:  p.Code,
		ProductPrice: p.Price,
		Email:        email,
	}
	if err := s.events.RecordProductEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("productId", p.ID).
			Str("eventType", string(eventType)).
			Msg("failed to mirror product event")
	}
}
