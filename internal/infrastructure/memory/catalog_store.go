package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/commerce-hub/commerce-hub/internal/domain/event"
	"github.com/commerce-hub/commerce-hub/internal/domain/order"
	"github.com/commerce-hub/commerce-hub/internal/domain/product"
)

// ProductStore implements product.Repository.
type ProductStore struct {
	mu       sync.Mutex
	products map[string]*product.Product
}

func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[string]*product.Product)}
}

func (s *ProductStore) GetAll(_ context.Context) ([]*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*product.Product, 0, len(s.products))
	for _, p := range s.products {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *ProductStore) GetByID(_ context.Context, id string) (*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *ProductStore) GetByIDs(_ context.Context, ids []string) ([]*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *ProductStore) Create(_ context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *ProductStore) Update(_ context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return product.ErrProductNotFound
	}
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *ProductStore) Delete(_ context.Context, id string) (*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	delete(s.products, id)
	return p, nil
}

// OrderStore implements order.Repository.
type OrderStore struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]*order.Order)}
}

func orderStoreKey(email, id string) string { return email + "|" + id }

func (s *OrderStore) Create(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[orderStoreKey(o.Email, o.ID)] = &cp
	return nil
}

func (s *OrderStore) GetAll(_ context.Context) ([]*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (s *OrderStore) GetByEmail(_ context.Context, email string) ([]*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*order.Order
	for _, o := range s.orders {
		if o.Email == email {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *OrderStore) GetByEmailAndID(_ context.Context, email, id string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderStoreKey(email, id)]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *OrderStore) Delete(_ context.Context, email, id string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderStoreKey(email, id)]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	delete(s.orders, orderStoreKey(email, id))
	return o, nil
}

// EventStore implements event.Repository over an append-only slice.
type EventStore struct {
	mu      sync.Mutex
	records []*event.Record
}

func NewEventStore() *EventStore {
	return &EventStore{}
}

func (s *EventStore) Create(_ context.Context, rec *event.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records = append(s.records, &cp)
	return nil
}

func (s *EventStore) GetByEmail(_ context.Context, email, prefix string) ([]*event.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*event.Record
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.Email == email && strings.HasPrefix(rec.SK, prefix) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}
