package order

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository,EventPublisher

import "context"

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetAll(ctx context.Context) ([]*Order, error)
	GetByEmail(ctx context.Context, email string) ([]*Order, error)

	// GetByEmailAndID returns one order or ErrOrderNotFound.
	GetByEmailAndID(ctx context.Context, email, id string) (*Order, error)

	// Delete removes an order and returns the removed entry, or
	// ErrOrderNotFound.
	Delete(ctx context.Context, email, id string) (*Order, error)
}

// EventPublisher publishes order events to the order topic. It returns
// the broker-assigned message id.
type EventPublisher interface {
	Publish(ctx context.Context, env Envelope) (string, error)
}
