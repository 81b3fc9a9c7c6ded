package product

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import "context"

// Repository persists catalog entries.
type Repository interface {
	GetAll(ctx context.Context) ([]*Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)

	// GetByIDs batch-fetches products; missing ids are simply absent
	// from the result.
	GetByIDs(ctx context.Context, ids []string) ([]*Product, error)

	Create(ctx context.Context, p *Product) error

	// Update replaces an existing product; ErrProductNotFound if absent.
	Update(ctx context.Context, p *Product) error

	// Delete removes a product and returns the removed entry, or
	// ErrProductNotFound.
	Delete(ctx context.Context, id string) (*Product, error)
}
