package event

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import "context"

// Repository persists history entries.
type Repository interface {
	Create(ctx context.Context, rec *Record) error

	// GetByEmail returns entries for an email whose sort key starts with
	// prefix, newest first.
	GetByEmail(ctx context.Context, email, prefix string) ([]*Record, error)
}
