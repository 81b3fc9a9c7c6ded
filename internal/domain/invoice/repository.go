package invoice

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . TransactionRepository,InvoiceRepository,PayloadStore,ChannelNotifier

import (
	"context"
	"time"
)

// TransactionRepository persists import transaction records.
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error

	// Get returns the record for token under the fixed transaction
	// partition, or ErrTransactionNotFound.
	Get(ctx context.Context, token string) (*Transaction, error)

	// UpdateStatus advances a record's status only if it currently holds
	// the expected status. A lost race returns (false, nil), not an
	// error; callers continue with last-known data.
	UpdateStatus(ctx context.Context, token string, expected, next TransactionStatus) (bool, error)
}

// InvoiceRepository persists derived invoice records.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
}

// PayloadStore is the object store holding uploaded invoice payloads.
type PayloadStore interface {
	// PresignPut returns a pre-authorized upload URL for key, valid for
	// the given window.
	PresignPut(ctx context.Context, key string, expires time.Duration) (string, error)
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
}

// ChannelNotifier sends status messages to a connected client. Both
// operations are best-effort: failures are reported as false and logged
// by the implementation, never propagated.
type ChannelNotifier interface {
	SendStatus(ctx context.Context, token, connectionID string, status TransactionStatus) bool
	Disconnect(ctx context.Context, connectionID string) bool
}
