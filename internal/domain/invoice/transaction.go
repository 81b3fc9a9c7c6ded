package invoice

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the lifecycle state of an import transaction
type TransactionStatus string

const (
	StatusURLGenerated     TransactionStatus = "URL_GENERATED"
	StatusInvoiceReceived  TransactionStatus = "INVOICE_RECEIVED"
	StatusInvoiceProcessed TransactionStatus = "INVOICE_PROCESSED"
	StatusInvoiceCancelled TransactionStatus = "INVOICE_CANCELLED"
	StatusNonValidNumber   TransactionStatus = "NON_VALID_INVOICE_NUMBER"
	StatusTimeout          TransactionStatus = "TIMEOUT"

	// StatusNotFound is synthetic: it is sent to a client referencing a
	// token with no live record and is never stored.
	StatusNotFound TransactionStatus = "NOT_FOUND"
)

// TransactionPartition groups every import transaction under one
// partition key in the invoices table.
const TransactionPartition = "#transaction"

const (
	// UploadExpirySeconds is the advisory validity window of a presigned
	// upload target, communicated to the client.
	UploadExpirySeconds = 300

	// recordGracePeriod is the absolute record lifetime enforced by the
	// store's ttl mechanism, independent of the advisory window.
	recordGracePeriod = 2 * time.Minute
)

var (
	ErrTransactionNotFound = errors.New("invoice transaction not found")
	ErrInvalidTransition   = errors.New("invalid transaction status transition")
)

// Transaction is the shared record coordinating one invoice import.
// Token doubles as the object key of the upload target.
type Transaction struct {
	PK           string            `json:"pk" dynamodbav:"pk"`
	Token        string            `json:"sk" dynamodbav:"sk"`
	TTL          int64             `json:"ttl" dynamodbav:"ttl"`
	RequestID    string            `json:"requestId" dynamodbav:"requestId"`
	Timestamp    int64             `json:"timestamp" dynamodbav:"timestamp"`
	ExpiresIn    int               `json:"expiresIn" dynamodbav:"expiresIn"`
	ConnectionID string            `json:"connectionId" dynamodbav:"connectionId"`
	Endpoint     string            `json:"endpoint" dynamodbav:"endpoint"`
	Status       TransactionStatus `json:"transactionStatus" dynamodbav:"transactionStatus"`
}

// NewTransaction creates a transaction in the URL_GENERATED state with a
// freshly minted token.
func NewTransaction(connectionID, requestID, endpoint string) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		PK:           TransactionPartition,
		Token:        uuid.NewString(),
		TTL:          now.Add(recordGracePeriod).Unix(),
		RequestID:    requestID,
		Timestamp:    now.UnixMilli(),
		ExpiresIn:    UploadExpirySeconds,
		ConnectionID: connectionID,
		Endpoint:     endpoint,
		Status:       StatusURLGenerated,
	}
}

// CanTransitionTo checks if a transition to the target status is valid
func (t *Transaction) CanTransitionTo(target TransactionStatus) bool {
	transitions := map[TransactionStatus][]TransactionStatus{
		StatusURLGenerated:     {StatusInvoiceReceived, StatusInvoiceCancelled},
		StatusInvoiceReceived:  {StatusInvoiceProcessed, StatusNonValidNumber},
		StatusInvoiceProcessed: {},
		StatusInvoiceCancelled: {},
		StatusNonValidNumber:   {},
		StatusTimeout:          {},
	}

	allowed, ok := transitions[t.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the transaction can no longer change status
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusInvoiceProcessed ||
		t.Status == StatusInvoiceCancelled ||
		t.Status == StatusNonValidNumber ||
		t.Status == StatusTimeout
}
