package invoice

import (
	"errors"
	"fmt"
	"time"
)

// minInvoiceNumberLen is the business rule gating import: shorter
// numbers are rejected as NON_VALID_INVOICE_NUMBER.
const minInvoiceNumberLen = 5

var ErrInvalidInvoiceNumber = errors.New("invalid invoice number")

// File is the payload document a client uploads to the presigned target.
type File struct {
	CustomerName  string  `json:"customerName"`
	InvoiceNumber string  `json:"invoiceNumber"`
	TotalValue    float64 `json:"totalValue"`
	ProductID     string  `json:"productId"`
	Quantity      int     `json:"quantity"`
}

// Validate applies the business checks required before an invoice is
// persisted.
func (f *File) Validate() error {
	if len(f.InvoiceNumber) < minInvoiceNumberLen {
		return fmt.Errorf("%w: %q", ErrInvalidInvoiceNumber, f.InvoiceNumber)
	}
	return nil
}

// Invoice is the business record derived from a successfully processed
// payload. It is created exactly once per transaction and never updated.
type Invoice struct {
	PK            string  `json:"pk" dynamodbav:"pk"`
	InvoiceNumber string  `json:"sk" dynamodbav:"sk"`
	TTL           int64   `json:"ttl" dynamodbav:"ttl"`
	TotalValue    float64 `json:"totalValue" dynamodbav:"totalValue"`
	ProductID     string  `json:"productId" dynamodbav:"productId"`
	Quantity      int     `json:"quantity" dynamodbav:"quantity"`
	TransactionID string  `json:"transactionId" dynamodbav:"transactionId"`
	CreatedAt     int64   `json:"createdAt" dynamodbav:"createdAt"`
}

// NewInvoice builds the derived record from a validated payload and the
// originating transaction token.
func NewInvoice(file *File, transactionID string) *Invoice {
	return &Invoice{
		PK:            fmt.Sprintf("#invoice_%s", file.CustomerName),
		InvoiceNumber: file.InvoiceNumber,
		TTL:           0,
		TotalValue:    file.TotalValue,
		ProductID:     file.ProductID,
		Quantity:      file.Quantity,
		TransactionID: transactionID,
		CreatedAt:     time.Now().UTC().UnixMilli(),
	}
}
