// Package memory holds in-memory implementations of the repository
// contracts, backing the dev server and the lifecycle tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/commerce-hub/commerce-hub/internal/domain/invoice"
)

// TransactionStore implements invoice.TransactionRepository.
type TransactionStore struct {
	mu      sync.Mutex
	records map[string]*invoice.Transaction
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{records: make(map[string]*invoice.Transaction)}
}

func (s *TransactionStore) Create(_ context.Context, tx *invoice.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.records[tx.Token] = &cp
	return nil
}

func (s *TransactionStore) Get(_ context.Context, token string) (*invoice.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[token]
	if !ok {
		return nil, invoice.ErrTransactionNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *TransactionStore) UpdateStatus(_ context.Context, token string, expected, next invoice.TransactionStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[token]
	if !ok || rec.Status != expected {
		return false, nil
	}
	rec.Status = next
	return true, nil
}

// ExpireDue removes every record whose ttl has passed and returns the
// removed snapshots. The dev server's sweeper feeds these to the expiry
// reactor, standing in for the table's ttl removal stream.
func (s *TransactionStore) ExpireDue(now time.Time) []*invoice.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*invoice.Transaction
	for token, rec := range s.records {
		if rec.TTL <= now.Unix() {
			cp := *rec
			expired = append(expired, &cp)
			delete(s.records, token)
		}
	}
	return expired
}

// InvoiceStore implements invoice.InvoiceRepository.
type InvoiceStore struct {
	mu       sync.Mutex
	invoices map[string]*invoice.Invoice
}

func NewInvoiceStore() *InvoiceStore {
	return &InvoiceStore{invoices: make(map[string]*invoice.Invoice)}
}

func (s *InvoiceStore) Create(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inv
	s.invoices[inv.PK+"|"+inv.InvoiceNumber] = &cp
	return nil
}

// Get is a test and dev helper, not part of the repository contract.
func (s *InvoiceStore) Get(pk, invoiceNumber string) (*invoice.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[pk+"|"+invoiceNumber]
	if !ok {
		return nil, false
	}
	cp := *inv
	return &cp, true
}

// PayloadStore implements invoice.PayloadStore over a map. Presigned
// URLs point at the dev server's upload route.
type PayloadStore struct {
	mu      sync.Mutex
	baseURL string
	bucket  string
	objects map[string][]byte
}

func NewPayloadStore(baseURL, bucket string) *PayloadStore {
	return &PayloadStore{
		baseURL: baseURL,
		bucket:  bucket,
		objects: make(map[string][]byte),
	}
}

// Bucket is the synthetic bucket name objects are filed under.
func (s *PayloadStore) Bucket() string { return s.bucket }

func (s *PayloadStore) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	return fmt.Sprintf("%s/invoices/upload/%s", s.baseURL, key), nil
}

// Put stores an uploaded payload. The dev server's upload handler calls
// this in place of the object store write.
func (s *PayloadStore) Put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = data
}

func (s *PayloadStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("object %s/%s not found", bucket, key)
	}
	return data, nil
}

func (s *PayloadStore) Delete(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, bucket+"/"+key)
	return nil
}

// Has reports whether an object is still stored, for tests.
func (s *PayloadStore) Has(bucket, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[bucket+"/"+key]
	return ok
}
