package invoice

import (
	"errors"
	"testing"
)

func TestFileValidate(t *testing.T) {
	ok := &File{CustomerName: "acme", InvoiceNumber: "AB123"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected %q to be valid: %v", ok.InvoiceNumber, err)
	}

	bad := &File{CustomerName: "acme", InvoiceNumber: "AB12"}
	err := bad.Validate()
	if err == nil {
		t.Fatalf("expected %q to be rejected", bad.InvoiceNumber)
	}
	if !errors.Is(err, ErrInvalidInvoiceNumber) {
		t.Fatalf("expected ErrInvalidInvoiceNumber, got %v", err)
	}
}

func TestNewInvoice(t *testing.T) {
	file := &File{
		CustomerName:  "acme",
		InvoiceNumber: "AB123",
		TotalValue:    99.5,
		ProductID:     "p1",
		Quantity:      3,
	}
	inv := NewInvoice(file, "tok-1")

	if inv.PK != "#invoice_acme" {
		t.Fatalf("unexpected partition key %q", inv.PK)
	}
	if inv.InvoiceNumber != "AB123" {
		t.Fatalf("unexpected sort key %q", inv.InvoiceNumber)
	}
	if inv.TransactionID != "tok-1" {
		t.Fatalf("expected back-reference to transaction, got %q", inv.TransactionID)
	}
	if inv.TotalValue != 99.5 || inv.ProductID != "p1" || inv.Quantity != 3 {
		t.Fatalf("payload fields not carried over: %+v", inv)
	}
	if inv.CreatedAt == 0 {
		t.Fatal("expected createdAt to be set")
	}
}
