package invoice

import (
	"testing"
	"time"
)

func TestNewTransaction(t *testing.T) {
	before := time.Now().UTC()
	tx := NewTransaction("c1", "req-1", "wss://example.test")
	after := time.Now().UTC()

	if tx.PK != TransactionPartition {
		t.Fatalf("expected partition %q, got %q", TransactionPartition, tx.PK)
	}
	if tx.Token == "" {
		t.Fatal("expected a minted token")
	}
	if tx.Status != StatusURLGenerated {
		t.Fatalf("expected status %s, got %s", StatusURLGenerated, tx.Status)
	}
	if tx.ConnectionID != "c1" || tx.RequestID != "req-1" {
		t.Fatalf("unexpected connection/request ids: %q %q", tx.ConnectionID, tx.RequestID)
	}
	if tx.ExpiresIn != UploadExpirySeconds {
		t.Fatalf("expected advisory window %d, got %d", UploadExpirySeconds, tx.ExpiresIn)
	}

	// ttl is set from the grace period, independent of the advisory window
	min := before.Add(2 * time.Minute).Unix()
	max := after.Add(2 * time.Minute).Unix()
	if tx.TTL < min || tx.TTL > max {
		t.Fatalf("expected ttl in [%d,%d], got %d", min, max, tx.TTL)
	}
}

func TestNewTransactionMintsUniqueTokens(t *testing.T) {
	a := NewTransaction("c1", "r1", "ep")
	b := NewTransaction("c1", "r2", "ep")
	if a.Token == b.Token {
		t.Fatalf("expected unique tokens, both %q", a.Token)
	}
}

func TestCanTransitionTo(t *testing.T) {
	allowed := []struct {
		from, to TransactionStatus
	}{
		{StatusURLGenerated, StatusInvoiceReceived},
		{StatusURLGenerated, StatusInvoiceCancelled},
		{StatusInvoiceReceived, StatusInvoiceProcessed},
		{StatusInvoiceReceived, StatusNonValidNumber},
	}
	for _, tc := range allowed {
		tx := &Transaction{Status: tc.from}
		if !tx.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	all := []TransactionStatus{
		StatusURLGenerated, StatusInvoiceReceived, StatusInvoiceProcessed,
		StatusInvoiceCancelled, StatusNonValidNumber, StatusTimeout,
	}
	isAllowed := func(from, to TransactionStatus) bool {
		for _, tc := range allowed {
			if tc.from == from && tc.to == to {
				return true
			}
		}
		return false
	}
	for _, from := range all {
		for _, to := range all {
			tx := &Transaction{Status: from}
			if tx.CanTransitionTo(to) != isAllowed(from, to) {
				t.Fatalf("unexpected transition verdict for %s -> %s", from, to)
			}
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []TransactionStatus{
		StatusInvoiceProcessed, StatusInvoiceCancelled, StatusNonValidNumber, StatusTimeout,
	}
	for _, s := range terminal {
		tx := &Transaction{Status: s}
		if !tx.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range []TransactionStatus{StatusURLGenerated, StatusInvoiceReceived} {
		tx := &Transaction{Status: s}
		if tx.IsTerminal() {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
}
