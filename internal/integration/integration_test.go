package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerce-hub/commerce-hub/internal/application/eventflow"
	"github.com/commerce-hub/commerce-hub/internal/application/importflow"
	orderapp "github.com/commerce-hub/commerce-hub/internal/application/order"
	productapp "github.com/commerce-hub/commerce-hub/internal/application/product"
	"github.com/commerce-hub/commerce-hub/internal/domain/invoice"
	"github.com/commerce-hub/commerce-hub/internal/domain/order"
	"github.com/commerce-hub/commerce-hub/internal/domain/product"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/localhub"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/memory"
)

type env struct {
	transactions *memory.TransactionStore
	invoices     *memory.InvoiceStore
	payloads     *memory.PayloadStore
	hub          *localhub.Hub
	audit        *memory.AuditLog
	imports      *importflow.Service
}

func newEnv() *env {
	logger := zerolog.Nop()
	e := &env{
		transactions: memory.NewTransactionStore(),
		invoices:     memory.NewInvoiceStore(),
		payloads:     memory.NewPayloadStore("http://localhost:8080", "invoices"),
		hub:          localhub.NewHub(logger),
		audit:        memory.NewAuditLog(logger),
	}
	e.imports = importflow.NewService(e.transactions, e.invoices, e.payloads, e.hub, e.audit, "http://localhost:8080", logger)
	return e
}

func drainStatuses(t *testing.T, client *localhub.Client, n int) []string {
	t.Helper()
	statuses := make([]string, 0, n)
	for i := 0; i < n; i++ {
		select {
		case msg := <-client.Messages:
			var parsed struct {
				Status string `json:"status"`
			}
			require.NoError(t, json.Unmarshal(msg, &parsed))
			statuses = append(statuses, parsed.Status)
		case <-time.After(time.Second):
			t.Fatalf("expected %d status messages, got %d", n, len(statuses))
		}
	}
	return statuses
}

func TestImportLifecycle_HappyPath(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	client := e.hub.Register("conn-1")

	target, err := e.imports.RequestUploadTarget(ctx, "conn-1", "req-1")
	require.NoError(t, err)
	assert.Contains(t, target.URL, target.Token)
	assert.Equal(t, invoice.UploadExpirySeconds, target.ExpiresIn)

	payload := `{"customerName":"acme","invoiceNumber":"AB123","totalValue":150,"productId":"p1","quantity":3}`
	e.payloads.Put("invoices", target.Token, []byte(payload))
	require.NoError(t, e.imports.OnPayloadWritten(ctx, "invoices", target.Token))

	statuses := drainStatuses(t, client, 2)
	assert.Equal(t, []string{"INVOICE_RECEIVED", "INVOICE_PROCESSED"}, statuses)

	tx, err := e.transactions.Get(ctx, target.Token)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusInvoiceProcessed, tx.Status)

	inv, ok := e.invoices.Get("#invoice_acme", "AB123")
	require.True(t, ok)
	assert.Equal(t, target.Token, inv.TransactionID)
	assert.False(t, e.payloads.Has("invoices", target.Token))
}

func TestImportLifecycle_InvalidInvoiceNumber(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	client := e.hub.Register("conn-1")

	target, err := e.imports.RequestUploadTarget(ctx, "conn-1", "req-1")
	require.NoError(t, err)

	payload := `{"customerName":"acme","invoiceNumber":"A1","totalValue":150,"productId":"p1","quantity":3}`
	e.payloads.Put("invoices", target.Token, []byte(payload))
	require.NoError(t, e.imports.OnPayloadWritten(ctx, "invoices", target.Token))

	statuses := drainStatuses(t, client, 2)
	assert.Equal(t, []string{"INVOICE_RECEIVED", "NON_VALID_INVOICE_NUMBER"}, statuses)

	tx, err := e.transactions.Get(ctx, target.Token)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusNonValidNumber, tx.Status)

	// Rejected payloads stay in the store for inspection.
	assert.True(t, e.payloads.Has("invoices", target.Token))
}

func TestImportLifecycle_Cancel(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	client := e.hub.Register("conn-1")

	target, err := e.imports.RequestUploadTarget(ctx, "conn-1", "req-1")
	require.NoError(t, err)

	require.NoError(t, e.imports.Cancel(ctx, target.Token, "conn-1"))
	assert.Equal(t, []string{"INVOICE_CANCELLED"}, drainStatuses(t, client, 1))

	tx, err := e.transactions.Get(ctx, target.Token)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusInvoiceCancelled, tx.Status)

	// A late upload against the cancelled transaction is not reprocessed.
	payload := `{"customerName":"acme","invoiceNumber":"AB123","totalValue":150,"productId":"p1","quantity":3}`
	e.payloads.Put("invoices", target.Token, []byte(payload))
	require.NoError(t, e.imports.OnPayloadWritten(ctx, "invoices", target.Token))
	assert.Equal(t, []string{"INVOICE_CANCELLED"}, drainStatuses(t, client, 1))

	_, ok := e.invoices.Get("#invoice_acme", "AB123")
	assert.False(t, ok)
}

func TestImportLifecycle_Expiry(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	client := e.hub.Register("conn-1")

	target, err := e.imports.RequestUploadTarget(ctx, "conn-1", "req-1")
	require.NoError(t, err)

	expired := e.transactions.ExpireDue(time.Now().Add(3 * time.Minute))
	require.Len(t, expired, 1)

	require.NoError(t, e.imports.OnExpired(ctx, expired[0]))

	assert.Equal(t, []string{"TIMEOUT"}, drainStatuses(t, client, 1))
	assert.Equal(t, 0, e.hub.ClientCount())

	entries := e.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, importflow.AuditSource, entries[0].Source)
	assert.Equal(t, importflow.TimeoutDetailType, entries[0].DetailType)
	detail, ok := entries[0].Detail.(importflow.TimeoutDetail)
	require.True(t, ok)
	assert.Equal(t, target.Token, detail.TransactionID)
}

func TestOrderFlow_ProjectsHistory(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	products := memory.NewProductStore()
	orders := memory.NewOrderStore()
	events := memory.NewEventStore()
	topic := memory.NewTopic(logger)
	auditLog := memory.NewAuditLog(logger)

	eventsSvc := eventflow.NewService(events, logger)
	topic.Subscribe(func(env order.Envelope, messageID string) {
		require.NoError(t, eventsSvc.RecordOrderEvent(ctx, env, messageID))
	})

	productSvc := productapp.NewService(products, eventsSvc, logger)
	orderSvc := orderapp.NewService(orders, products, topic, auditLog, logger)

	p, err := productSvc.Create(ctx, product.NewProduct("Widget", "COD1", 12.5, "basic", "https://img.test/w"), "admin@example.test", "req-0")
	require.NoError(t, err)

	o, err := orderSvc.Create(ctx, orderapp.CreateOrderRequest{
		Email:      "alice@example.test",
		ProductIDs: []string{p.ID},
		Payment:    order.PaymentCash,
		Shipping:   order.Shipping{Type: order.ShippingEconomic, Carrier: order.CarrierCorreios},
		RequestID:  "req-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 12.5, o.Billing.TotalPrice)

	_, err = orderSvc.Delete(ctx, "alice@example.test", o.ID, "req-2")
	require.NoError(t, err)

	history, err := eventsSvc.OrderHistory(ctx, "alice@example.test")
	require.NoError(t, err)
	require.Len(t, history, 2)
	types := []string{history[0].EventType, history[1].EventType}
	assert.ElementsMatch(t, []string{"ORDER_CREATED", "ORDER_DELETED"}, types)
}
