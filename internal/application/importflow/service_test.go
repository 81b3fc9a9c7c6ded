package importflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	auditMocks "github.com/commerce-hub/commerce-hub/internal/domain/audit/mocks"
	"github.com/commerce-hub/commerce-hub/internal/domain/invoice"
	"github.com/commerce-hub/commerce-hub/internal/domain/invoice/mocks"
)

type fixture struct {
	transactions *mocks.MockTransactionRepository
	invoices     *mocks.MockInvoiceRepository
	payloads     *mocks.MockPayloadStore
	notifier     *mocks.MockChannelNotifier
	audit        *auditMocks.MockPublisher
	svc          *Service
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		transactions: mocks.NewMockTransactionRepository(ctrl),
		invoices:     mocks.NewMockInvoiceRepository(ctrl),
		payloads:     mocks.NewMockPayloadStore(ctrl),
		notifier:     mocks.NewMockChannelNotifier(ctrl),
		audit:        auditMocks.NewMockPublisher(ctrl),
	}
	f.svc = NewService(f.transactions, f.invoices, f.payloads, f.notifier, f.audit, "wss://example.test", zerolog.Nop())
	return f
}

func TestService_RequestUploadTarget(t *testing.T) {
	t.Run("creates URL_GENERATED transaction and returns target", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		var created *invoice.Transaction
		f.payloads.EXPECT().
			PresignPut(gomock.Any(), gomock.Any(), time.Duration(invoice.UploadExpirySeconds)*time.Second).
			Return("https://bucket.test/upload", nil)
		f.transactions.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, tx *invoice.Transaction) error {
				created = tx
				assert.Equal(t, invoice.StatusURLGenerated, tx.Status)
				assert.Equal(t, "c1", tx.ConnectionID)
				assert.Equal(t, "req-1", tx.RequestID)
				assert.Equal(t, "wss://example.test", tx.Endpoint)
				assert.InDelta(t, time.Now().Add(120*time.Second).Unix(), tx.TTL, 2)
				return nil
			})

		target, err := f.svc.RequestUploadTarget(ctx, "c1", "req-1")

		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, created.Token, target.Token)
		assert.Equal(t, "https://bucket.test/upload", target.URL)
		assert.Equal(t, invoice.UploadExpirySeconds, target.ExpiresIn)
	})

	t.Run("store failure aborts", func(t *testing.T) {
		f := newFixture(t)

		f.payloads.EXPECT().
			PresignPut(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("https://bucket.test/upload", nil)
		f.transactions.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(errors.New("store unavailable"))

		_, err := f.svc.RequestUploadTarget(context.Background(), "c1", "req-1")
		require.Error(t, err)
	})
}

func TestService_OnPayloadWritten(t *testing.T) {
	tx := func(status invoice.TransactionStatus) *invoice.Transaction {
		return &invoice.Transaction{
			PK:           invoice.TransactionPartition,
			Token:        "tok-1",
			ConnectionID: "c1",
			Status:       status,
		}
	}

	t.Run("valid payload is processed", func(t *testing.T) {
		f := newFixture(t)

		f.transactions.EXPECT().Get(gomock.Any(), "tok-1").Return(tx(invoice.StatusURLGenerated), nil)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-1", "c1", invoice.StatusInvoiceReceived).Return(true)
		f.transactions.EXPECT().
			UpdateStatus(gomock.Any(), "tok-1", invoice.StatusURLGenerated, invoice.StatusInvoiceReceived).
			Return(true, nil)
		f.payloads.EXPECT().
			Get(gomock.Any(), "bucket", "tok-1").
			Return([]byte(`{"customerName":"acme","invoiceNumber":"AB123","totalValue":10,"productId":"p1","quantity":2}`), nil)
		f.invoices.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
				assert.Equal(t, "#invoice_acme", inv.PK)
				assert.Equal(t, "AB123", inv.InvoiceNumber)
				assert.Equal(t, "tok-1", inv.TransactionID)
				return nil
			})
		f.payloads.EXPECT().Delete(gomock.Any(), "bucket", "tok-1").Return(nil)
		f.transactions.EXPECT().
			UpdateStatus(gomock.Any(), "tok-1", invoice.StatusInvoiceReceived, invoice.StatusInvoiceProcessed).
			Return(true, nil)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-1", "c1", invoice.StatusInvoiceProcessed).Return(true)

		require.NoError(t, f.svc.OnPayloadWritten(context.Background(), "bucket", "tok-1"))
	})

	t.Run("short invoice number is rejected, payload retained", func(t *testing.T) {
		f := newFixture(t)

		f.transactions.EXPECT().Get(gomock.Any(), "tok-1").Return(tx(invoice.StatusURLGenerated), nil)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-1", "c1", invoice.StatusInvoiceReceived).Return(true)
		f.transactions.EXPECT().
			UpdateStatus(gomock.Any(), "tok-1", invoice.StatusURLGenerated, invoice.StatusInvoiceReceived).
			Return(true, nil)
		f.payloads.EXPECT().
			Get(gomock.Any(), "bucket", "tok-1").
			Return([]byte(`{"customerName":"acme","invoiceNumber":"AB12","totalValue":10,"productId":"p1","quantity":2}`), nil)
		// no invoice create, no payload delete
		f.transactions.EXPECT().
			UpdateStatus(gomock.Any(), "tok-1", invoice.StatusInvoiceReceived, invoice.StatusNonValidNumber).
			Return(true, nil)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-1", "c1", invoice.StatusNonValidNumber).Return(true)

		require.NoError(t, f.svc.OnPayloadWritten(context.Background(), "bucket", "tok-1"))
	})

	t.Run("malformed payload is a non valid outcome", func(t *testing.T) {
		f := newFixture(t)

		f.transactions.EXPECT().Get(gomock.Any(), "tok-1").Return(tx(invoice.StatusURLGenerated), nil)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-1", "c1", invoice.StatusInvoiceReceived).Return(true)
		f.transactions.EXPECT().
			UpdateStatus(gomock.Any(), "tok-1", invoice.StatusURLGenerated, invoice.StatusInvoiceReceived).
			Return(true, nil)
		f.payloads.EXPECT().Get(gomock.Any(), "bucket", "tok-1").Return([]byte(`not json`), nil)
		f.transactions.EXPECT().
			UpdateStatus(gomock.Any(), "tok-1", invoice.StatusInvoiceReceived, invoice.StatusNonValidNumber).
			Return(true, nil)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-1", "c1", invoice.StatusNonValidNumber).Return(true)

		require.NoError(t, f.svc.OnPayloadWritten(context.Background(), "bucket", "tok-1"))
	})

	t.Run("duplicate delivery reports stored status and stops", func(t *testing.T) {
		f := newFixture(t)

		f.transactions.EXPECT().Get(gomock.Any(), "tok-1").Return(tx(invoice.StatusInvoiceProcessed), nil)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-1", "c1", invoice.StatusInvoiceProcessed).Return(true)

		require.NoError(t, f.svc.OnPayloadWritten(context.Background(), "bucket", "tok-1"))
	})

	t.Run("missing record aborts without notification", func(t *testing.T) {
		f := newFixture(t)

		f.transactions.EXPECT().Get(gomock.Any(), "tok-1").Return(nil, invoice.ErrTransactionNotFound)

		err := f.svc.OnPayloadWritten(context.Background(), "bucket", "tok-1")
		require.ErrorIs(t, err, invoice.ErrTransactionNotFound)
	})

	t.Run("lost status race is soft, processing continues", func(t *testing.T) {
		f := newFixture(t)

		f.transactions.EXPECT().Get(gomock.Any(), "tok-1").Return(tx(invoice.StatusURLGenerated), nil)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-1", "c1", invoice.StatusInvoiceReceived).Return(true)
		f.transactions.EXPECT().
			UpdateStatus(gomock.Any(), "tok-1", invoice.StatusURLGenerated, invoice.StatusInvoiceReceived).
			Return(false, nil)
		f.payloads.EXPECT().
			Get(gomock.Any(), "bucket", "tok-1").
			Return([]byte(`{"customerName":"acme","invoiceNumber":"AB123","totalValue":10,"productId":"p1","quantity":2}`), nil)
		f.invoices.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		f.payloads.EXPECT().Delete(gomock.Any(), "bucket", "tok-1").Return(nil)
		f.transactions.EXPECT().
			UpdateStatus(gomock.Any(), "tok-1", invoice.StatusInvoiceReceived, invoice.StatusInvoiceProcessed).
			Return(false, nil)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-1", "c1", invoice.StatusInvoiceProcessed).Return(true)

		require.NoError(t, f.svc.OnPayloadWritten(context.Background(), "bucket", "tok-1"))
	})

	t.Run("download failure still notifies the client", func(t *testing.T) {
		f := newFixture(t)

		f.transactions.EXPECT().Get(gomock.Any(), "tok-1").Return(tx(invoice.StatusURLGenerated), nil)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-1", "c1", invoice.StatusInvoiceReceived).Return(true).Times(2)
		f.transactions.EXPECT().
			UpdateStatus(gomock.Any(), "tok-1", invoice.StatusURLGenerated, invoice.StatusInvoiceReceived).
			Return(true, nil)
		f.payloads.EXPECT().Get(gomock.Any(), "bucket", "tok-1").Return(nil, errors.New("object store down"))

		require.Error(t, f.svc.OnPayloadWritten(context.Background(), "bucket", "tok-1"))
	})
}

func TestService_Cancel(t *testing.T) {
	t.Run("pending transaction is cancelled", func(t *testing.T) {
		f := newFixture(t)

		f.transactions.EXPECT().Get(gomock.Any(), "tok-1").
			Return(&invoice.Transaction{Token: "tok-1", ConnectionID: "c1", Status: invoice.StatusURLGenerated}, nil)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-1", "c1", invoice.StatusInvoiceCancelled).Return(true)
		f.transactions.EXPECT().
			UpdateStatus(gomock.Any(), "tok-1", invoice.StatusURLGenerated, invoice.StatusInvoiceCancelled).
			Return(true, nil)

		require.NoError(t, f.svc.Cancel(context.Background(), "tok-1", "c1"))
	})

	t.Run("processed transaction stays processed", func(t *testing.T) {
		f := newFixture(t)

		f.transactions.EXPECT().Get(gomock.Any(), "tok-1").
			Return(&invoice.Transaction{Token: "tok-1", ConnectionID: "c1", Status: invoice.StatusInvoiceProcessed}, nil)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-1", "c1", invoice.StatusInvoiceProcessed).Return(true)

		require.NoError(t, f.svc.Cancel(context.Background(), "tok-1", "c1"))
	})

	t.Run("unknown token reports NOT_FOUND and swallows the error", func(t *testing.T) {
		f := newFixture(t)

		f.transactions.EXPECT().Get(gomock.Any(), "tok-9").Return(nil, invoice.ErrTransactionNotFound)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-9", "c1", invoice.StatusNotFound).Return(true)

		require.NoError(t, f.svc.Cancel(context.Background(), "tok-9", "c1"))
	})

	t.Run("lookup infrastructure failure also reports NOT_FOUND", func(t *testing.T) {
		f := newFixture(t)

		f.transactions.EXPECT().Get(gomock.Any(), "tok-9").Return(nil, errors.New("store unavailable"))
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-9", "c1", invoice.StatusNotFound).Return(true)

		require.NoError(t, f.svc.Cancel(context.Background(), "tok-9", "c1"))
	})
}

func TestService_OnExpired(t *testing.T) {
	t.Run("unprocessed expiry audits once and disconnects", func(t *testing.T) {
		f := newFixture(t)

		snapshot := &invoice.Transaction{Token: "tok-1", ConnectionID: "c1", Status: invoice.StatusURLGenerated}

		f.audit.EXPECT().
			Publish(gomock.Any(), AuditSource, TimeoutDetailType, gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, detail any) error {
				d, ok := detail.(TimeoutDetail)
				require.True(t, ok)
				assert.Equal(t, "TIMEOUT", d.ErrorCode)
				assert.Equal(t, "tok-1", d.TransactionID)
				return nil
			}).
			Times(1)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-1", "c1", invoice.StatusTimeout).Return(true)
		f.notifier.EXPECT().Disconnect(gomock.Any(), "c1").Return(true).Times(1)

		require.NoError(t, f.svc.OnExpired(context.Background(), snapshot))
	})

	t.Run("processed expiry is a no-op", func(t *testing.T) {
		f := newFixture(t)

		snapshot := &invoice.Transaction{Token: "tok-1", ConnectionID: "c1", Status: invoice.StatusInvoiceProcessed}
		require.NoError(t, f.svc.OnExpired(context.Background(), snapshot))
	})

	t.Run("expired while received still audits", func(t *testing.T) {
		f := newFixture(t)

		snapshot := &invoice.Transaction{Token: "tok-2", ConnectionID: "c2", Status: invoice.StatusInvoiceReceived}

		f.audit.EXPECT().Publish(gomock.Any(), AuditSource, TimeoutDetailType, gomock.Any()).Return(nil)
		f.notifier.EXPECT().SendStatus(gomock.Any(), "tok-2", "c2", invoice.StatusTimeout).Return(true)
		f.notifier.EXPECT().Disconnect(gomock.Any(), "c2").Return(true)

		require.NoError(t, f.svc.OnExpired(context.Background(), snapshot))
	})
}
