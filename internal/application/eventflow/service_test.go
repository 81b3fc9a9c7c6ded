package eventflow

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/commerce-hub/commerce-hub/internal/domain/event"
	"github.com/commerce-hub/commerce-hub/internal/domain/event/mocks"
	"github.com/commerce-hub/commerce-hub/internal/domain/invoice"
	"github.com/commerce-hub/commerce-hub/internal/domain/order"
	"github.com/commerce-hub/commerce-hub/internal/domain/product"
)

func TestService_RecordInvoiceCreated(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	svc := NewService(repo, zerolog.Nop())

	inv := &invoice.Invoice{
		PK:            "#invoice_acme",
		InvoiceNumber: "AB123",
		ProductID:     "p1",
		TransactionID: "tok-1",
	}

	repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *event.Record) error {
			assert.Equal(t, "#invoice_AB123", rec.PK)
			assert.Equal(t, "INVOICE_CREATED", rec.EventType)
			assert.Equal(t, "acme", rec.Email)
			assert.Equal(t, "tok-1", rec.Info["transaction"])
			assert.Equal(t, "p1", rec.Info["productId"])
			assert.InDelta(t, time.Now().Add(time.Hour).Unix(), rec.TTL, 2)
			return nil
		})

	require.NoError(t, svc.RecordInvoiceCreated(context.Background(), inv))
}

func TestService_RecordOrderEvent(t *testing.T) {
	t.Run("persists envelope data", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		svc := NewService(repo, zerolog.Nop())

		env, err := order.NewEnvelope(order.EventCreated, order.Event{
			Email:        "alice@example.test",
			OrderID:      "o1",
			ProductCodes: []string{"COD1"},
			RequestID:    "req-1",
		})
		require.NoError(t, err)

		repo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, rec *event.Record) error {
				assert.Equal(t, "#order_o1", rec.PK)
				assert.Equal(t, "ORDER_CREATED", rec.EventType)
				assert.Equal(t, "alice@example.test", rec.Email)
				assert.Equal(t, "req-1", rec.RequestID)
				assert.Equal(t, "msg-1", rec.Info["messageId"])
				return nil
			})

		require.NoError(t, svc.RecordOrderEvent(context.Background(), env, "msg-1"))
	})

	t.Run("rejects malformed envelope", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		svc := NewService(repo, zerolog.Nop())

		env := order.Envelope{EventType: order.EventCreated, Data: "not json"}
		require.Error(t, svc.RecordOrderEvent(context.Background(), env, "msg-1"))
	})
}

func TestService_RecordProductEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	svc := NewService(repo, zerolog.Nop())

	repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *event.Record) error {
			assert.Equal(t, "#product_COD1", rec.PK)
			assert.Equal(t, "PRODUCT_CREATED", rec.EventType)
			assert.Equal(t, "admin@example.test", rec.Email)
			return nil
		})

	ev := product.Event{
		RequestID:    "req-1",
		EventType:    product.EventCreated,
		ProductID:    "p1",
		ProductCode:  "COD1",
		ProductPrice: 10,
		Email:        "admin@example.test",
	}
	require.NoError(t, svc.RecordProductEvent(context.Background(), ev))
}
