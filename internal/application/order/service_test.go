package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	auditMocks "github.com/commerce-hub/commerce-hub/internal/domain/audit/mocks"
	"github.com/commerce-hub/commerce-hub/internal/domain/order"
	orderMocks "github.com/commerce-hub/commerce-hub/internal/domain/order/mocks"
	"github.com/commerce-hub/commerce-hub/internal/domain/product"
	productMocks "github.com/commerce-hub/commerce-hub/internal/domain/product/mocks"
)

type fixture struct {
	orders    *orderMocks.MockRepository
	products  *productMocks.MockRepository
	publisher *orderMocks.MockEventPublisher
	audit     *auditMocks.MockPublisher
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		orders:    orderMocks.NewMockRepository(ctrl),
		products:  productMocks.NewMockRepository(ctrl),
		publisher: orderMocks.NewMockEventPublisher(ctrl),
		audit:     auditMocks.NewMockPublisher(ctrl),
	}
	f.svc = NewService(f.orders, f.products, f.publisher, f.audit, zerolog.Nop())
	return f
}

func TestService_Create(t *testing.T) {
	req := CreateOrderRequest{
		Email:      "alice@example.test",
		ProductIDs: []string{"p1", "p2"},
		Payment:    order.PaymentCreditCard,
		Shipping:   order.Shipping{Type: order.ShippingUrgent, Carrier: order.CarrierSedex},
		RequestID:  "req-1",
	}

	t.Run("snapshots products and publishes event", func(t *testing.T) {
		f := newFixture(t)

		f.products.EXPECT().GetByIDs(gomock.Any(), []string{"p1", "p2"}).Return([]*product.Product{
			{ID: "p1", Code: "COD1", Price: 10},
			{ID: "p2", Code: "COD2", Price: 25.5},
		}, nil)
		f.orders.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, o *order.Order) error {
				assert.Equal(t, "alice@example.test", o.Email)
				assert.NotEmpty(t, o.ID)
				assert.Equal(t, 35.5, o.Billing.TotalPrice)
				assert.Equal(t, order.PaymentCreditCard, o.Billing.Payment)
				return nil
			})
		f.publisher.EXPECT().
			Publish(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, env order.Envelope) (string, error) {
				assert.Equal(t, order.EventCreated, env.EventType)
				var ev order.Event
				require.NoError(t, json.Unmarshal([]byte(env.Data), &ev))
				assert.Equal(t, []string{"COD1", "COD2"}, ev.ProductCodes)
				assert.Equal(t, "req-1", ev.RequestID)
				return "msg-1", nil
			})

		o, err := f.svc.Create(context.Background(), req)
		require.NoError(t, err)
		require.NotNil(t, o)
	})

	t.Run("missing product rejects and audits", func(t *testing.T) {
		f := newFixture(t)

		f.products.EXPECT().GetByIDs(gomock.Any(), []string{"p1", "p2"}).
			Return([]*product.Product{{ID: "p1", Code: "COD1", Price: 10}}, nil)
		f.audit.EXPECT().
			Publish(gomock.Any(), AuditSource, "order", gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, detail any) error {
				d, ok := detail.(InvalidOrderDetail)
				require.True(t, ok)
				assert.Equal(t, "PRODUCT_NOT_FOUND", d.Reason)
				assert.Equal(t, "alice@example.test", d.Email)
				return nil
			})

		_, err := f.svc.Create(context.Background(), req)
		require.ErrorIs(t, err, product.ErrProductNotFound)
	})

	t.Run("publish failure does not fail the order", func(t *testing.T) {
		f := newFixture(t)

		f.products.EXPECT().GetByIDs(gomock.Any(), gomock.Any()).
			Return([]*product.Product{{ID: "p1"}, {ID: "p2"}}, nil)
		f.orders.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return("", errors.New("topic down"))

		o, err := f.svc.Create(context.Background(), req)
		require.NoError(t, err)
		require.NotNil(t, o)
	})
}

func TestService_Delete(t *testing.T) {
	t.Run("publishes ORDER_DELETED", func(t *testing.T) {
		f := newFixture(t)

		deleted := &order.Order{Email: "alice@example.test", ID: "o1", Products: []order.ProductSnapshot{{Code: "COD1"}}}
		f.orders.EXPECT().Delete(gomock.Any(), "alice@example.test", "o1").Return(deleted, nil)
		f.publisher.EXPECT().
			Publish(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, env order.Envelope) (string, error) {
				assert.Equal(t, order.EventDeleted, env.EventType)
				return "msg-2", nil
			})

		o, err := f.svc.Delete(context.Background(), "alice@example.test", "o1", "req-9")
		require.NoError(t, err)
		assert.Equal(t, deleted, o)
	})

	t.Run("missing order surfaces ErrOrderNotFound", func(t *testing.T) {
		f := newFixture(t)

		f.orders.EXPECT().Delete(gomock.Any(), "alice@example.test", "o9").Return(nil, order.ErrOrderNotFound)

		_, err := f.svc.Delete(context.Background(), "alice@example.test", "o9", "req-9")
		require.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}
