// REST handler for order operations and order history reads.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"

	"github.com/commerce-hub/commerce-hub/internal/application/eventflow"
	orderapp "github.com/commerce-hub/commerce-hub/internal/application/order"
	"github.com/commerce-hub/commerce-hub/internal/config"
	"github.com/commerce-hub/commerce-hub/internal/domain/order"
	"github.com/commerce-hub/commerce-hub/internal/domain/product"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/dynamo"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/eventbus"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/snsbus"
)

type createOrderBody struct {
	Email      string   `json:"email"`
	ProductIDs []string `json:"productIds"`
	Payment    string   `json:"payment"`
	Shipping   struct {
		Type    string `json:"type"`
		Carrier string `json:"carrier"`
	} `json:"shipping"`
}

type handler struct {
	orders *orderapp.Service
	events *eventflow.Service
	logger zerolog.Logger
}

func (h *handler) handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if strings.HasSuffix(req.Resource, "/events") {
		return h.orderHistory(ctx, req)
	}

	switch req.HTTPMethod {
	case http.MethodGet:
		return h.get(ctx, req)
	case http.MethodPost:
		return h.create(ctx, req)
	case http.MethodDelete:
		return h.delete(ctx, req)
	}
	return respond(405, map[string]string{"message": "method not allowed"})
}

func (h *handler) get(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	email := req.QueryStringParameters["email"]
	orderID := req.QueryStringParameters["orderId"]

	switch {
	case email != "" && orderID != "":
		o, err := h.orders.Get(ctx, email, orderID)
		if errors.Is(err, order.ErrOrderNotFound) {
			return respond(404, map[string]string{"message": "order not found"})
		}
		if err != nil {
			return events.APIGatewayProxyResponse{StatusCode: 500}, err
		}
		return respond(200, o)
	case email != "":
		list, err := h.orders.GetByEmail(ctx, email)
		if err != nil {
			return events.APIGatewayProxyResponse{StatusCode: 500}, err
		}
		return respond(200, list)
	default:
		list, err := h.orders.GetAll(ctx)
		if err != nil {
			return events.APIGatewayProxyResponse{StatusCode: 500}, err
		}
		return respond(200, list)
	}
}

func (h *handler) create(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body createOrderBody
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return respond(400, map[string]string{"message": "malformed order payload"})
	}

	o, err := h.orders.Create(ctx, orderapp.CreateOrderRequest{
		Email:      body.Email,
		ProductIDs: body.ProductIDs,
		Payment:    order.PaymentType(body.Payment),
		Shipping: order.Shipping{
			Type:    order.ShippingType(body.Shipping.Type),
			Carrier: order.CarrierType(body.Shipping.Carrier),
		},
		RequestID: req.RequestContext.RequestID,
	})
	if errors.Is(err, product.ErrProductNotFound) {
		return respond(404, map[string]string{"message": "some product was not found"})
	}
	if err != nil {
		h.logger.Error().Err(err).Str("email", body.Email).Msg("order creation failed")
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}
	return respond(201, o)
}

func (h *handler) delete(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	email := req.QueryStringParameters["email"]
	orderID := req.QueryStringParameters["orderId"]
	if email == "" || orderID == "" {
		return respond(400, map[string]string{"message": "email and orderId are required"})
	}

	o, err := h.orders.Delete(ctx, email, orderID, req.RequestContext.RequestID)
	if errors.Is(err, order.ErrOrderNotFound) {
		return respond(404, map[string]string{"message": "order not found"})
	}
	if err != nil {
		h.logger.Error().Err(err).Str("orderId", orderID).Msg("order deletion failed")
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}
	return respond(200, o)
}

func (h *handler) orderHistory(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	email := req.QueryStringParameters["email"]
	if email == "" {
		return respond(400, map[string]string{"message": "email is required"})
	}
	recs, err := h.events.OrderHistory(ctx, email)
	if err != nil {
		h.logger.Error().Err(err).Str("email", email).Msg("order history query failed")
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}
	return respond(200, recs)
}

func respond(status int, body any) (events.APIGatewayProxyResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}, nil
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("aws config error: %v", err)
	}

	ddbClient := dynamodb.NewFromConfig(awsCfg)
	eventsSvc := eventflow.NewService(dynamo.NewEventRepository(ddbClient, cfg.EventsTable), logger)

	// Missing-product rejections are reported on the audit bus.
	auditBus := eventbus.NewPublisher(eventbridge.NewFromConfig(awsCfg), cfg.AuditBusName)

	ordersSvc := orderapp.NewService(
		dynamo.NewOrderRepository(ddbClient, cfg.OrdersTable),
		dynamo.NewProductRepository(ddbClient, cfg.ProductsTable),
		snsbus.NewPublisher(sns.NewFromConfig(awsCfg), cfg.OrderEventsTopicARN),
		auditBus,
		logger,
	)

	h := &handler{orders: ordersSvc, events: eventsSvc, logger: logger}
	lambda.Start(h.handle)
}
