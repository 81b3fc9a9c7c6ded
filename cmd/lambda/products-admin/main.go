// REST handler for catalog mutations.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"

	"github.com/commerce-hub/commerce-hub/internal/application/eventflow"
	productapp "github.com/commerce-hub/commerce-hub/internal/application/product"
	"github.com/commerce-hub/commerce-hub/internal/config"
	"github.com/commerce-hub/commerce-hub/internal/domain/product"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/dynamo"
)

type productRequest struct {
	ProductName string  `json:"productName"`
	Code        string  `json:"code"`
	Price       float64 `json:"price"`
	Model       string  `json:"model"`
	ProductURL  string  `json:"productUrl"`
}

type handler struct {
	svc    *productapp.Service
	logger zerolog.Logger
}

func (h *handler) handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	email := userEmail(req)
	requestID := req.RequestContext.RequestID

	switch req.HTTPMethod {
	case http.MethodPost:
		var body productRequest
		if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
			return respond(400, map[string]string{"message": "malformed product payload"})
		}
		p := product.NewProduct(body.ProductName, body.Code, body.Price, body.Model, body.ProductURL)
		created, err := h.svc.Create(ctx, p, email, requestID)
		if err != nil {
			h.logger.Error().Err(err).Msg("product creation failed")
			return events.APIGatewayProxyResponse{StatusCode: 500}, err
		}
		return respond(201, created)

	case http.MethodPut:
		id := req.PathParameters["id"]
		var body productRequest
		if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
			return respond(400, map[string]string{"message": "malformed product payload"})
		}
		p := &product.Product{
			ID:          id,
			ProductName: body.ProductName,
			Code:        body.Code,
			Price:       body.Price,
			Model:       body.Model,
			ProductURL:  body.ProductURL,
		}
		updated, err := h.svc.Update(ctx, p, email, requestID)
		if errors.Is(err, product.ErrProductNotFound) {
			return respond(404, map[string]string{"message": "product not found"})
		}
		if err != nil {
			h.logger.Error().Err(err).Str("product_id", id).Msg("product update failed")
			return events.APIGatewayProxyResponse{StatusCode: 500}, err
		}
		return respond(200, updated)

	case http.MethodDelete:
		id := req.PathParameters["id"]
		removed, err := h.svc.Delete(ctx, id, email, requestID)
		if errors.Is(err, product.ErrProductNotFound) {
			return respond(404, map[string]string{"message": "product not found"})
		}
		if err != nil {
			h.logger.Error().Err(err).Str("product_id", id).Msg("product deletion failed")
			return events.APIGatewayProxyResponse{StatusCode: 500}, err
		}
		return respond(200, removed)
	}

	return respond(405, map[string]string{"message": "method not allowed"})
}

// userEmail resolves the acting user from the authorizer claims, falling
// back to an explicit header for unauthenticated stages.
func userEmail(req events.APIGatewayProxyRequest) string {
	if claims, ok := req.RequestContext.Authorizer["claims"].(map[string]any); ok {
		if email, ok := claims["email"].(string); ok {
			return email
		}
	}
	return req.Headers["x-user-email"]
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
	svc := productapp.NewService(dynamo.NewProductRepository(ddbClient, cfg.ProductsTable), eventsSvc, logger)

	h := &handler{svc: svc, logger: logger}
	lambda.Start(h.handle)
}
