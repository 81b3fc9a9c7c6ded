// REST handler for catalog reads.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
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

type handler struct {
	svc    *productapp.Service
	logger zerolog.Logger
}

func (h *handler) handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if id, ok := req.PathParameters["id"]; ok {
		p, err := h.svc.GetByID(ctx, id)
		if errors.Is(err, product.ErrProductNotFound) {
			return respond(404, map[string]string{"message": "product not found"})
		}
		if err != nil {
			h.logger.Error().Err(err).Str("product_id", id).Msg("product lookup failed")
			return events.APIGatewayProxyResponse{StatusCode: 500}, err
		}
		return respond(200, p)
	}

	items, err := h.svc.GetAll(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("product listing failed")
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}
	return respond(200, items)
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
