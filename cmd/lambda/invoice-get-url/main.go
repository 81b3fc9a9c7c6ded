// Websocket route handler minting presigned upload targets.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/commerce-hub/commerce-hub/internal/application/importflow"
	"github.com/commerce-hub/commerce-hub/internal/config"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/dynamo"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/eventbus"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/s3store"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/wsapi"
)

type handler struct {
	svc    *importflow.Service
	logger zerolog.Logger
}

func (h *handler) handle(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	target, err := h.svc.RequestUploadTarget(ctx, req.RequestContext.ConnectionID, req.RequestContext.RequestID)
	if err != nil {
		h.logger.Error().Err(err).
			Str("connection_id", req.RequestContext.ConnectionID).
			Msg("failed to mint upload target")
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}

	body, err := json.Marshal(target)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}
	return events.APIGatewayProxyResponse{StatusCode: 200, Body: string(body)}, nil
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

	s3Client := s3.NewFromConfig(awsCfg)
	ddbClient := dynamodb.NewFromConfig(awsCfg)
	wsClient := apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(cfg.WSAPIEndpoint)
	})
	ebClient := eventbridge.NewFromConfig(awsCfg)

	svc := importflow.NewService(
		dynamo.NewTransactionRepository(ddbClient, cfg.InvoicesTable),
		dynamo.NewInvoiceRepository(ddbClient, cfg.InvoicesTable),
		s3store.NewPayloadStore(s3Client, s3.NewPresignClient(s3Client), cfg.InvoicesBucket),
		wsapi.NewNotifier(wsClient, logger),
		eventbus.NewPublisher(ebClient, cfg.AuditBusName),
		cfg.WSAPIEndpoint,
		logger,
	)

	h := &handler{svc: svc, logger: logger}
	lambda.Start(h.handle)
}
