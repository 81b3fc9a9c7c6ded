// Websocket route handler for import cancellation requests.
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

type cancelRequest struct {
	TransactionID string `json:"transactionId"`
}

type handler struct {
	svc    *importflow.Service
	logger zerolog.Logger
}

func (h *handler) handle(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body cancelRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil || body.TransactionID == "" {
		h.logger.Warn().
			Str("connection_id", req.RequestContext.ConnectionID).
			Msg("malformed cancel request")
		return events.APIGatewayProxyResponse{StatusCode: 400}, nil
	}

	if err := h.svc.Cancel(ctx, body.TransactionID, req.RequestContext.ConnectionID); err != nil {
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
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

	svc := importflow.NewService(
		dynamo.NewTransactionRepository(ddbClient, cfg.InvoicesTable),
		dynamo.NewInvoiceRepository(ddbClient, cfg.InvoicesTable),
		s3store.NewPayloadStore(s3Client, s3.NewPresignClient(s3Client), cfg.InvoicesBucket),
		wsapi.NewNotifier(wsClient, logger),
		eventbus.NewPublisher(eventbridge.NewFromConfig(awsCfg), cfg.AuditBusName),
		cfg.WSAPIEndpoint,
		logger,
	)

	h := &handler{svc: svc, logger: logger}
	lambda.Start(h.handle)
}
