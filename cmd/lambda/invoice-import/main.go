// Storage-event handler driving invoice payload processing.
package main

import (
	"context"
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

func (h *handler) handle(ctx context.Context, event events.S3Event) error {
	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key := record.S3.Object.Key
		if err := h.svc.OnPayloadWritten(ctx, bucket, key); err != nil {
			h.logger.Error().Err(err).
				Str("bucket", bucket).
				Str("key", key).
				Msg("payload processing failed")
			return err
		}
	}
	return nil
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
