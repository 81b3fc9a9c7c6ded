// Stream handler projecting invoice writes into the events table and
// reacting to expired transaction records.
package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/commerce-hub/commerce-hub/internal/application/eventflow"
	"github.com/commerce-hub/commerce-hub/internal/application/importflow"
	"github.com/commerce-hub/commerce-hub/internal/config"
	"github.com/commerce-hub/commerce-hub/internal/domain/invoice"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/dynamo"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/eventbus"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/s3store"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/wsapi"
)

type handler struct {
	imports *importflow.Service
	events  *eventflow.Service
	logger  zerolog.Logger
}

func (h *handler) handle(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		switch events.DynamoDBOperationType(record.EventName) {
		case events.DynamoDBOperationTypeInsert:
			pk := stringAttr(record.Change.NewImage, "pk")
			if !strings.HasPrefix(pk, "#invoice_") {
				continue
			}
			inv := invoiceFromImage(record.Change.NewImage)
			if err := h.events.RecordInvoiceCreated(ctx, inv); err != nil {
				h.logger.Error().Err(err).
					Str("invoice_number", inv.InvoiceNumber).
					Msg("failed to project invoice event")
				return err
			}
		case events.DynamoDBOperationTypeRemove:
			if stringAttr(record.Change.OldImage, "pk") != invoice.TransactionPartition {
				continue
			}
			snapshot := transactionFromImage(record.Change.OldImage)
			if err := h.imports.OnExpired(ctx, snapshot); err != nil {
				h.logger.Error().Err(err).
					Str("transaction_id", snapshot.Token).
					Msg("failed to handle expired transaction")
				return err
			}
		}
	}
	return nil
}

func invoiceFromImage(img map[string]events.DynamoDBAttributeValue) *invoice.Invoice {
	return &invoice.Invoice{
		PK:            stringAttr(img, "pk"),
		InvoiceNumber: stringAttr(img, "sk"),
		TotalValue:    floatAttr(img, "totalValue"),
		ProductID:     stringAttr(img, "productId"),
		Quantity:      int(intAttr(img, "quantity")),
		TransactionID: stringAttr(img, "transactionId"),
		CreatedAt:     intAttr(img, "createdAt"),
	}
}

func transactionFromImage(img map[string]events.DynamoDBAttributeValue) *invoice.Transaction {
	return &invoice.Transaction{
		PK:           stringAttr(img, "pk"),
		Token:        stringAttr(img, "sk"),
		TTL:          intAttr(img, "ttl"),
		RequestID:    stringAttr(img, "requestId"),
		Timestamp:    intAttr(img, "timestamp"),
		ExpiresIn:    int(intAttr(img, "expiresIn")),
		ConnectionID: stringAttr(img, "connectionId"),
		Endpoint:     stringAttr(img, "endpoint"),
		Status:       invoice.TransactionStatus(stringAttr(img, "transactionStatus")),
	}
}

func stringAttr(img map[string]events.DynamoDBAttributeValue, name string) string {
	attr, ok := img[name]
	if !ok || attr.DataType() != events.DataTypeString {
		return ""
	}
	return attr.String()
}

func intAttr(img map[string]events.DynamoDBAttributeValue, name string) int64 {
	attr, ok := img[name]
	if !ok || attr.DataType() != events.DataTypeNumber {
		return 0
	}
	n, err := attr.Integer()
	if err != nil {
		return 0
	}
	return n
}

func floatAttr(img map[string]events.DynamoDBAttributeValue, name string) float64 {
	attr, ok := img[name]
	if !ok || attr.DataType() != events.DataTypeNumber {
		return 0
	}
	f, err := attr.Float()
	if err != nil {
		return 0
	}
	return f
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

	imports := importflow.NewService(
		dynamo.NewTransactionRepository(ddbClient, cfg.InvoicesTable),
		dynamo.NewInvoiceRepository(ddbClient, cfg.InvoicesTable),
		s3store.NewPayloadStore(s3Client, s3.NewPresignClient(s3Client), cfg.InvoicesBucket),
		wsapi.NewNotifier(wsClient, logger),
		eventbus.NewPublisher(eventbridge.NewFromConfig(awsCfg), cfg.AuditBusName),
		cfg.WSAPIEndpoint,
		logger,
	)
	eventsSvc := eventflow.NewService(dynamo.NewEventRepository(ddbClient, cfg.EventsTable), logger)

	h := &handler{imports: imports, events: eventsSvc, logger: logger}
	lambda.Start(h.handle)
}
