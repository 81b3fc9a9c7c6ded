// Queue consumer projecting order events into the events table. The
// queue is subscribed to the order topic, so each body is a topic
// notification wrapping the order envelope.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"

	"github.com/commerce-hub/commerce-hub/internal/application/eventflow"
	"github.com/commerce-hub/commerce-hub/internal/config"
	"github.com/commerce-hub/commerce-hub/internal/domain/order"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/dynamo"
)

type topicNotification struct {
	MessageID string `json:"MessageId"`
	Message   string `json:"Message"`
}

type handler struct {
	svc    *eventflow.Service
	logger zerolog.Logger
}

func (h *handler) handle(ctx context.Context, event events.SQSEvent) error {
	for _, record := range event.Records {
		var notif topicNotification
		var env order.Envelope
		err := json.Unmarshal([]byte(record.Body), &notif)
		if err == nil {
			err = json.Unmarshal([]byte(notif.Message), &env)
		}
		if err != nil {
			// A malformed message can never succeed on redelivery.
			h.logger.Error().Err(err).
				Str("sqs_message_id", record.MessageId).
				Msg("dropping malformed order event")
			continue
		}

		if err := h.svc.RecordOrderEvent(ctx, env, notif.MessageID); err != nil {
			h.logger.Error().Err(err).
				Str("message_id", notif.MessageID).
				Msg("failed to project order event")
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

	ddbClient := dynamodb.NewFromConfig(awsCfg)
	svc := eventflow.NewService(dynamo.NewEventRepository(ddbClient, cfg.EventsTable), logger)

	h := &handler{svc: svc, logger: logger}
	lambda.Start(h.handle)
}
