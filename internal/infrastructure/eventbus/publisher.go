// Package eventbus publishes audit entries to EventBridge.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
)

// API is the slice of the EventBridge API the publisher uses.
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

var _ API = (*eventbridge.Client)(nil)

// Publisher implements audit.Publisher on a named event bus.
type Publisher struct {
	api     API
	busName string
}

func NewPublisher(api API, busName string) *Publisher {
	return &Publisher{api: api, busName: busName}
}

func (p *Publisher) Publish(ctx context.Context, source, detailType string, detail any) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	out, err := p.api.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			EventBusName: aws.String(p.busName),
			Source:       aws.String(source),
			DetailType:   aws.String(detailType),
			Detail:       aws.String(string(data)),
		}},
	})
	if err != nil {
		return fmt.Errorf("put audit event: %w", err)
	}
	if out.FailedEntryCount > 0 {
		return fmt.Errorf("audit event rejected by bus %s", p.busName)
	}
	return nil
}
