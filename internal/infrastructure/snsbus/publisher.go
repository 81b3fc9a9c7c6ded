// Package snsbus publishes order events to the order topic.
package snsbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/commerce-hub/commerce-hub/internal/domain/order"
)

// API is the slice of the SNS API the publisher uses.
type API interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var _ API = (*sns.Client)(nil)

// Publisher implements order.EventPublisher. The eventType message
// attribute lets subscriptions filter without parsing the body.
type Publisher struct {
	api      API
	topicARN string
}

func NewPublisher(api API, topicARN string) *Publisher {
	return &Publisher{api: api, topicARN: topicARN}
}

func (p *Publisher) Publish(ctx context.Context, env order.Envelope) (string, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal order envelope: %w", err)
	}
	out, err := p.api.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(env.EventType)),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("publish order event: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
