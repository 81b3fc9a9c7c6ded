package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/commerce-hub/commerce-hub/internal/domain/event"
)

// emailIndex is the GSI keyed email / sk used for per-customer history
// queries.
const emailIndex = "emailIndex"

// EventRepository implements event.Repository.
type EventRepository struct {
	client Client
	table  string
}

func NewEventRepository(client Client, table string) *EventRepository {
	return &EventRepository{client: client, table: table}
}

func (r *EventRepository) Create(ctx context.Context, rec *event.Record) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal event record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	return err
}

func (r *EventRepository) GetByEmail(ctx context.Context, email, prefix string) ([]*event.Record, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(emailIndex),
		KeyConditionExpression: aws.String("email = :email AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email":  &types.AttributeValueMemberS{Value: email},
			":prefix": &types.AttributeValueMemberS{Value: prefix},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	records := make([]*event.Record, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, fmt.Errorf("unmarshal event records: %w", err)
	}
	return records, nil
}
