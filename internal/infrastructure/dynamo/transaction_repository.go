package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/commerce-hub/commerce-hub/internal/domain/invoice"
)

// TransactionRepository implements invoice.TransactionRepository.
type TransactionRepository struct {
	client Client
	table  string
}

func NewTransactionRepository(client Client, table string) *TransactionRepository {
	return &TransactionRepository{client: client, table: table}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *invoice.Transaction) error {
	item, err := attributevalue.MarshalMap(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	return err
}

func (r *TransactionRepository) Get(ctx context.Context, token string) (*invoice.Transaction, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       transactionKey(token),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, invoice.ErrTransactionNotFound
	}
	var tx invoice.Transaction
	if err := attributevalue.UnmarshalMap(out.Item, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return &tx, nil
}

// UpdateStatus is a conditional write on both the record's existence and
// its current status. A failed condition reports false without error.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, token string, expected, next invoice.TransactionStatus) (bool, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 transactionKey(token),
		ConditionExpression: aws.String("attribute_exists(sk) AND transactionStatus = :expected"),
		UpdateExpression:    aws.String("SET transactionStatus = :next"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberS{Value: string(expected)},
			":next":     &types.AttributeValueMemberS{Value: string(next)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func transactionKey(token string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: invoice.TransactionPartition},
		"sk": &types.AttributeValueMemberS{Value: token},
	}
}
