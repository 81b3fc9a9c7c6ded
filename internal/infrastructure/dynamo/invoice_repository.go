package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/commerce-hub/commerce-hub/internal/domain/invoice"
)

// InvoiceRepository implements invoice.InvoiceRepository. Invoices share
// the transactions table under their own partition keys.
type InvoiceRepository struct {
	client Client
	table  string
}

func NewInvoiceRepository(client Client, table string) *InvoiceRepository {
	return &InvoiceRepository{client: client, table: table}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	item, err := attributevalue.MarshalMap(inv)
	if err != nil {
		return fmt.Errorf("marshal invoice: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	return err
}
