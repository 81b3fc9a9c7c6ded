package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/commerce-hub/commerce-hub/internal/domain/product"
)

// ProductRepository implements product.Repository on a table keyed by id.
type ProductRepository struct {
	client Client
	table  string
}

func NewProductRepository(client Client, table string) *ProductRepository {
	return &ProductRepository{client: client, table: table}
}

func (r *ProductRepository) GetAll(ctx context.Context) ([]*product.Product, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(r.table),
	})
	if err != nil {
		return nil, err
	}
	products := make([]*product.Product, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &products); err != nil {
		return nil, fmt.Errorf("unmarshal products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       productKey(id),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, product.ErrProductNotFound
	}
	var p product.Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]*product.Product, error) {
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	out, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
		RequestItems: map[string]types.KeysAndAttributes{
			r.table: {Keys: keys},
		},
	})
	if err != nil {
		return nil, err
	}
	items := out.Responses[r.table]
	products := make([]*product.Product, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &products); err != nil {
		return nil, fmt.Errorf("unmarshal products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	return err
}

func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 productKey(p.ID),
		ConditionExpression: aws.String("attribute_exists(id)"),
		UpdateExpression:    aws.String("SET productName = :name, code = :code, price = :price, model = :model, productUrl = :url"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name":  &types.AttributeValueMemberS{Value: p.ProductName},
			":code":  &types.AttributeValueMemberS{Value: p.Code},
			":price": &types.AttributeValueMemberN{Value: fmt.Sprintf("%v", p.Price)},
			":model": &types.AttributeValueMemberS{Value: p.Model},
			":url":   &types.AttributeValueMemberS{Value: p.ProductURL},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return product.ErrProductNotFound
		}
		return err
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) (*product.Product, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.table),
		Key:          productKey(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, err
	}
	if len(out.Attributes) == 0 {
		return nil, product.ErrProductNotFound
	}
	var p product.Product
	if err := attributevalue.UnmarshalMap(out.Attributes, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

func productKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}
