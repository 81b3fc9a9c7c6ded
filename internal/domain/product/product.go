package product

import (
	"errors"

	"github.com/google/uuid"
)

var ErrProductNotFound = errors.New("product not found")

// Product is a catalog entry.
type Product struct {
	ID          string  `json:"id" dynamodbav:"id"`
	ProductName string  `json:"productName" dynamodbav:"productName"`
	Code        string  `json:"code" dynamodbav:"code"`
	Price       float64 `json:"price" dynamodbav:"price"`
	Model       string  `json:"model" dynamodbav:"model"`
	ProductURL  string  `json:"productUrl" dynamodbav:"productUrl"`
}

// NewProduct mints the product id.
func NewProduct(name, code string, price float64, model, productURL string) *Product {
	return &Product{
		ID:          uuid.NewString(),
		ProductName: name,
		Code:        code,
		Price:       price,
		Model:       model,
		ProductURL:  productURL,
	}
}

// EventType classifies catalog mutations.
type EventType string

const (
	EventCreated EventType = "PRODUCT_CREATED"
	EventUpdated EventType = "PRODUCT_UPDATED"
	EventDeleted EventType = "PRODUCT_DELETED"
)

// Event describes one catalog mutation for the history projection.
type Event struct {
	RequestID    string    `json:"requestId"`
	EventType    EventType `json:"eventType"`
	ProductID    string    `json:"productId"`
	ProductCode  string    `json:"productCode"`
	ProductPrice float64   `json:"productPrice"`
	Email        string    `json:"email"`
}
