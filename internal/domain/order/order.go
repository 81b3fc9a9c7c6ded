package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrOrderNotFound = errors.New("order not found")

// PaymentType enumerates the supported payment methods.
type PaymentType string

const (
	PaymentCash       PaymentType = "CASH"
	PaymentDebitCard  PaymentType = "DEBIT_CARD"
	PaymentCreditCard PaymentType = "CREDIT_CARD"
)

// ShippingType enumerates the shipping service levels.
type ShippingType string

const (
	ShippingEconomic ShippingType = "ECONOMIC"
	ShippingUrgent   ShippingType = "URGENT"
)

// CarrierType enumerates the supported carriers.
type CarrierType string

const (
	CarrierCorreios CarrierType = "CORREIOS"
	CarrierSedex    CarrierType = "SEDEX"
)

// ProductSnapshot freezes the code and price of a product at order time.
type ProductSnapshot struct {
	Code  string  `json:"code" dynamodbav:"code"`
	Price float64 `json:"price" dynamodbav:"price"`
}

// Billing holds the payment method and the summed order total.
type Billing struct {
	Payment    PaymentType `json:"payment" dynamodbav:"payment"`
	TotalPrice float64     `json:"totalPrice" dynamodbav:"totalPrice"`
}

// Shipping holds the delivery options.
type Shipping struct {
	Type    ShippingType `json:"type" dynamodbav:"type"`
	Carrier CarrierType  `json:"carrier" dynamodbav:"carrier"`
}

// Order is keyed by customer email and a minted order id.
type Order struct {
	Email     string            `json:"pk" dynamodbav:"pk"`
	ID        string            `json:"sk" dynamodbav:"sk"`
	CreatedAt int64             `json:"createdAt" dynamodbav:"createdAt"`
	Products  []ProductSnapshot `json:"products" dynamodbav:"products"`
	Billing   Billing           `json:"billing" dynamodbav:"billing"`
	Shipping  Shipping          `json:"shipping" dynamodbav:"shipping"`
}

// NewOrder snapshots the given products, sums the total, and mints the
// order id.
func NewOrder(email string, products []ProductSnapshot, payment PaymentType, shipping Shipping) *Order {
	var total float64
	for _, p := range products {
		total += p.Price
	}
	return &Order{
		Email:     email,
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().UnixMilli(),
		Products:  products,
		Billing:   Billing{Payment: payment, TotalPrice: total},
		Shipping:  shipping,
	}
}

// ProductCodes lists the snapshot codes, for event payloads.
func (o *Order) ProductCodes() []string {
	codes := make([]string, 0, len(o.Products))
	for _, p := range o.Products {
		codes = append(codes, p.Code)
	}
	return codes
}
