// Package config reads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the settings shared by the lambda handlers and the dev
// server. Handlers only read the fields they need; Load does not demand
// values a given entry point never uses.
type Config struct {
	InvoicesTable string
	ProductsTable string
	OrdersTable   string
	EventsTable   string

	InvoicesBucket string

	// WSAPIEndpoint is the https endpoint of the websocket management
	// API used to push status messages.
	WSAPIEndpoint string

	AuditBusName        string
	OrderEventsTopicARN string

	// Dev server only.
	ServerAddr   string
	SweepEvery   time.Duration
	DevPublicURL string
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	addr := getenv("SERVER_ADDR", "0.0.0.0:8080")
	return &Config{
		InvoicesTable:       getenv("INVOICES_TABLE", "invoices"),
		ProductsTable:       getenv("PRODUCTS_TABLE", "products"),
		OrdersTable:         getenv("ORDERS_TABLE", "orders"),
		EventsTable:         getenv("EVENTS_TABLE", "events"),
		InvoicesBucket:      getenv("INVOICES_BUCKET", "invoices"),
		WSAPIEndpoint:       os.Getenv("WSAPI_ENDPOINT"),
		AuditBusName:        getenv("AUDIT_BUS_NAME", "audit-events"),
		OrderEventsTopicARN: os.Getenv("ORDER_EVENTS_TOPIC_ARN"),
		ServerAddr:          addr,
		SweepEvery:          parseDuration(getenv("SWEEP_EVERY", "10s"), 10*time.Second),
		DevPublicURL:        getenv("DEV_PUBLIC_URL", fmt.Sprintf("http://%s", addr)),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}
