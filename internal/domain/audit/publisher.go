package audit

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_publisher.go -package=mocks . Publisher

import "context"

// Publisher emits fire-and-forget audit events to the external audit
// bus. Delivery is at-least-once; no acknowledgement is consumed.
type Publisher interface {
	Publish(ctx context.Context, source, detailType string, detail any) error
}
