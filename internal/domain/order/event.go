package order

import "encoding/json"

// EventType classifies order mutations published to the order topic.
type EventType string

const (
	EventCreated EventType = "ORDER_CREATED"
	EventDeleted EventType = "ORDER_DELETED"
)

// Event describes one order mutation.
type Event struct {
	Email        string   `json:"email"`
	OrderID      string   `json:"orderId"`
	ProductCodes []string `json:"productCodes"`
	RequestID    string   `json:"requestId"`
}

// Envelope wraps an Event for the topic; Data carries the serialized
// Event so subscribers can filter on EventType alone.
type Envelope struct {
	EventType EventType `json:"eventType"`
	Data      string    `json:"data"`
}

// NewEnvelope serializes ev into an envelope of the given type.
func NewEnvelope(eventType EventType, ev Event) (Envelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{EventType: eventType, Data: string(data)}, nil
}
