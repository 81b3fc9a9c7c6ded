package event

import (
	"fmt"
	"time"
)

// Record is one append-only history entry in the events table. Entries
// are written by the event projection, queried externally, and aged out
// by the table's ttl attribute; they are never updated.
type Record struct {
	PK        string         `json:"pk" dynamodbav:"pk"`
	SK        string         `json:"sk" dynamodbav:"sk"`
	TTL       int64          `json:"ttl" dynamodbav:"ttl"`
	Email     string         `json:"email" dynamodbav:"email"`
	CreatedAt int64          `json:"createdAt" dynamodbav:"createdAt"`
	RequestID string         `json:"requestId,omitempty" dynamodbav:"requestId,omitempty"`
	EventType string         `json:"eventType" dynamodbav:"eventType"`
	Info      map[string]any `json:"info" dynamodbav:"info"`
}

// NewRecord builds an entry keyed pk / "<eventType>#<timestamp>" with
// the given retention window.
func NewRecord(pk, eventType, email string, retention time.Duration, info map[string]any) *Record {
	now := time.Now().UTC()
	ts := now.UnixMilli()
	return &Record{
		PK:        pk,
		SK:        fmt.Sprintf("%s#%d", eventType, ts),
		TTL:       now.Add(retention).Unix(),
		Email:     email,
		CreatedAt: ts,
		EventType: eventType,
		Info:      info,
	}
}
