package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/commerce-hub/commerce-hub/internal/domain/order"
)

// Topic implements order.EventPublisher and delivers envelopes
// synchronously to subscribed handlers, standing in for the order topic
// fan-out.
type Topic struct {
	mu       sync.Mutex
	handlers []func(env order.Envelope, messageID string)
	logger   zerolog.Logger
}

func NewTopic(logger zerolog.Logger) *Topic {
	return &Topic{logger: logger.With().Str("component", "topic").Logger()}
}

func (t *Topic) Subscribe(handler func(env order.Envelope, messageID string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, handler)
}

func (t *Topic) Publish(_ context.Context, env order.Envelope) (string, error) {
	messageID := uuid.NewString()
	t.mu.Lock()
	handlers := make([]func(order.Envelope, string), len(t.handlers))
	copy(handlers, t.handlers)
	t.mu.Unlock()
	for _, h := range handlers {
		h(env, messageID)
	}
	t.logger.Debug().
		Str("event_type", string(env.EventType)).
		Str("message_id", messageID).
		Msg("delivered order event")
	return messageID, nil
}

// AuditEntry is one captured audit publication.
type AuditEntry struct {
	Source     string
	DetailType string
	Detail     any
}

// AuditLog implements audit.Publisher by recording entries in memory.
type AuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	logger  zerolog.Logger
}

func NewAuditLog(logger zerolog.Logger) *AuditLog {
	return &AuditLog{logger: logger.With().Str("component", "audit").Logger()}
}

func (l *AuditLog) Publish(_ context.Context, source, detailType string, detail any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, AuditEntry{Source: source, DetailType: detailType, Detail: detail})
	l.logger.Info().
		Str("source", source).
		Str("detail_type", detailType).
		Interface("detail", detail).
		Msg("audit event")
	return nil
}

// Entries snapshots the captured audit log, for tests.
func (l *AuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
