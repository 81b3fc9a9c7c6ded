// Package localhub is an in-process channel notifier for the dev server.
// Clients register under a connection id and receive the same status
// messages the websocket API would push in production.
package localhub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/commerce-hub/commerce-hub/internal/domain/invoice"
)

// Client is one registered status listener.
type Client struct {
	ConnectionID string
	Messages     chan []byte
}

func (c *Client) Close() {
	close(c.Messages)
}

// Hub implements invoice.ChannelNotifier over buffered channels.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger.With().Str("component", "localhub").Logger(),
	}
}

func (h *Hub) Register(connectionID string) *Client {
	c := &Client{
		ConnectionID: connectionID,
		Messages:     make(chan []byte, 16),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[connectionID] = c
	return c
}

func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[connectionID]; ok {
		c.Close()
		delete(h.clients, connectionID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type statusMessage struct {
	TransactionID string                    `json:"transactionId"`
	Status        invoice.TransactionStatus `json:"status"`
}

func (h *Hub) SendStatus(_ context.Context, token, connectionID string, status invoice.TransactionStatus) bool {
	data, err := json.Marshal(statusMessage{TransactionID: token, Status: status})
	if err != nil {
		h.logger.Error().Err(err).Str("token", token).Msg("failed to marshal status message")
		return false
	}

	h.mu.RLock()
	c := h.clients[connectionID]
	h.mu.RUnlock()
	if c == nil {
		h.logger.Warn().
			Str("connection_id", connectionID).
			Str("token", token).
			Msg("connection gone, skipping status push")
		return false
	}
	if !trySend(c, data) {
		h.logger.Warn().
			Str("connection_id", connectionID).
			Str("token", token).
			Msg("client channel full, dropping status push")
		return false
	}
	return true
}

func (h *Hub) Disconnect(_ context.Context, connectionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connectionID]
	if !ok {
		return false
	}
	c.Close()
	delete(h.clients, connectionID)
	return true
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

func trySend(c *Client, data []byte) bool {
	select {
	case c.Messages <- data:
		return true
	default:
		return false
	}
}
