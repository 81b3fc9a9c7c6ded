// Package wsapi pushes status messages to clients over the API Gateway
// management API.
package wsapi

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/rs/zerolog"

	"github.com/commerce-hub/commerce-hub/internal/domain/invoice"
)

// API is the slice of the management API the notifier uses.
type API interface {
	GetConnection(ctx context.Context, params *apigatewaymanagementapi.GetConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.GetConnectionOutput, error)
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
	DeleteConnection(ctx context.Context, params *apigatewaymanagementapi.DeleteConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.DeleteConnectionOutput, error)
}

var _ API = (*apigatewaymanagementapi.Client)(nil)

// Notifier implements invoice.ChannelNotifier.
type Notifier struct {
	api    API
	logger zerolog.Logger
}

func NewNotifier(api API, logger zerolog.Logger) *Notifier {
	return &Notifier{
		api:    api,
		logger: logger.With().Str("component", "wsapi").Logger(),
	}
}

type statusMessage struct {
	TransactionID string                    `json:"transactionId"`
	Status        invoice.TransactionStatus `json:"status"`
}

// SendStatus probes the connection, then posts the status message. Gone
// or unreachable connections report false; the lifecycle carries on
// without the client.
func (n *Notifier) SendStatus(ctx context.Context, token, connectionID string, status invoice.TransactionStatus) bool {
	if _, err := n.api.GetConnection(ctx, &apigatewaymanagementapi.GetConnectionInput{
		ConnectionId: aws.String(connectionID),
	}); err != nil {
		n.logger.Warn().Err(err).
			Str("connection_id", connectionID).
			Str("token", token).
			Msg("connection gone, skipping status push")
		return false
	}

	data, err := json.Marshal(statusMessage{TransactionID: token, Status: status})
	if err != nil {
		n.logger.Error().Err(err).Str("token", token).Msg("failed to marshal status message")
		return false
	}

	if _, err := n.api.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         data,
	}); err != nil {
		n.logger.Warn().Err(err).
			Str("connection_id", connectionID).
			Str("token", token).
			Str("status", string(status)).
			Msg("failed to push status")
		return false
	}
	return true
}

func (n *Notifier) Disconnect(ctx context.Context, connectionID string) bool {
	if _, err := n.api.DeleteConnection(ctx, &apigatewaymanagementapi.DeleteConnectionInput{
		ConnectionId: aws.String(connectionID),
	}); err != nil {
		n.logger.Warn().Err(err).
			Str("connection_id", connectionID).
			Msg("failed to close connection")
		return false
	}
	return true
}
