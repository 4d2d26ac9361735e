// Package apigateway fans out domain events to live WebSocket sessions
// through the API Gateway Management API.
package apigateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwTypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/domain/events"
)

// Channel delivers event payloads to every live session of each
// recipient. Delivery is best-effort; stale sessions are pruned when
// the gateway reports them gone.
type Channel struct {
	client   *apigatewaymanagementapi.Client
	sessions ports.SessionRepository
	logger   *zap.Logger
}

// NewChannel creates a fan-out channel for the given WebSocket
// endpoint (e.g. "abc123.execute-api.us-west-2.amazonaws.com/prod").
func NewChannel(cfg aws.Config, endpoint string, sessions ports.SessionRepository, logger *zap.Logger) *Channel {
	client := apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s", endpoint))
	})
	return &Channel{
		client:   client,
		sessions: sessions,
		logger:   logger,
	}
}

// wireMessage is the envelope pushed to WebSocket clients.
type wireMessage struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Deliver sends the event to every live session of its recipients.
func (c *Channel) Deliver(ctx context.Context, event events.DomainEvent) error {
	payload, err := json.Marshal(wireMessage{
		Type:      event.GetEventType(),
		Timestamp: event.GetTimestamp().Unix(),
		Data:      event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	for _, uid := range event.GetRecipients() {
		sessions, err := c.sessions.ListForUser(ctx, uid)
		if err != nil {
			c.logger.Warn("Session lookup failed",
				zap.String("uid", uid), zap.Error(err))
			continue
		}
		for _, session := range sessions {
			c.post(ctx, session, payload)
		}
	}
	return nil
}

func (c *Channel) post(ctx context.Context, session *ports.Session, payload []byte) {
	_, err := c.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(session.SessionID),
		Data:         payload,
	})
	if err == nil {
		return
	}

	var gone *apigwTypes.GoneException
	if errors.As(err, &gone) {
		// The client disconnected without a clean close; drop the
		// stale session record.
		if delErr := c.sessions.Delete(ctx, session.SessionID); delErr != nil {
			c.logger.Warn("Failed to prune stale session",
				zap.String("session_id", session.SessionID), zap.Error(delErr))
		} else {
			c.logger.Debug("Pruned stale session",
				zap.String("session_id", session.SessionID))
		}
		return
	}

	c.logger.Warn("WebSocket delivery failed",
		zap.String("session_id", session.SessionID),
		zap.String("uid", session.UID),
		zap.Error(err))
}
