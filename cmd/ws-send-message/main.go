// Package main implements the WebSocket fan-out Lambda. EventBridge
// rules route domain events here; each event is delivered to every
// live session of its recipients.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	domainevents "knkt-backend/domain/events"
	"knkt-backend/infrastructure/config"
	"knkt-backend/infrastructure/persistence/dynamodb"
	"knkt-backend/infrastructure/realtime/apigateway"
)

var (
	channel *apigateway.Channel
	logger  *zap.Logger
)

func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.WebSocketEndpoint == "" {
		log.Fatal("WEBSOCKET_ENDPOINT is required")
	}

	logger, err = zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	client := awsdynamodb.NewFromConfig(awsCfg)
	sessions := dynamodb.NewSessionRepository(client, cfg.SessionsTable, cfg.SessionIndexName, logger)
	channel = apigateway.NewChannel(awsCfg, cfg.WebSocketEndpoint, sessions, logger)

	logger.Info("WebSocket fan-out handler initialized")
}

// relayedEvent reconstitutes a published domain event from its
// EventBridge detail without losing event-specific fields.
type relayedEvent struct {
	domainevents.BaseEvent
	detail json.RawMessage
}

func (e relayedEvent) MarshalJSON() ([]byte, error) {
	return e.detail, nil
}

func handler(ctx context.Context, event events.CloudWatchEvent) error {
	var base domainevents.BaseEvent
	if err := json.Unmarshal(event.Detail, &base); err != nil {
		return fmt.Errorf("failed to decode event detail: %w", err)
	}
	if len(base.Recipients) == 0 {
		logger.Debug("Event has no recipients, skipping",
			zap.String("event_type", base.EventType))
		return nil
	}

	relayed := relayedEvent{BaseEvent: base, detail: event.Detail}
	if err := channel.Deliver(ctx, relayed); err != nil {
		return err
	}

	logger.Debug("Event fanned out",
		zap.String("event_type", base.EventType),
		zap.Int("recipients", len(base.Recipients)))
	return nil
}

func main() {
	lambda.Start(handler)
}
