// Package main implements the WebSocket connect/disconnect Lambda.
// On $connect it authenticates the client and registers a session; on
// $disconnect it removes the session record.
package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/infrastructure/config"
	"knkt-backend/infrastructure/persistence/dynamodb"
	"knkt-backend/pkg/auth"
)

var (
	sessions  ports.SessionRepository
	validator *auth.JWTValidator
	logger    *zap.Logger
)

func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
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
	sessions = dynamodb.NewSessionRepository(client, cfg.SessionsTable, cfg.SessionIndexName, logger)

	validator, err = auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  "knkt-api",
	})
	if err != nil {
		log.Fatalf("Failed to create JWT validator: %v", err)
	}

	logger.Info("WebSocket connect handler initialized")
}

func handler(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.RequestContext.RouteKey {
	case "$connect":
		return handleConnect(ctx, request)
	case "$disconnect":
		return handleDisconnect(ctx, request)
	default:
		return events.APIGatewayProxyResponse{StatusCode: 200}, nil
	}
}

func handleConnect(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	token := request.QueryStringParameters["token"]
	if token == "" {
		if header := request.Headers["Authorization"]; header != "" {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if token == "" {
		return events.APIGatewayProxyResponse{StatusCode: 401, Body: "missing authentication token"}, nil
	}

	claims, err := validator.Validate(token)
	if err != nil {
		logger.Debug("WebSocket token rejected", zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: 401, Body: "invalid token"}, nil
	}

	session := &ports.Session{
		SessionID:   request.RequestContext.ConnectionID,
		UID:         claims.UserID,
		Endpoint:    fmt.Sprintf("%s/%s", request.RequestContext.DomainName, request.RequestContext.Stage),
		ConnectedAt: time.Now().UTC(),
	}
	if err := sessions.Save(ctx, session); err != nil {
		logger.Error("Failed to register session",
			zap.String("session_id", session.SessionID), zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: 500, Body: "failed to register session"}, nil
	}

	logger.Info("Session connected",
		zap.String("session_id", session.SessionID),
		zap.String("uid", session.UID))
	return events.APIGatewayProxyResponse{StatusCode: 200, Body: "connected"}, nil
}

func handleDisconnect(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	sessionID := request.RequestContext.ConnectionID
	if err := sessions.Delete(ctx, sessionID); err != nil {
		logger.Warn("Failed to remove session",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return events.APIGatewayProxyResponse{StatusCode: 200, Body: "disconnected"}, nil
}

func main() {
	lambda.Start(handler)
}
