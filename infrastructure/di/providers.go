// Package di wires the application together.
package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/application/services"
	"knkt-backend/infrastructure/config"
	"knkt-backend/infrastructure/embedding"
	"knkt-backend/infrastructure/messaging/eventbridge"
	"knkt-backend/infrastructure/notification/fcm"
	"knkt-backend/infrastructure/persistence/dynamodb"
	"knkt-backend/infrastructure/summary"
	"knkt-backend/pkg/auth"
	"knkt-backend/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the metrics recorder; disabled metrics yield
// a nil-safe no-op recorder.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewMetrics("KnktBackend", client)
}

// ProvideProfileRepository creates the profile repository
func ProvideProfileRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ProfileRepository {
	return dynamodb.NewProfileRepository(client, cfg.ProfilesTable, logger)
}

// ProvideConnectionRepository creates the connection repository
func ProvideConnectionRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ConnectionRepository {
	return dynamodb.NewConnectionRepository(client, cfg.ConnectionsTable, cfg.User1IndexName, cfg.User2IndexName, logger)
}

// ProvideRoomRepository creates the chat room repository
func ProvideRoomRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.RoomRepository {
	return dynamodb.NewRoomRepository(client, cfg.RoomsTable, cfg.User1IndexName, cfg.User2IndexName, logger)
}

// ProvideMessageRepository creates the message repository
func ProvideMessageRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.MessageRepository {
	return dynamodb.NewMessageRepository(client, cfg.MessagesTable, logger)
}

// ProvideSessionRepository creates the WebSocket session repository
func ProvideSessionRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.SessionRepository {
	return dynamodb.NewSessionRepository(client, cfg.SessionsTable, cfg.SessionIndexName, logger)
}

// ProvideEventPublisher creates the EventBridge-backed publisher
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideEmbeddingProvider creates the embedding provider
func ProvideEmbeddingProvider(cfg *config.Config, logger *zap.Logger) ports.EmbeddingProvider {
	return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel, logger)
}

// ProvideSummaryGenerator creates the match-summary generator
func ProvideSummaryGenerator(cfg *config.Config, logger *zap.Logger) ports.SummaryGenerator {
	return summary.NewOpenRouterGenerator(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.SummaryModel, logger)
}

// ProvideNotificationSender creates the FCM sender. Without FCM
// credentials notifications are disabled rather than fatal.
func ProvideNotificationSender(cfg *config.Config, profiles ports.ProfileRepository, logger *zap.Logger) (ports.NotificationSender, error) {
	if cfg.FCMProjectID == "" || cfg.FCMServiceAccountEmail == "" || cfg.FCMPrivateKeyPEM == "" {
		logger.Warn("FCM credentials not configured, push notifications disabled")
		return nil, nil
	}
	sender, err := fcm.NewSender(cfg.FCMProjectID, cfg.FCMServiceAccountEmail, cfg.FCMPrivateKeyPEM, profiles, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize FCM sender: %w", err)
	}
	return sender, nil
}

// ProvideJWTValidator creates the API token validator
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" && !cfg.IsProduction() {
		secret = "development-secret-change-in-production"
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
		Audience:  "knkt-api",
	})
}

// ProvideProfileService creates the profile service
func ProvideProfileService(
	profiles ports.ProfileRepository,
	conns ports.ConnectionRepository,
	embedder ports.EmbeddingProvider,
	logger *zap.Logger,
) *services.ProfileService {
	return services.NewProfileService(profiles, conns, embedder, logger)
}

// ProvideMatchService creates the match service
func ProvideMatchService(profiles ports.ProfileRepository, metrics *observability.Metrics, logger *zap.Logger) *services.MatchService {
	return services.NewMatchService(profiles, metrics, logger)
}

// ProvideConnectionService creates the connection service
func ProvideConnectionService(
	profiles ports.ProfileRepository,
	conns ports.ConnectionRepository,
	rooms ports.RoomRepository,
	summarizer ports.SummaryGenerator,
	notifier ports.NotificationSender,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *services.ConnectionService {
	return services.NewConnectionService(profiles, conns, rooms, summarizer, notifier, publisher, metrics, logger)
}

// ProvideChatService creates the chat service
func ProvideChatService(
	rooms ports.RoomRepository,
	messages ports.MessageRepository,
	notifier ports.NotificationSender,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *services.ChatService {
	return services.NewChatService(rooms, messages, notifier, publisher, logger)
}
