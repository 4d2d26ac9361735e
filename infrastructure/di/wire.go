//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/application/services"
	"knkt-backend/infrastructure/config"
	"knkt-backend/pkg/auth"
	"knkt-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config            *config.Config
	Logger            *zap.Logger
	ProfileRepo       ports.ProfileRepository
	ConnectionRepo    ports.ConnectionRepository
	RoomRepo          ports.RoomRepository
	MessageRepo       ports.MessageRepository
	SessionRepo       ports.SessionRepository
	EventPublisher    ports.EventPublisher
	ProfileService    *services.ProfileService
	MatchService      *services.MatchService
	ConnectionService *services.ConnectionService
	ChatService       *services.ChatService
	JWTValidator      *auth.JWTValidator
	Metrics           *observability.Metrics
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideMetrics,
	ProvideProfileRepository,
	ProvideConnectionRepository,
	ProvideRoomRepository,
	ProvideMessageRepository,
	ProvideSessionRepository,
	ProvideEventPublisher,
	ProvideEmbeddingProvider,
	ProvideSummaryGenerator,
	ProvideNotificationSender,
	ProvideJWTValidator,
	ProvideProfileService,
	ProvideMatchService,
	ProvideConnectionService,
	ProvideChatService,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
