package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"knkt-backend/application/ports"
)

// sessionTTL bounds how long an abandoned WebSocket session record
// lingers before DynamoDB expires it.
const sessionTTL = 24 * time.Hour

// SessionRepository implements ports.SessionRepository on a table
// keyed by session_id with a GSI on uid.
type SessionRepository struct {
	client    *dynamodb.Client
	tableName string
	uidIndex  string
	logger    *zap.Logger
}

func NewSessionRepository(client *dynamodb.Client, tableName, uidIndex string, logger *zap.Logger) ports.SessionRepository {
	return &SessionRepository{
		client:    client,
		tableName: tableName,
		uidIndex:  uidIndex,
		logger:    logger,
	}
}

type sessionItem struct {
	SessionID   string `dynamodbav:"session_id"`
	UID         string `dynamodbav:"uid"`
	Endpoint    string `dynamodbav:"endpoint"`
	ConnectedAt string `dynamodbav:"connected_at"`
	TTL         int64  `dynamodbav:"ttl"`
}

// Save registers a live session
func (r *SessionRepository) Save(ctx context.Context, s *ports.Session) error {
	av, err := attributevalue.MarshalMap(sessionItem{
		SessionID:   s.SessionID,
		UID:         s.UID,
		Endpoint:    s.Endpoint,
		ConnectedAt: s.ConnectedAt.Format(time.RFC3339Nano),
		TTL:         s.ConnectedAt.Add(sessionTTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// ListForUser returns every live session for uid
func (r *SessionRepository) ListForUser(ctx context.Context, uid string) ([]*ports.Session, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("uid").Equal(expression.Value(uid))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build session query: %w", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.uidIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	sessions := make([]*ports.Session, 0, len(out.Items))
	for _, raw := range out.Items {
		var item sessionItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Skipping unreadable session item", zap.Error(err))
			continue
		}
		connectedAt, _ := time.Parse(time.RFC3339Nano, item.ConnectedAt)
		sessions = append(sessions, &ports.Session{
			SessionID:   item.SessionID,
			UID:         item.UID,
			Endpoint:    item.Endpoint,
			ConnectedAt: connectedAt,
		})
	}
	return sessions, nil
}

// Delete removes a session; missing sessions are not an error
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"session_id": &types.AttributeValueMemberS{Value: sessionID},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
