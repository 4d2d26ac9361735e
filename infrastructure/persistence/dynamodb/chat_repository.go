package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/domain/chat"
)

// RoomRepository implements ports.RoomRepository on a table keyed by
// room_id, with the same two participant-slot indexes as connections.
type RoomRepository struct {
	client    *dynamodb.Client
	tableName string
	uid1Index string
	uid2Index string
	logger    *zap.Logger
}

func NewRoomRepository(client *dynamodb.Client, tableName, uid1Index, uid2Index string, logger *zap.Logger) ports.RoomRepository {
	return &RoomRepository{
		client:    client,
		tableName: tableName,
		uid1Index: uid1Index,
		uid2Index: uid2Index,
		logger:    logger,
	}
}

// roomItem is the DynamoDB item structure for a chat room. The two
// participants are stored positionally in canonical order to feed the
// slot indexes.
type roomItem struct {
	RoomID     string  `dynamodbav:"room_id"`
	EntityType string  `dynamodbav:"EntityType"`
	UID1       string  `dynamodbav:"uid1"`
	UID2       string  `dynamodbav:"uid2"`
	CreatedAt  string  `dynamodbav:"created_at"`
	UpdatedAt  *string `dynamodbav:"updated_at,omitempty"`
}

func toRoomItem(room *chat.Room) roomItem {
	item := roomItem{
		RoomID:     room.RoomID,
		EntityType: "ROOM",
		UID1:       room.Participants[0],
		UID2:       room.Participants[1],
		CreatedAt:  room.CreatedAt.Format(time.RFC3339Nano),
	}
	if room.UpdatedAt != nil {
		s := room.UpdatedAt.Format(time.RFC3339Nano)
		item.UpdatedAt = &s
	}
	return item
}

func fromRoomItem(item roomItem) (*chat.Room, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at on room %s: %w", item.RoomID, err)
	}
	room := &chat.Room{
		RoomID:       item.RoomID,
		Participants: []string{item.UID1, item.UID2},
		CreatedAt:    createdAt,
	}
	if item.UpdatedAt != nil {
		if t, err := time.Parse(time.RFC3339Nano, *item.UpdatedAt); err == nil {
			room.UpdatedAt = &t
		}
	}
	return room, nil
}

// InsertIfAbsent creates the room only when its canonical ID is free;
// losers of the race get the stored room back.
func (r *RoomRepository) InsertIfAbsent(ctx context.Context, room *chat.Room) (bool, *chat.Room, error) {
	av, err := attributevalue.MarshalMap(toRoomItem(room))
	if err != nil {
		return false, nil, fmt.Errorf("failed to marshal room: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(room_id)"),
	})
	if err == nil {
		return true, room, nil
	}

	var conditionalCheckFailed *types.ConditionalCheckFailedException
	if !errors.As(err, &conditionalCheckFailed) {
		return false, nil, fmt.Errorf("failed to insert room: %w", err)
	}

	existing, err := r.GetByID(ctx, room.RoomID)
	if err != nil {
		return false, nil, err
	}
	if existing == nil {
		return false, nil, fmt.Errorf("room %s vanished during insert race", room.RoomID)
	}
	return false, existing, nil
}

// GetByID returns (nil, nil) when the room does not exist
func (r *RoomRepository) GetByID(ctx context.Context, roomID string) (*chat.Room, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       roomKey(roomID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item roomItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return fromRoomItem(item)
}

// ListForUser queries both participant-slot indexes
func (r *RoomRepository) ListForUser(ctx context.Context, uid string) ([]*chat.Room, error) {
	var rooms []*chat.Room
	for _, q := range []struct{ index, field string }{
		{r.uid1Index, "uid1"},
		{r.uid2Index, "uid2"},
	} {
		expr, err := expression.NewBuilder().
			WithKeyCondition(expression.Key(q.field).Equal(expression.Value(uid))).
			Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build room query: %w", err)
		}

		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(q.index),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query rooms: %w", err)
		}
		for _, raw := range out.Items {
			var item roomItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Skipping unreadable room item", zap.Error(err))
				continue
			}
			room, err := fromRoomItem(item)
			if err != nil {
				r.logger.Warn("Skipping corrupt room item",
					zap.String("room_id", item.RoomID), zap.Error(err))
				continue
			}
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}

// TouchUpdatedAt bumps the room's activity timestamp
func (r *RoomRepository) TouchUpdatedAt(ctx context.Context, roomID string, now time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 roomKey(roomID),
		UpdateExpression:    aws.String("SET updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(room_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}
	return nil
}

func roomKey(roomID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"room_id": &types.AttributeValueMemberS{Value: roomID},
	}
}

// MessageRepository implements ports.MessageRepository on a table
// keyed by room_id with the message timestamp as sort key, so history
// pages are range queries.
type MessageRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

func NewMessageRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.MessageRepository {
	return &MessageRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type messageItem struct {
	RoomID    string `dynamodbav:"room_id"`
	Timestamp string `dynamodbav:"timestamp"`
	SenderUID string `dynamodbav:"sender_uid"`
	Content   string `dynamodbav:"content"`
}

// messageSortKey builds the range key for a message. The uuid suffix
// keeps two messages written in the same nanosecond from overwriting
// each other; the timestamp prefix keeps the key range-queryable.
func messageSortKey(ts time.Time) string {
	return ts.Format(time.RFC3339Nano) + "#" + uuid.NewString()
}

func messageTimestamp(sortKey string) (time.Time, error) {
	raw, _, _ := strings.Cut(sortKey, "#")
	return time.Parse(time.RFC3339Nano, raw)
}

// Append stores a message under its room and timestamp
func (r *MessageRepository) Append(ctx context.Context, msg *chat.Message) error {
	av, err := attributevalue.MarshalMap(messageItem{
		RoomID:    msg.RoomID,
		Timestamp: messageSortKey(msg.Timestamp),
		SenderUID: msg.SenderUID,
		Content:   msg.Content,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}
	return nil
}

// List returns up to limit messages strictly older than before (the
// newest page when before is nil), newest first, plus the room's full
// message count.
func (r *MessageRepository) List(ctx context.Context, roomID string, limit int, before *time.Time) ([]*chat.Message, int, error) {
	keyCondition := expression.Key("room_id").Equal(expression.Value(roomID))
	if before != nil {
		keyCondition = keyCondition.And(
			expression.Key("timestamp").LessThan(expression.Value(before.Format(time.RFC3339Nano))))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(keyCondition).Build()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build message query: %w", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query messages: %w", err)
	}

	messages := make([]*chat.Message, 0, len(out.Items))
	for _, raw := range out.Items {
		var item messageItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Skipping unreadable message item", zap.Error(err))
			continue
		}
		ts, err := messageTimestamp(item.Timestamp)
		if err != nil {
			r.logger.Warn("Skipping message with bad timestamp",
				zap.String("room_id", item.RoomID), zap.Error(err))
			continue
		}
		messages = append(messages, &chat.Message{
			RoomID:    item.RoomID,
			SenderUID: item.SenderUID,
			Content:   item.Content,
			Timestamp: ts,
		})
	}

	total, err := r.countMessages(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *MessageRepository) countMessages(ctx context.Context, roomID string) (int, error) {
	total := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("room_id = :room"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":room": &types.AttributeValueMemberS{Value: roomID},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count messages: %w", err)
		}
		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return total, nil
}
