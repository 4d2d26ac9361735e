package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/domain/connection"
)

// ConnectionRepository implements ports.ConnectionRepository on a
// table keyed by connection_id, with one GSI per participant slot for
// user-level queries.
type ConnectionRepository struct {
	client    *dynamodb.Client
	tableName string
	uid1Index string
	uid2Index string
	logger    *zap.Logger
}

func NewConnectionRepository(client *dynamodb.Client, tableName, uid1Index, uid2Index string, logger *zap.Logger) ports.ConnectionRepository {
	return &ConnectionRepository{
		client:    client,
		tableName: tableName,
		uid1Index: uid1Index,
		uid2Index: uid2Index,
		logger:    logger,
	}
}

// connectionItem is the DynamoDB item structure for a connection
type connectionItem struct {
	ConnectionID         string  `dynamodbav:"connection_id"`
	EntityType           string  `dynamodbav:"EntityType"`
	UID1                 string  `dynamodbav:"uid1"`
	UID2                 string  `dynamodbav:"uid2"`
	UID1Accepted         bool    `dynamodbav:"uid1_accepted"`
	UID2Accepted         bool    `dynamodbav:"uid2_accepted"`
	MatchPercentage      float64 `dynamodbav:"match_percentage"`
	UID1Summary          *string `dynamodbav:"uid1_summary,omitempty"`
	UID2Summary          *string `dynamodbav:"uid2_summary,omitempty"`
	NotificationMessage  *string `dynamodbav:"notification_message,omitempty"`
	CreatedAt            string  `dynamodbav:"created_at"`
	UpdatedAt            *string `dynamodbav:"updated_at,omitempty"`
	LastNearbyNotifiedAt *string `dynamodbav:"last_nearby_notified_at,omitempty"`
}

func toConnectionItem(c *connection.Connection) connectionItem {
	item := connectionItem{
		ConnectionID:        c.ConnectionID,
		EntityType:          "CONNECTION",
		UID1:                c.UID1,
		UID2:                c.UID2,
		UID1Accepted:        c.UID1Accepted,
		UID2Accepted:        c.UID2Accepted,
		MatchPercentage:     c.MatchPercentage,
		UID1Summary:         c.UID1Summary,
		UID2Summary:         c.UID2Summary,
		NotificationMessage: c.NotificationMessage,
		CreatedAt:           c.CreatedAt.Format(time.RFC3339Nano),
	}
	if c.UpdatedAt != nil {
		s := c.UpdatedAt.Format(time.RFC3339Nano)
		item.UpdatedAt = &s
	}
	if c.LastNearbyNotifiedAt != nil {
		s := c.LastNearbyNotifiedAt.Format(time.RFC3339Nano)
		item.LastNearbyNotifiedAt = &s
	}
	return item
}

func fromConnectionItem(item connectionItem) (*connection.Connection, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at on connection %s: %w", item.ConnectionID, err)
	}

	c := &connection.Connection{
		ConnectionID:        item.ConnectionID,
		UID1:                item.UID1,
		UID2:                item.UID2,
		UID1Accepted:        item.UID1Accepted,
		UID2Accepted:        item.UID2Accepted,
		MatchPercentage:     item.MatchPercentage,
		UID1Summary:         item.UID1Summary,
		UID2Summary:         item.UID2Summary,
		NotificationMessage: item.NotificationMessage,
		CreatedAt:           createdAt,
	}
	if item.UpdatedAt != nil {
		if t, err := time.Parse(time.RFC3339Nano, *item.UpdatedAt); err == nil {
			c.UpdatedAt = &t
		}
	}
	if item.LastNearbyNotifiedAt != nil {
		if t, err := time.Parse(time.RFC3339Nano, *item.LastNearbyNotifiedAt); err == nil {
			c.LastNearbyNotifiedAt = &t
		}
	}
	return c, nil
}

// InsertIfAbsent writes the record only when no item exists under its
// connection ID. On a conditional failure it fetches and returns the
// record that won, so concurrent proposals for the same pair converge
// on one stored connection.
func (r *ConnectionRepository) InsertIfAbsent(ctx context.Context, conn *connection.Connection) (bool, *connection.Connection, error) {
	av, err := attributevalue.MarshalMap(toConnectionItem(conn))
	if err != nil {
		return false, nil, fmt.Errorf("failed to marshal connection: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(connection_id)"),
	})
	if err == nil {
		return true, conn, nil
	}

	var conditionalCheckFailed *types.ConditionalCheckFailedException
	if !errors.As(err, &conditionalCheckFailed) {
		return false, nil, fmt.Errorf("failed to insert connection: %w", err)
	}

	r.logger.Debug("Connection already exists, returning stored record",
		zap.String("connection_id", conn.ConnectionID))
	existing, err := r.GetByID(ctx, conn.ConnectionID)
	if err != nil {
		return false, nil, err
	}
	if existing == nil {
		// Deleted between the failed insert and the fetch. Treat it
		// like an insert race we lost and report the conflict.
		return false, nil, fmt.Errorf("connection %s vanished during insert race", conn.ConnectionID)
	}
	return false, existing, nil
}

// GetByID returns (nil, nil) when the record does not exist
func (r *ConnectionRepository) GetByID(ctx context.Context, connectionID string) (*connection.Connection, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       connectionKey(connectionID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item connectionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connection: %w", err)
	}
	return fromConnectionItem(item)
}

// ListForUser queries both participant-slot indexes; a UID appears in
// exactly one slot per connection, so the union has no duplicates.
func (r *ConnectionRepository) ListForUser(ctx context.Context, uid string) ([]*connection.Connection, error) {
	var conns []*connection.Connection
	for _, q := range []struct{ index, field string }{
		{r.uid1Index, "uid1"},
		{r.uid2Index, "uid2"},
	} {
		expr, err := expression.NewBuilder().
			WithKeyCondition(expression.Key(q.field).Equal(expression.Value(uid))).
			Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build connection query: %w", err)
		}

		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(q.index),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query connections: %w", err)
		}
		for _, raw := range out.Items {
			var item connectionItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Skipping unreadable connection item", zap.Error(err))
				continue
			}
			c, err := fromConnectionItem(item)
			if err != nil {
				r.logger.Warn("Skipping corrupt connection item",
					zap.String("connection_id", item.ConnectionID), zap.Error(err))
				continue
			}
			conns = append(conns, c)
		}
	}
	return conns, nil
}

// ListAcceptedForUser filters ListForUser down to mutually accepted
// connections. A one-sided acceptance is still pending, not accepted.
func (r *ConnectionRepository) ListAcceptedForUser(ctx context.Context, uid string) ([]*connection.Connection, error) {
	all, err := r.ListForUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	accepted := make([]*connection.Connection, 0, len(all))
	for _, c := range all {
		if c.State() == connection.StateComplete {
			accepted = append(accepted, c)
		}
	}
	return accepted, nil
}

// SetAccepted atomically flips the positional acceptance flag and
// returns the whole updated record. (nil, nil) when the record is
// gone.
func (r *ConnectionRepository) SetAccepted(ctx context.Context, connectionID, field string, now time.Time) (*connection.Connection, error) {
	if field != "uid1_accepted" && field != "uid2_accepted" {
		return nil, fmt.Errorf("invalid acceptance field: %s", field)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 connectionKey(connectionID),
		UpdateExpression:    aws.String(fmt.Sprintf("SET %s = :true, updated_at = :now", field)),
		ConditionExpression: aws.String("attribute_exists(connection_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":now":  &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to set acceptance: %w", err)
	}

	var item connectionItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal updated connection: %w", err)
	}
	return fromConnectionItem(item)
}

// AttachSummaries sets the generated relationship summaries
func (r *ConnectionRepository) AttachSummaries(ctx context.Context, connectionID string, uid1Summary, uid2Summary, notification *string, now time.Time) (*connection.Connection, error) {
	values := map[string]types.AttributeValue{
		":s1":  nullableString(uid1Summary),
		":s2":  nullableString(uid2Summary),
		":msg": nullableString(notification),
		":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key:       connectionKey(connectionID),
		UpdateExpression: aws.String(
			"SET uid1_summary = :s1, uid2_summary = :s2, notification_message = :msg, updated_at = :now"),
		ConditionExpression:       aws.String("attribute_exists(connection_id)"),
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to attach summaries: %w", err)
	}

	var item connectionItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal updated connection: %w", err)
	}
	return fromConnectionItem(item)
}

// SetNearbyNotifiedAt advances the cooldown timestamp only if the
// stored value still matches previous, so racing notifiers resolve to
// a single winner.
func (r *ConnectionRepository) SetNearbyNotifiedAt(ctx context.Context, connectionID string, previous *time.Time, now time.Time) (bool, error) {
	values := map[string]types.AttributeValue{
		":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
	}
	condition := "attribute_exists(connection_id) AND attribute_not_exists(last_nearby_notified_at)"
	if previous != nil {
		condition = "attribute_exists(connection_id) AND last_nearby_notified_at = :prev"
		values[":prev"] = &types.AttributeValueMemberS{Value: previous.Format(time.RFC3339Nano)}
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       connectionKey(connectionID),
		UpdateExpression:          aws.String("SET last_nearby_notified_at = :now"),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return false, nil
		}
		return false, fmt.Errorf("failed to set nearby timestamp: %w", err)
	}
	return true, nil
}

// DeleteForUser removes every connection involving uid
func (r *ConnectionRepository) DeleteForUser(ctx context.Context, uid string) (int, error) {
	conns, err := r.ListForUser(ctx, uid)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, c := range conns {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       connectionKey(c.ConnectionID),
		})
		if err != nil {
			r.logger.Warn("Failed to delete connection during cascade",
				zap.String("connection_id", c.ConnectionID), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func connectionKey(connectionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"connection_id": &types.AttributeValueMemberS{Value: connectionID},
	}
}

func nullableString(s *string) types.AttributeValue {
	if s == nil {
		return &types.AttributeValueMemberNULL{Value: true}
	}
	return &types.AttributeValueMemberS{Value: *s}
}
