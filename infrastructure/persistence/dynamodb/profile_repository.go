// Package dynamodb implements the persistence ports on DynamoDB.
// Every contended write uses a condition expression; the repositories
// never read-modify-write a shared record.
package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/domain/profile"
)

// ProfileRepository implements ports.ProfileRepository on a table
// keyed by uid.
type ProfileRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

func NewProfileRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.ProfileRepository {
	return &ProfileRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// vectorItem flattens the vector tagged union for storage. Kind
// selects which side is meaningful.
type vectorItem struct {
	Kind  string    `dynamodbav:"kind"`
	Nums  []float64 `dynamodbav:"nums,omitempty"`
	Words []string  `dynamodbav:"words,omitempty"`
}

func toVectorItem(v profile.Vector) vectorItem {
	switch v.Kind() {
	case profile.VectorNumeric:
		return vectorItem{Kind: "numeric", Nums: v.Numeric()}
	case profile.VectorLexical:
		return vectorItem{Kind: "lexical", Words: v.Lexical()}
	default:
		return vectorItem{Kind: "empty"}
	}
}

func fromVectorItem(item vectorItem) profile.Vector {
	switch item.Kind {
	case "numeric":
		return profile.NumericVector(item.Nums)
	case "lexical":
		return profile.LexicalVector(item.Words)
	default:
		return profile.Vector{}
	}
}

type embeddingItem struct {
	PossessedVector vectorItem `dynamodbav:"possessed_vector"`
	NeededVector    vectorItem `dynamodbav:"needed_vector"`
	LastIndexedAt   *string    `dynamodbav:"last_indexed_at,omitempty"`
}

// profileItem is the DynamoDB item structure for a profile
type profileItem struct {
	UID         string           `dynamodbav:"uid"`
	EntityType  string           `dynamodbav:"EntityType"`
	CreatedAt   string           `dynamodbav:"created_at"`
	UpdatedAt   *string          `dynamodbav:"updated_at,omitempty"`
	Identity    profile.Identity `dynamodbav:"identity"`
	FocusAreas  []string         `dynamodbav:"focus_areas"`
	Project     *profile.Project `dynamodbav:"project,omitempty"`
	Skills      profile.Skills   `dynamodbav:"skills"`
	Embeddings  *embeddingItem   `dynamodbav:"embeddings,omitempty"`
	DeviceToken string           `dynamodbav:"device_token,omitempty"`
}

func toProfileItem(p *profile.Profile) profileItem {
	item := profileItem{
		UID:         p.UID,
		EntityType:  "PROFILE",
		CreatedAt:   p.CreatedAt.Format(time.RFC3339Nano),
		Identity:    p.Identity,
		Project:     p.Project,
		Skills:      p.Skills,
		DeviceToken: p.DeviceToken,
	}
	if p.UpdatedAt != nil {
		s := p.UpdatedAt.Format(time.RFC3339Nano)
		item.UpdatedAt = &s
	}
	item.FocusAreas = make([]string, len(p.FocusAreas))
	for i, fa := range p.FocusAreas {
		item.FocusAreas[i] = string(fa)
	}
	if p.Embeddings != nil {
		emb := embeddingItem{
			PossessedVector: toVectorItem(p.Embeddings.PossessedVector),
			NeededVector:    toVectorItem(p.Embeddings.NeededVector),
		}
		if p.Embeddings.LastIndexedAt != nil {
			s := p.Embeddings.LastIndexedAt.Format(time.RFC3339Nano)
			emb.LastIndexedAt = &s
		}
		item.Embeddings = &emb
	}
	return item
}

func fromProfileItem(item profileItem) (*profile.Profile, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at on profile %s: %w", item.UID, err)
	}

	p := &profile.Profile{
		UID:         item.UID,
		CreatedAt:   createdAt,
		Identity:    item.Identity,
		Project:     item.Project,
		Skills:      item.Skills,
		DeviceToken: item.DeviceToken,
	}
	if item.UpdatedAt != nil {
		if t, err := time.Parse(time.RFC3339Nano, *item.UpdatedAt); err == nil {
			p.UpdatedAt = &t
		}
	}
	p.FocusAreas = make([]profile.FocusArea, len(item.FocusAreas))
	for i, fa := range item.FocusAreas {
		p.FocusAreas[i] = profile.FocusArea(fa)
	}
	if item.Embeddings != nil {
		bundle := &profile.EmbeddingBundle{
			PossessedVector: fromVectorItem(item.Embeddings.PossessedVector),
			NeededVector:    fromVectorItem(item.Embeddings.NeededVector),
		}
		if item.Embeddings.LastIndexedAt != nil {
			if t, err := time.Parse(time.RFC3339Nano, *item.Embeddings.LastIndexedAt); err == nil {
				bundle.LastIndexedAt = &t
			}
		}
		p.Embeddings = bundle
	}
	return p, nil
}

// Save upserts the full profile document
func (r *ProfileRepository) Save(ctx context.Context, p *profile.Profile) error {
	av, err := attributevalue.MarshalMap(toProfileItem(p))
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		r.logger.Error("Failed to save profile",
			zap.Error(err), zap.String("uid", p.UID))
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetByUID returns (nil, nil) when the profile does not exist
func (r *ProfileRepository) GetByUID(ctx context.Context, uid string) (*profile.Profile, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       profileKey(uid),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item profileItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return fromProfileItem(item)
}

// ListAll scans the whole profile table. The candidate pool is small
// enough that the ranker rescans on every request.
func (r *ProfileRepository) ListAll(ctx context.Context) ([]*profile.Profile, error) {
	var profiles []*profile.Profile
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan profiles: %w", err)
		}

		for _, raw := range out.Items {
			var item profileItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Skipping unreadable profile item", zap.Error(err))
				continue
			}
			p, err := fromProfileItem(item)
			if err != nil {
				r.logger.Warn("Skipping corrupt profile item",
					zap.String("uid", item.UID), zap.Error(err))
				continue
			}
			profiles = append(profiles, p)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return profiles, nil
}

// Delete removes the profile; false when nothing was stored
func (r *ProfileRepository) Delete(ctx context.Context, uid string) (bool, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          profileKey(uid),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete profile: %w", err)
	}
	return len(out.Attributes) > 0, nil
}

// SetDeviceToken stores the push token without touching the rest of
// the document
func (r *ProfileRepository) SetDeviceToken(ctx context.Context, uid, token string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 profileKey(uid),
		UpdateExpression:    aws.String("SET device_token = :token"),
		ConditionExpression: aws.String("attribute_exists(uid)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":token": &types.AttributeValueMemberS{Value: token},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set device token: %w", err)
	}
	return nil
}

func profileKey(uid string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"uid": &types.AttributeValueMemberS{Value: uid},
	}
}
