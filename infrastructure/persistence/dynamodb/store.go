// Package dynamodb stores player state in a single DynamoDB table.
//
// Table layout:
//
//	PK               SK        attributes
//	USER#<userId>    PROFILE   Version, Profile (map), UpdatedAt
//	SESSION#<id>     SESSION   Session (map), ExpiresAt (TTL, epoch seconds)
//
// Profiles are written with a version condition so two concurrent turns for
// the same user cannot silently overwrite each other.
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
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"gnome-garden/application/ports"
	"gnome-garden/domain/player"
	appErrors "gnome-garden/pkg/errors"
)

const (
	profileSK = "PROFILE"
	sessionSK = "SESSION"
)

// API is the subset of the DynamoDB client the store uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type profileItem struct {
	PK        string         `dynamodbav:"PK"`
	SK        string         `dynamodbav:"SK"`
	Version   int64          `dynamodbav:"Version"`
	Profile   player.Profile `dynamodbav:"Profile"`
	UpdatedAt string         `dynamodbav:"UpdatedAt"`
}

type sessionItem struct {
	PK        string         `dynamodbav:"PK"`
	SK        string         `dynamodbav:"SK"`
	Session   player.Session `dynamodbav:"Session"`
	ExpiresAt int64          `dynamodbav:"ExpiresAt,omitempty"`
}

// Store implements ports.StateStore on DynamoDB
type Store struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewStore creates a new DynamoDB state store
func NewStore(client API, tableName string, logger *zap.Logger) *Store {
	return &Store{client: client, tableName: tableName, logger: logger}
}

func userKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "USER#" + userID},
		"SK": &types.AttributeValueMemberS{Value: profileSK},
	}
}

func sessionKey(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "SESSION#" + sessionID},
		"SK": &types.AttributeValueMemberS{Value: sessionSK},
	}
}

// LoadProfile implements ports.StateStore
func (s *Store) LoadProfile(ctx context.Context, userID string) (*player.Profile, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            userKey(userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify(err, "GetProfile")
	}
	if out.Item == nil {
		return nil, ports.ErrNotFound
	}

	var item profileItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		var head struct {
			Version int64 `dynamodbav:"Version"`
		}
		if av, ok := out.Item["Version"]; ok {
			_ = attributevalue.UnmarshalMap(map[string]types.AttributeValue{"Version": av}, &head)
		}
		return &player.Profile{UserID: userID, Version: head.Version},
			fmt.Errorf("%w: profile item: %v", player.ErrInvalidState, err)
	}
	p := item.Profile
	p.Version = item.Version
	if err := p.Validate(); err != nil {
		return &player.Profile{UserID: userID, Version: item.Version}, err
	}
	return &p, nil
}

// SaveProfile implements ports.StateStore with an optimistic version check
func (s *Store) SaveProfile(ctx context.Context, p *player.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	next := *p
	next.Version = p.Version + 1
	item, err := attributevalue.MarshalMap(profileItem{
		PK:        "USER#" + p.UserID,
		SK:        profileSK,
		Version:   next.Version,
		Profile:   next,
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	var condition expression.ConditionBuilder
	if p.Version > 0 {
		condition = expression.Name("Version").Equal(expression.Value(p.Version))
	} else {
		condition = expression.Name("PK").AttributeNotExists()
	}
	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return classify(err, "PutProfile")
	}

	p.Version = next.Version
	s.logger.Debug("Profile saved",
		zap.String("user_id", p.UserID),
		zap.Int64("version", p.Version),
	)
	return nil
}

// LoadSession implements ports.StateStore. DynamoDB deletes expired items
// lazily, so the expiry is checked here too.
func (s *Store) LoadSession(ctx context.Context, sessionID string) (*player.Session, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       sessionKey(sessionID),
	})
	if err != nil {
		return nil, classify(err, "GetSession")
	}
	if out.Item == nil {
		return nil, ports.ErrNotFound
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("%w: session item: %v", player.ErrInvalidState, err)
	}
	if item.ExpiresAt > 0 && item.ExpiresAt <= time.Now().Unix() {
		return nil, ports.ErrNotFound
	}
	sess := item.Session
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SaveSession implements ports.StateStore
func (s *Store) SaveSession(ctx context.Context, sess *player.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	rec := sessionItem{PK: "SESSION#" + sess.SessionID, SK: sessionSK, Session: *sess}
	if !sess.ExpiresAt.IsZero() {
		rec.ExpiresAt = sess.ExpiresAt.Unix()
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return classify(err, "PutSession")
	}
	return nil
}

// Ping implements ports.HealthChecker
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	if err != nil {
		return classify(err, "DescribeTable")
	}
	return nil
}

// classify maps DynamoDB failures onto the application's error taxonomy.
func classify(err error, operation string) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %s: %v", ports.ErrVersionConflict, operation, err)
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ProvisionedThroughputExceededException", "ThrottlingException",
			"RequestLimitExceeded", "ServiceUnavailable", "InternalServerError":
			return appErrors.NewUnavailableError("dynamodb", err)
		case "ResourceNotFoundException":
			return appErrors.NewDatabaseError(operation, err).WithCode("TABLE_NOT_FOUND")
		}
	}
	return appErrors.NewDatabaseError(operation, err)
}
