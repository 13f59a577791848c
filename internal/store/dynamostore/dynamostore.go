// Package dynamostore keeps templates and sessions in a single DynamoDB
// table keyed by PK = "TEMPLATE#<id>" or "SESSION#<id>".
package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/logging"
	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store"
)

const (
	attrPK         = "PK"
	attrEntityType = "EntityType"

	entityTemplate = "TEMPLATE"
	entitySession  = "SESSION"
)

// API is the subset of the DynamoDB client the store uses
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Store is a store.Port on DynamoDB
type Store struct {
	store.Broadcaster

	api    API
	table  string
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logging.OrNop(l)
	}
}

// WithClock overrides the creation timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

var _ store.Port = (*Store)(nil)
var _ store.Subscriber = (*Store)(nil)

// New wraps an existing client
func New(api API, table string, opts ...Option) *Store {
	s := &Store{
		api:    api,
		table:  table,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("table", table))
	return s
}

// NewFromConfig loads the default AWS configuration. endpoint may point
// at DynamoDB Local.
func NewFromConfig(ctx context.Context, table, region, endpoint string, opts ...Option) (*Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return New(client, table, opts...), nil
}

// EnsureTable creates the table with on-demand billing when it is missing
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "ResourceNotFoundException" {
		return fmt.Errorf("failed to describe table: %w", err)
	}

	_, err = s.api.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrPK), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrPK), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	s.logger.Info("created table")
	return nil
}

func key(entity, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: entity + "#" + id},
	}
}

// toItem marshals v and adds the key and entity type attributes
func toItem(entity, id string, v interface{}) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", entity, err)
	}
	item[attrPK] = &types.AttributeValueMemberS{Value: entity + "#" + id}
	item[attrEntityType] = &types.AttributeValueMemberS{Value: entity}
	return item, nil
}

// put inserts a new item and refuses to overwrite
func (s *Store) put(ctx context.Context, item map[string]types.AttributeValue) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name(attrPK).AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return err
}

// update applies a SET to an existing item. A missing item maps to NotFound.
func (s *Store) update(ctx context.Context, kind, entity, id string, set expression.UpdateBuilder) error {
	expr, err := expression.NewBuilder().
		WithUpdate(set).
		WithCondition(expression.Name(attrPK).AttributeExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(entity, id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return models.NotFound(kind, id)
	}
	return err
}

func (s *Store) get(ctx context.Context, entity, id string, out interface{}) (bool, error) {
	res, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(entity, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, err
	}
	if res.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", entity, err)
	}
	return true, nil
}

func (s *Store) remove(ctx context.Context, entity, id string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       key(entity, id),
	})
	return err
}

// scan returns every item of one entity type across all pages
func (s *Store) scan(ctx context.Context, entity string) ([]map[string]types.AttributeValue, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name(attrEntityType).Equal(expression.Value(entity))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	var items []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}
