// Package dynamostore is a DynamoDB mfa.Store keyed by (user_id, type).
package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/restauth/pkg/mfa"
	"github.com/dmitrymomot/restauth/pkg/totp"
)

// DefaultConsumeAttempts bounds the optimistic retries of ConsumeRecoveryCode.
const DefaultConsumeAttempts = 5

var (
	ErrTooMuchContention = errors.New("dynamostore: recovery code update kept conflicting")
	ErrTableNotFound     = errors.New("dynamostore: table not found")
	ErrThrottled         = errors.New("dynamostore: request throttled")
)

// API is the subset of *dynamodb.Client the store uses.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Store keeps authenticators in a DynamoDB table keyed by user_id and type.
type Store struct {
	client   API
	table    string
	attempts int
}

// Option configures a Store.
type Option func(*Store)

// WithConsumeAttempts bounds the retries of a contended recovery code update.
func WithConsumeAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// New returns a Store over table. EnsureTable creates it when missing.
func New(client API, table string, opts ...Option) *Store {
	s := &Store{client: client, table: table, attempts: DefaultConsumeAttempts}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureTable creates the table if missing and waits until it is active.
func (s *Store) EnsureTable(ctx context.Context, wait time.Duration) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("user_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("type"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("type"), KeyType: types.KeyTypeRange},
		},
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, wait)
}

func key(userID string, t mfa.FactorType) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: userID},
		"type":    &types.AttributeValueMemberS{Value: string(t)},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// mapError keeps condition failures intact for the callers that expect them.
func mapError(op string, err error) error {
	if err == nil || isConditionFailed(err) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch code := apiErr.ErrorCode(); code {
		case "ResourceNotFoundException":
			return fmt.Errorf("%w: %s", ErrTableNotFound, op)
		case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
			return fmt.Errorf("%w: %s", ErrThrottled, op)
		default:
			return fmt.Errorf("%s failed (code: %s): %w", op, code, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Store) Get(ctx context.Context, userID string, t mfa.FactorType) (*mfa.Authenticator, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(userID, t),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, mapError("get", err)
	}
	if out.Item == nil {
		return nil, mfa.ErrAuthenticatorNotFound
	}

	var a mfa.Authenticator
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal authenticator: %w", err)
	}
	return &a, nil
}

func (s *Store) Insert(ctx context.Context, a *mfa.Authenticator) error {
	err := s.put(ctx, a, aws.String("attribute_not_exists(user_id)"))
	if isConditionFailed(err) {
		return mfa.ErrAuthenticatorExists
	}
	return err
}

func (s *Store) Upsert(ctx context.Context, a *mfa.Authenticator) error {
	return s.put(ctx, a, nil)
}

func (s *Store) put(ctx context.Context, a *mfa.Authenticator, condition *string) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal authenticator: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: condition,
	})
	return mapError("put", err)
}

func (s *Store) Touch(ctx context.Context, userID string, t mfa.FactorType, at time.Time) error {
	when, err := attributevalue.Marshal(at)
	if err != nil {
		return err
	}
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(userID, t),
		UpdateExpression:          aws.String("SET last_used_at = :at"),
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":at": when},
	})
	if isConditionFailed(err) {
		return mfa.ErrAuthenticatorNotFound
	}
	return mapError("touch", err)
}

// ConsumeRecoveryCode reads the mask and writes it back conditioned on the
// value it read, retrying a bounded number of times on conflict.
func (s *Store) ConsumeRecoveryCode(ctx context.Context, userID, seed string, index int, at time.Time) (bool, error) {
	when, err := attributevalue.Marshal(at)
	if err != nil {
		return false, err
	}

	for range s.attempts {
		a, err := s.Get(ctx, userID, mfa.FactorRecoveryCodes)
		if errors.Is(err, mfa.ErrAuthenticatorNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if a.Data.Seed != seed || totp.IsRecoveryCodeUsed(a.Data.UsedMask, index) {
			return false, nil
		}

		next := totp.MarkRecoveryCodeUsed(a.Data.UsedMask, index)
		_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(s.table),
			Key:                 key(userID, mfa.FactorRecoveryCodes),
			UpdateExpression:    aws.String("SET #d.used_mask = :next, last_used_at = :at"),
			ConditionExpression: aws.String("#d.used_mask = :old AND #d.seed = :seed"),
			ExpressionAttributeNames: map[string]string{
				"#d": "data",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":next": &types.AttributeValueMemberN{Value: fmt.Sprint(next)},
				":old":  &types.AttributeValueMemberN{Value: fmt.Sprint(a.Data.UsedMask)},
				":seed": &types.AttributeValueMemberS{Value: seed},
				":at":   when,
			},
		})
		if err == nil {
			return true, nil
		}
		if !isConditionFailed(err) {
			return false, mapError("consume recovery code", err)
		}
	}
	return false, ErrTooMuchContention
}

func (s *Store) Delete(ctx context.Context, userID string, factorTypes ...mfa.FactorType) error {
	factors := mfa.FactorsOrAll(factorTypes)
	items := make([]types.TransactWriteItem, 0, len(factors))
	for _, t := range factors {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(s.table),
				Key:       key(userID, t),
			},
		})
	}
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	return mapError("delete", err)
}
