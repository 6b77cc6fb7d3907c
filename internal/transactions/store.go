package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/atelier-commerce/orderflow/internal/platform"
)

// ErrReferenceExists indicates a create collided with an existing reference.
var ErrReferenceExists = errors.New("transaction reference already exists")

// Store encapsulates operations on the transactions table.
type Store struct {
	client    platform.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new transactions Store.
func NewStore(client platform.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create persists a freshly initialized transaction.
func (s *Store) Create(ctx context.Context, txn Transaction) error {
	now := s.nowFunc()
	txn.CreatedAt = now
	txn.UpdatedAt = now

	item, err := attributevalue.MarshalMap(txn)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(#rf)"),
		ExpressionAttributeNames: map[string]string{
			"#rf": "reference",
		},
	})
	if err != nil {
		if platform.ConditionalCheckFailed(err) {
			return ErrReferenceExists
		}
		return fmt.Errorf("put transaction: %w", err)
	}
	return nil
}

// Get fetches a transaction by reference. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, reference string) (*Transaction, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"reference": &types.AttributeValueMemberS{Value: reference},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var txn Transaction
	if err := attributevalue.UnmarshalMap(out.Item, &txn); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return &txn, nil
}

// UpdateStatus records the verification outcome and the raw gateway message.
func (s *Store) UpdateStatus(ctx context.Context, reference, status, gatewayResponse string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"reference": &types.AttributeValueMemberS{Value: reference},
		},
		UpdateExpression: awsString("SET #s = :st, gateway_response = :gr, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":st": &types.AttributeValueMemberS{Value: status},
			":gr": &types.AttributeValueMemberS{Value: gatewayResponse},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
