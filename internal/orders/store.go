package orders

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

// OrderNumberIndex is the GSI on order_number.
const OrderNumberIndex = "order-number-index"

// ErrStatusMismatch indicates a conditional status update found a different
// current state than expected.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// ErrDuplicateRequest indicates the order-creation transaction was cancelled
// because the idempotency key already exists.
var ErrDuplicateRequest = errors.New("duplicate request: idempotency key exists")

// ErrAlreadyNotified indicates the confirmation was already recorded as sent.
var ErrAlreadyNotified = errors.New("confirmation already sent")

// StockConflictError reports which stock decrement cancelled the creation
// transaction. ItemIndex addresses the stockItems slice the caller passed.
type StockConflictError struct {
	ItemIndex int
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("stock condition failed for line item %d", e.ItemIndex)
}

// StatusUpdate carries the optional fields an operator transition may set.
type StatusUpdate struct {
	TrackingNumber    string
	EstimatedDelivery *time.Time // applied with if_not_exists
	DeliveredAt       *time.Time
	AdminNotes        string
}

// Store encapsulates operations on the orders table.
type Store struct {
	client    platform.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client platform.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// CreateOrderTransaction atomically performs, in one TransactWriteItems:
//   - Put of the idempotency record (ConditionExpression attribute_not_exists(idempotency_key))
//   - Put of the order (ConditionExpression attribute_not_exists(order_id))
//   - every stock decrement in stockItems (each conditional on availability)
//
// Order creation therefore fully succeeds or leaves nothing behind: no order
// without its decrements, no decrement without its order.
//
// Cancellation reasons are mapped back: ErrDuplicateRequest when the
// idempotency condition failed, *StockConflictError naming the offending
// line when a stock condition failed.
func (s *Store) CreateOrderTransaction(ctx context.Context, idempotencyTable string, idempotencyItem interface{}, order Order, stockItems []types.TransactWriteItem) error {
	idempMap, err := attributevalue.MarshalMap(idempotencyItem)
	if err != nil {
		return fmt.Errorf("marshal idempotency item: %w", err)
	}

	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	transactItems := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           &idempotencyTable,
				Item:                idempMap,
				ConditionExpression: awsString("attribute_not_exists(idempotency_key)"),
			},
		},
		{
			Put: &types.Put{
				TableName:           &s.tableName,
				Item:                orderMap,
				ConditionExpression: awsString("attribute_not_exists(order_id)"),
			},
		},
	}
	transactItems = append(transactItems, stockItems...)

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for i, reason := range tce.CancellationReasons {
				if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
					continue
				}
				switch {
				case i == 0:
					return ErrDuplicateRequest
				case i >= 2:
					return &StockConflictError{ItemIndex: i - 2}
				}
			}
			return fmt.Errorf("transaction canceled: %w", err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// GetByNumber fetches an order by its human-readable number via the GSI.
// Returns (nil, nil) if not found.
func (s *Store) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(OrderNumberIndex),
		KeyConditionExpression: awsString("order_number = :on"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":on": &types.AttributeValueMemberS{Value: orderNumber},
		},
		Limit: awsInt32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query order by number: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// ListByCustomer returns a customer's orders via the customer GSI.
func (s *Store) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString("customer-index"),
		KeyConditionExpression: awsString("customer_id = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: customerID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query orders by customer: %w", err)
	}
	result := make([]Order, 0, len(out.Items))
	for _, item := range out.Items {
		var o Order
		if err := attributevalue.UnmarshalMap(item, &o); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
		result = append(result, o)
	}
	return result, nil
}

// UpdateStatus conditionally moves the order from expected -> next and
// applies the side-effect fields for the target state. Returns
// ErrStatusMismatch if the current status is not the expected one, which is
// how concurrent operator edits and settlement callbacks stay safe.
func (s *Store) UpdateStatus(ctx context.Context, orderID string, expected, next Status, upd StatusUpdate) error {
	now := s.nowFunc()
	updateExpr := "SET #s = :new, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: string(next)},
		":expected": &types.AttributeValueMemberS{Value: string(expected)},
		":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
	}
	if upd.TrackingNumber != "" {
		updateExpr += ", tracking_number = :tn"
		values[":tn"] = &types.AttributeValueMemberS{Value: upd.TrackingNumber}
	}
	if upd.EstimatedDelivery != nil {
		updateExpr += ", estimated_delivery = if_not_exists(estimated_delivery, :ed)"
		values[":ed"] = &types.AttributeValueMemberS{Value: upd.EstimatedDelivery.Format(time.RFC3339)}
	}
	if upd.DeliveredAt != nil {
		updateExpr += ", delivered_at = :da"
		values[":da"] = &types.AttributeValueMemberS{Value: upd.DeliveredAt.Format(time.RFC3339)}
	}
	if upd.AdminNotes != "" {
		updateExpr += ", admin_notes = :an"
		values[":an"] = &types.AttributeValueMemberS{Value: upd.AdminNotes}
	}

	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("#s = :expected"),
	})
	if err != nil {
		if platform.ConditionalCheckFailed(err) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// SetPaymentReference records the gateway reference on the order after a
// transaction has been initialized.
func (s *Store) SetPaymentReference(ctx context.Context, orderID, reference string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET payment.#rf = :r, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#rf": "reference",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r":  &types.AttributeValueMemberS{Value: reference},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: awsString("attribute_exists(order_id)"),
	})
	if err != nil {
		return fmt.Errorf("set payment reference: %w", err)
	}
	return nil
}

// CompletePayment settles the payment and confirms the order in one CAS:
// the payment must not already be completed and the order must still be
// pending. A previously failed charge settles normally here, which is what
// lets a shopper retry after a decline. A second settlement of the same
// reference fails the condition and is reported as ErrStatusMismatch, which
// callers treat as "already settled".
func (s *Store) CompletePayment(ctx context.Context, orderID string, amountPaid int64) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET payment.#ps = :completed, payment.amount_paid = :ap, #s = :confirmed, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#ps": "status",
			"#s":  "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed": &types.AttributeValueMemberS{Value: PaymentCompleted},
			":ap":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", amountPaid)},
			":confirmed": &types.AttributeValueMemberS{Value: string(StatusConfirmed)},
			":spending":  &types.AttributeValueMemberS{Value: string(StatusPending)},
			":ua":        &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: awsString("payment.#ps <> :completed AND #s = :spending"),
	})
	if err != nil {
		if platform.ConditionalCheckFailed(err) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("complete payment: %w", err)
	}
	return nil
}

// FailPayment marks the payment failed. The order itself stays pending so
// payment can be retried or the order abandoned; decremented stock is not
// restored here.
func (s *Store) FailPayment(ctx context.Context, orderID string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET payment.#ps = :failed, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#ps": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed":  &types.AttributeValueMemberS{Value: PaymentFailed},
			":pending": &types.AttributeValueMemberS{Value: PaymentPending},
			":ua":      &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: awsString("payment.#ps = :pending"),
	})
	if err != nil {
		if platform.ConditionalCheckFailed(err) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("fail payment: %w", err)
	}
	return nil
}

// MarkConfirmationSent records that the confirmation notification went out.
// The condition makes redelivered queue messages a no-op.
func (s *Store) MarkConfirmationSent(ctx context.Context, orderID string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET confirmation_sent = :true, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true":  &types.AttributeValueMemberBOOL{Value: true},
			":false": &types.AttributeValueMemberBOOL{Value: false},
			":ua":    &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: awsString("attribute_not_exists(confirmation_sent) OR confirmation_sent = :false"),
	})
	if err != nil {
		if platform.ConditionalCheckFailed(err) {
			return ErrAlreadyNotified
		}
		return fmt.Errorf("mark confirmation sent: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
func awsInt32(n int32) *int32    { return &n }
