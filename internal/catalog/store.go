package catalog

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

// ErrInsufficientStock indicates a conditional stock decrement was rejected
// because the bucket held fewer units than requested.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrSKUExists indicates a create collided with an existing SKU.
var ErrSKUExists = errors.New("sku already exists")

// ErrNotFound indicates the product does not exist.
var ErrNotFound = errors.New("product not found")

// InsufficientStockError carries what the client needs to react: which
// product and how many units are actually available.
type InsufficientStockError struct {
	SKU       string
	Name      string
	Size      string
	Color     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (%s/%s): requested %d, available %d",
		e.Name, e.Size, e.Color, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Store encapsulates operations on the products table.
type Store struct {
	client    platform.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new products Store.
func NewStore(client platform.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create inserts a new product. The stored total_stock is recomputed from the
// stock map. Fails with ErrSKUExists when the SKU is taken.
func (s *Store) Create(ctx context.Context, p Product) error {
	now := s.nowFunc()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.TotalStock = p.ComputeTotalStock()

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(sku)"),
	})
	if err != nil {
		if platform.ConditionalCheckFailed(err) {
			return ErrSKUExists
		}
		return fmt.Errorf("put product: %w", err)
	}
	return nil
}

// Update replaces an existing product document. Order line items hold their
// own price/name snapshots, so editing a product never rewrites history.
func (s *Store) Update(ctx context.Context, p Product) error {
	p.UpdatedAt = s.nowFunc()
	p.TotalStock = p.ComputeTotalStock()

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_exists(sku)"),
	})
	if err != nil {
		if platform.ConditionalCheckFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("put product: %w", err)
	}
	return nil
}

// Get fetches a product by SKU. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, sku string) (*Product, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"sku": &types.AttributeValueMemberS{Value: sku},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

// BatchGet fetches all referenced products in one round trip. Missing SKUs
// are simply absent from the result map; the caller decides whether that is
// an error.
func (s *Store) BatchGet(ctx context.Context, skus []string) (map[string]*Product, error) {
	result := make(map[string]*Product, len(skus))
	if len(skus) == 0 {
		return result, nil
	}

	keys := make([]map[string]types.AttributeValue, 0, len(skus))
	seen := map[string]bool{}
	for _, sku := range skus {
		if seen[sku] {
			continue
		}
		seen[sku] = true
		keys = append(keys, map[string]types.AttributeValue{
			"sku": &types.AttributeValueMemberS{Value: sku},
		})
	}

	// BatchGetItem may return unprocessed keys under load; loop until drained.
	for len(keys) > 0 {
		out, err := s.client.BatchGetItem(ctx, &dyn.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				s.tableName: {Keys: keys},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("batch get products: %w", err)
		}
		for _, item := range out.Responses[s.tableName] {
			var p Product
			if err := attributevalue.UnmarshalMap(item, &p); err != nil {
				return nil, fmt.Errorf("unmarshal product: %w", err)
			}
			result[p.SKU] = &p
		}
		keys = nil
		if ka, ok := out.UnprocessedKeys[s.tableName]; ok {
			keys = ka.Keys
		}
	}
	return result, nil
}

// List scans the catalog. When activeOnly is set, only active products are
// returned. Catalog size makes a scan acceptable here; listings are cached
// by the handler layer.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]Product, error) {
	input := &dyn.ScanInput{TableName: &s.tableName}
	if activeOnly {
		input.FilterExpression = awsString("is_active = :true")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
		}
	}

	var products []Product
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan products: %w", err)
		}
		for _, item := range out.Items {
			var p Product
			if err := attributevalue.UnmarshalMap(item, &p); err != nil {
				return nil, fmt.Errorf("unmarshal product: %w", err)
			}
			products = append(products, p)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return products, nil
}

// AdjustStock atomically changes one size/color bucket by delta and keeps
// total_stock in step. Negative deltas are conditional on the bucket holding
// enough units, so a race can never drive a count below zero. Restocking a
// bucket whose size map does not exist yet goes through Update instead.
func (s *Store) AdjustStock(ctx context.Context, sku, size, color string, delta int) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"sku": &types.AttributeValueMemberS{Value: sku},
		},
		UpdateExpression: awsString("SET stock.#sz.#co = if_not_exists(stock.#sz.#co, :zero) + :d, total_stock = if_not_exists(total_stock, :zero) + :d, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#sz": size,
			"#co": color,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":d":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", delta)},
			":ua":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	}
	if delta < 0 {
		input.ConditionExpression = awsString("attribute_exists(sku) AND stock.#sz.#co >= :need")
		input.ExpressionAttributeValues[":need"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", -delta)}
	} else {
		input.ConditionExpression = awsString("attribute_exists(sku)")
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		if platform.ConditionalCheckFailed(err) {
			if delta < 0 {
				return ErrInsufficientStock
			}
			return ErrNotFound
		}
		return fmt.Errorf("adjust stock: %w", err)
	}
	return nil
}

// DecrementTransactItem builds the conditional stock decrement for one order
// line, for inclusion in the order-creation TransactWriteItems. The condition
// rejects the whole transaction if the shopper's exact size/color bucket
// cannot cover the quantity.
func (s *Store) DecrementTransactItem(sku, size, color string, qty int, now time.Time) types.TransactWriteItem {
	q := fmt.Sprintf("%d", qty)
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName: &s.tableName,
			Key: map[string]types.AttributeValue{
				"sku": &types.AttributeValueMemberS{Value: sku},
			},
			UpdateExpression: awsString("SET stock.#sz.#co = stock.#sz.#co - :q, total_stock = total_stock - :q, updated_at = :ua"),
			ExpressionAttributeNames: map[string]string{
				"#sz": size,
				"#co": color,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":q":  &types.AttributeValueMemberN{Value: q},
				":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			},
			ConditionExpression: awsString("attribute_exists(sku) AND stock.#sz.#co >= :q"),
		},
	}
}

func awsString(s string) *string { return &s }
