package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/atelier-commerce/orderflow/internal/catalog"
	"github.com/atelier-commerce/orderflow/internal/idempotency"
	"github.com/atelier-commerce/orderflow/internal/orders"
	"github.com/atelier-commerce/orderflow/internal/platform"
)

// ProductNotFoundError names the cart reference that resolved to no active
// product.
type ProductNotFoundError struct {
	SKU string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %q not found or inactive", e.SKU)
}

// EventPublisher is the post-commit event sink. Satisfied by
// platform.Publisher.
type EventPublisher interface {
	SendOrderMessage(ctx context.Context, messageBody string, attributes map[string]string) error
}

// ItemInput is one cart line as submitted by the client. The shopper's
// selected size and color ride along so the decrement hits that exact
// bucket.
type ItemInput struct {
	SKU      string
	Size     string
	Color    string
	Quantity int
}

// PlaceOrderInput is the validated request for order placement.
type PlaceOrderInput struct {
	CustomerID      string
	Items           []ItemInput
	ShippingAddress orders.Address
	BillingAddress  *orders.Address // nil defaults to shipping
	PaymentMethod   string
	Notes           string
	IdempotencyKey  string
	CorrelationID   string
}

// Service turns a validated cart into a persisted order. Resolution, stock
// checks and pricing happen before anything is written; the write itself is
// one transaction covering the idempotency record, the order, and every
// stock decrement.
type Service struct {
	products   *catalog.Store
	orders     *orders.Store
	idempTable string
	idempTTL   time.Duration
	publisher  EventPublisher
	metrics    *platform.Metrics
	pricing    PricingConfig
	currency   string

	nowFunc func() time.Time
	newID   func() string
}

// NewService wires an order placement service.
func NewService(products *catalog.Store, orderStore *orders.Store, idempTable string, idempTTL time.Duration, publisher EventPublisher, metrics *platform.Metrics, pricing PricingConfig, currency string) *Service {
	return &Service{
		products:   products,
		orders:     orderStore,
		idempTable: idempTable,
		idempTTL:   idempTTL,
		publisher:  publisher,
		metrics:    metrics,
		pricing:    pricing,
		currency:   currency,
		nowFunc:    time.Now,
		newID:      uuid.NewString,
	}
}

// PlaceOrder validates the cart against the live catalog, snapshots prices,
// computes the quote and persists the order transactionally. Returns
// orders.ErrDuplicateRequest when the idempotency key has been seen before;
// the handler replays the stored response in that case.
//
// A stock condition that fails inside the transaction (a concurrent order
// took the last units between our read and our write) is retried once
// against fresh reads before surfacing as insufficient stock.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*orders.Order, error) {
	items := mergeItems(in.Items)
	orderID := s.newID()

	var order *orders.Order
	var conflict *orders.StockConflictError
	for attempt := 0; attempt < 2; attempt++ {
		o, err := s.tryPlace(ctx, in, items, orderID)
		if err == nil {
			order = o
			break
		}
		if errors.As(err, &conflict) && attempt == 0 {
			continue
		}
		if errors.As(err, &conflict) {
			return nil, s.stockConflictToError(ctx, items, conflict)
		}
		return nil, err
	}

	if err := s.metrics.Count(ctx, platform.MetricOrdersPlaced, 1); err != nil {
		log.Printf("[checkout] metric: %v", err)
	}
	s.publishConfirmation(ctx, order, in.CorrelationID)

	return order, nil
}

// tryPlace runs one resolution + pricing + transaction attempt.
func (s *Service) tryPlace(ctx context.Context, in PlaceOrderInput, items []ItemInput, orderID string) (*orders.Order, error) {
	skus := make([]string, 0, len(items))
	for _, it := range items {
		skus = append(skus, it.SKU)
	}
	products, err := s.products.BatchGet(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}

	now := s.nowFunc()
	lines := make([]orders.LineItem, 0, len(items))
	stockItems := make([]dbtypes.TransactWriteItem, 0, len(items))
	for _, it := range items {
		p, ok := products[it.SKU]
		if !ok || !p.IsActive {
			return nil, &ProductNotFoundError{SKU: it.SKU}
		}
		if available := p.Available(it.Size, it.Color); available < it.Quantity {
			if err := s.metrics.Count(ctx, platform.MetricInsufficientStock, 1); err != nil {
				log.Printf("[checkout] metric: %v", err)
			}
			return nil, &catalog.InsufficientStockError{
				SKU:       p.SKU,
				Name:      p.Name,
				Size:      it.Size,
				Color:     it.Color,
				Requested: it.Quantity,
				Available: available,
			}
		}
		// snapshot at current server-side price; the client-supplied price is
		// display data only and never trusted
		lines = append(lines, orders.LineItem{
			SKU:       p.SKU,
			Name:      p.Name,
			Designer:  p.Designer,
			Image:     p.PrimaryImage(),
			Size:      it.Size,
			Color:     it.Color,
			UnitPrice: p.Price,
			Quantity:  it.Quantity,
		})
		stockItems = append(stockItems, s.products.DecrementTransactItem(p.SKU, it.Size, it.Color, it.Quantity, now))
	}

	cod := in.PaymentMethod == orders.MethodCashOnDelivery
	quote := PriceOrder(lines, s.pricing, cod)

	billing := in.ShippingAddress
	if in.BillingAddress != nil {
		billing = *in.BillingAddress
	}

	order := orders.Order{
		OrderID:         orderID,
		OrderNumber:     orders.NewOrderNumber(now),
		CustomerID:      in.CustomerID,
		Items:           lines,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  billing,
		Payment: orders.Payment{
			Method:        in.PaymentMethod,
			Status:        orders.PaymentPending,
			Amount:        quote.Total,
			UpfrontAmount: quote.UpfrontAmount,
			Currency:      s.currency,
		},
		Status:       orders.StatusPending,
		Subtotal:     quote.Subtotal,
		ShippingCost: quote.ShippingCost,
		Tax:          quote.Tax,
		Total:        quote.Total,
		AdminNotes:   in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	idempItem := idempotency.NewRecord(in.IdempotencyKey, orderID, now, s.idempTTL)
	if err := s.orders.CreateOrderTransaction(ctx, s.idempTable, idempItem, order, stockItems); err != nil {
		return nil, err
	}
	return &order, nil
}

// stockConflictToError maps a transaction cancellation back to a
// client-facing insufficient-stock error with fresh availability.
func (s *Service) stockConflictToError(ctx context.Context, items []ItemInput, conflict *orders.StockConflictError) error {
	if conflict.ItemIndex < 0 || conflict.ItemIndex >= len(items) {
		return fmt.Errorf("stock conflict: %w", catalog.ErrInsufficientStock)
	}
	it := items[conflict.ItemIndex]
	available := 0
	name := it.SKU
	if p, err := s.products.Get(ctx, it.SKU); err == nil && p != nil {
		available = p.Available(it.Size, it.Color)
		name = p.Name
	}
	if err := s.metrics.Count(ctx, platform.MetricInsufficientStock, 1); err != nil {
		log.Printf("[checkout] metric: %v", err)
	}
	return &catalog.InsufficientStockError{
		SKU:       it.SKU,
		Name:      name,
		Size:      it.Size,
		Color:     it.Color,
		Requested: it.Quantity,
		Available: available,
	}
}

// publishConfirmation emits the post-commit notification event. Best-effort:
// a publish failure is logged and never unwinds the committed order.
func (s *Service) publishConfirmation(ctx context.Context, o *orders.Order, correlationID string) {
	payload, err := json.Marshal(map[string]interface{}{
		"order_id":     o.OrderID,
		"order_number": o.OrderNumber,
		"email":        o.ShippingAddress.Email,
		"name":         o.ShippingAddress.Name,
		"total":        o.Total,
		"currency":     o.Payment.Currency,
	})
	if err != nil {
		log.Printf("[checkout] marshal confirmation event for %s: %v", o.OrderID, err)
		return
	}
	attrs := map[string]string{
		"order_id":       o.OrderID,
		"correlation_id": correlationID,
	}
	if err := s.publisher.SendOrderMessage(ctx, string(payload), attrs); err != nil {
		log.Printf("[checkout] publish confirmation event for %s: %v", o.OrderID, err)
	}
}

// mergeItems folds duplicate (sku,size,color) lines into one so a cart with
// a repeated entry produces a single decrement.
func mergeItems(items []ItemInput) []ItemInput {
	type key struct{ sku, size, color string }
	index := map[key]int{}
	merged := make([]ItemInput, 0, len(items))
	for _, it := range items {
		k := key{it.SKU, it.Size, it.Color}
		if i, ok := index[k]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[k] = len(merged)
		merged = append(merged, it)
	}
	return merged
}
