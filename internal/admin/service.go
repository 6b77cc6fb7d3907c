package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/atelier-commerce/orderflow/internal/orders"
	"github.com/atelier-commerce/orderflow/internal/platform"
	"github.com/atelier-commerce/orderflow/internal/transactions"
)

// EstimatedDeliveryOffset is applied when an order ships without an
// estimated delivery date already set.
const EstimatedDeliveryOffset = 72 * time.Hour

// ErrOrderNotFound indicates the order id resolves to nothing.
var ErrOrderNotFound = errors.New("order not found")

// ErrConcurrentUpdate indicates another writer changed the order between
// our read and our conditional write.
var ErrConcurrentUpdate = errors.New("order changed concurrently, retry")

// InvalidTransitionError reports a status change the transition table
// forbids.
type InvalidTransitionError struct {
	From orders.Status
	To   orders.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// Service is the operator-facing order management surface: transition-table
// enforced status updates and manual payment settlement for when the
// automated callback never arrived.
type Service struct {
	orders  *orders.Store
	txns    *transactions.Store
	metrics *platform.Metrics
	nowFunc func() time.Time
}

// NewService wires an admin order management service.
func NewService(orderStore *orders.Store, txnStore *transactions.Store, metrics *platform.Metrics) *Service {
	return &Service{
		orders:  orderStore,
		txns:    txnStore,
		metrics: metrics,
		nowFunc: time.Now,
	}
}

// UpdateStatus moves an order to newStatus if the transition table allows
// it from the order's current state. Shipping stamps an estimated delivery
// date when none is set; delivery stamps delivered_at. The underlying write
// is a CAS on the status read here, so concurrent operator edits surface as
// ErrConcurrentUpdate instead of silently overwriting each other.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, newStatus orders.Status, trackingNumber, notes string) (*orders.Order, error) {
	if !newStatus.Valid() {
		return nil, &InvalidTransitionError{To: newStatus}
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if !orders.CanTransition(o.Status, newStatus) {
		return nil, &InvalidTransitionError{From: o.Status, To: newStatus}
	}

	now := s.nowFunc()
	upd := orders.StatusUpdate{
		TrackingNumber: trackingNumber,
		AdminNotes:     notes,
	}
	switch newStatus {
	case orders.StatusShipped:
		eta := now.Add(EstimatedDeliveryOffset)
		upd.EstimatedDelivery = &eta
	case orders.StatusDelivered:
		upd.DeliveredAt = &now
	}

	if err := s.orders.UpdateStatus(ctx, orderID, o.Status, newStatus, upd); err != nil {
		if errors.Is(err, orders.ErrStatusMismatch) {
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("update status for %s: %w", orderID, err)
	}

	updated, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("reload order %s: %w", orderID, err)
	}
	return updated, nil
}

// ManualVerifyPayment is the escape hatch for a settlement whose gateway
// callback never landed: the operator confirms payment directly. Idempotent
// the same way the automated path is.
func (s *Service) ManualVerifyPayment(ctx context.Context, orderID string) (*orders.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if o.Payment.Status == orders.PaymentCompleted {
		return o, nil
	}

	err = s.orders.CompletePayment(ctx, orderID, o.Payment.ExpectedAmount())
	if errors.Is(err, orders.ErrStatusMismatch) {
		// settled or cancelled underneath us; the reload below tells the
		// operator what actually happened
		updated, gerr := s.orders.Get(ctx, orderID)
		if gerr != nil {
			return nil, fmt.Errorf("reload order %s: %w", orderID, gerr)
		}
		if updated != nil && updated.Payment.Status == orders.PaymentCompleted {
			return updated, nil
		}
		return nil, ErrConcurrentUpdate
	}
	if err != nil {
		return nil, fmt.Errorf("complete payment for %s: %w", orderID, err)
	}

	if o.Payment.Reference != "" {
		if err := s.txns.UpdateStatus(ctx, o.Payment.Reference, transactions.StatusSuccessful, "manually verified"); err != nil {
			log.Printf("[admin] record manual settlement for %s: %v", o.Payment.Reference, err)
		}
	}
	if err := s.metrics.Count(ctx, platform.MetricPaymentsSettled, 1); err != nil {
		log.Printf("[admin] metric: %v", err)
	}

	updated, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("reload order %s: %w", orderID, err)
	}
	return updated, nil
}
