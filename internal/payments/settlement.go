package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/atelier-commerce/orderflow/internal/orders"
	"github.com/atelier-commerce/orderflow/internal/platform"
	"github.com/atelier-commerce/orderflow/internal/transactions"
)

// ErrOrderNotFound indicates the reference resolves to no known order.
var ErrOrderNotFound = errors.New("order not found for reference")

// ErrPaymentDeclined indicates the gateway reported the charge as failed.
// The order stays pending so payment can be retried or abandoned.
var ErrPaymentDeclined = errors.New("payment declined by gateway")

// ErrNotSettleable indicates the order left the settleable state while the
// verification was in flight (e.g. an operator cancelled it).
var ErrNotSettleable = errors.New("order is not in a settleable state")

// AmountMismatchError is a reconciliation anomaly: the gateway confirmed a
// charge whose amount differs from what the order expects. Never auto-healed;
// the order stays unconfirmed until an operator resolves it.
type AmountMismatchError struct {
	Reference string
	Expected  int64
	Got       int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment amount mismatch for %s: expected %d, gateway reports %d",
		e.Reference, e.Expected, e.Got)
}

// Settlement reconciles gateway results with pending orders. Both the
// post-redirect callback and the asynchronous webhook converge on
// VerifyPayment; the CAS in orders.CompletePayment is what keeps the two
// paths from double-applying effects.
type Settlement struct {
	gateway     Gateway
	orders      *orders.Store
	txns        *transactions.Store
	metrics     *platform.Metrics
	currency    string
	callbackURL string

	maxAttempts int
	backoffBase time.Duration
	sleep       func(time.Duration)
	newRef      func() string
}

// NewSettlement wires a settlement service.
func NewSettlement(gw Gateway, orderStore *orders.Store, txnStore *transactions.Store, metrics *platform.Metrics, currency, callbackURL string) *Settlement {
	return &Settlement{
		gateway:     gw,
		orders:      orderStore,
		txns:        txnStore,
		metrics:     metrics,
		currency:    currency,
		callbackURL: callbackURL,
		maxAttempts: 3,
		backoffBase: 500 * time.Millisecond,
		sleep:       time.Sleep,
		newRef:      uuid.NewString,
	}
}

// InitializePayment opens a hosted-checkout session for the order's expected
// amount (full total, or the upfront portion for cash-on-delivery), records
// the transaction, and stores the reference on the order. No order state
// beyond the reference changes here; failure leaves the order pending and
// initialization can simply be retried with a fresh reference.
func (s *Settlement) InitializePayment(ctx context.Context, o *orders.Order) (*InitializeResponse, error) {
	reference := s.newRef()
	amount := o.Payment.ExpectedAmount()

	resp, err := s.gateway.Initialize(ctx, InitializeRequest{
		Amount:      amount,
		Currency:    s.currency,
		Email:       o.ShippingAddress.Email,
		Reference:   reference,
		CallbackURL: s.callbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize payment for order %s: %w", o.OrderID, err)
	}

	if err := s.txns.Create(ctx, transactions.Transaction{
		Reference:        reference,
		OrderID:          o.OrderID,
		Amount:           amount,
		Currency:         s.currency,
		Email:            o.ShippingAddress.Email,
		Status:           transactions.StatusPending,
		AuthorizationURL: resp.AuthorizationURL,
	}); err != nil {
		return nil, fmt.Errorf("record transaction %s: %w", reference, err)
	}
	if err := s.orders.SetPaymentReference(ctx, o.OrderID, reference); err != nil {
		return nil, fmt.Errorf("store reference on order %s: %w", o.OrderID, err)
	}

	return resp, nil
}

// VerifyPayment reconciles a gateway reference with its order.
//
// Idempotent: an already-completed payment returns the current order with no
// further side effects. Transport failures against the gateway are retried
// with exponential backoff; an amount mismatch is a data problem and is
// never retried or auto-accepted.
func (s *Settlement) VerifyPayment(ctx context.Context, reference string) (*orders.Order, error) {
	o, err := s.resolveOrder(ctx, reference)
	if err != nil {
		return nil, err
	}

	if o.Payment.Status == orders.PaymentCompleted {
		// already settled; both callback and webhook land here on replays
		return o, nil
	}

	result, err := s.verifyWithRetry(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", reference, err)
	}

	if result.Status != VerifySuccess {
		if err := s.orders.FailPayment(ctx, o.OrderID); err != nil && !errors.Is(err, orders.ErrStatusMismatch) {
			return nil, fmt.Errorf("mark payment failed for order %s: %w", o.OrderID, err)
		}
		if err := s.txns.UpdateStatus(ctx, reference, transactions.StatusFailed, result.Message); err != nil {
			log.Printf("[settlement] record failed transaction %s: %v", reference, err)
		}
		if err := s.metrics.Count(ctx, platform.MetricPaymentsFailed, 1); err != nil {
			log.Printf("[settlement] metric: %v", err)
		}
		updated, gerr := s.orders.Get(ctx, o.OrderID)
		if gerr != nil || updated == nil {
			updated = o
		}
		return updated, ErrPaymentDeclined
	}

	expected := o.Payment.ExpectedAmount()
	if result.AmountPaid != expected {
		log.Printf("[settlement] amount mismatch ref=%s order=%s expected=%d got=%d",
			reference, o.OrderID, expected, result.AmountPaid)
		if err := s.metrics.Count(ctx, platform.MetricPaymentAmountMismatch, 1); err != nil {
			log.Printf("[settlement] metric: %v", err)
		}
		return nil, &AmountMismatchError{Reference: reference, Expected: expected, Got: result.AmountPaid}
	}

	err = s.orders.CompletePayment(ctx, o.OrderID, result.AmountPaid)
	if errors.Is(err, orders.ErrStatusMismatch) {
		// lost the race to a concurrent settlement, or the order was
		// cancelled underneath us; re-read and decide
		updated, gerr := s.orders.Get(ctx, o.OrderID)
		if gerr != nil {
			return nil, fmt.Errorf("reload order %s: %w", o.OrderID, gerr)
		}
		if updated != nil && updated.Payment.Status == orders.PaymentCompleted {
			return updated, nil
		}
		return nil, ErrNotSettleable
	}
	if err != nil {
		return nil, fmt.Errorf("complete payment for order %s: %w", o.OrderID, err)
	}

	if err := s.txns.UpdateStatus(ctx, reference, transactions.StatusSuccessful, result.Message); err != nil {
		log.Printf("[settlement] record successful transaction %s: %v", reference, err)
	}
	if err := s.metrics.Count(ctx, platform.MetricPaymentsSettled, 1); err != nil {
		log.Printf("[settlement] metric: %v", err)
	}

	updated, err := s.orders.Get(ctx, o.OrderID)
	if err != nil {
		return nil, fmt.Errorf("reload order %s: %w", o.OrderID, err)
	}
	return updated, nil
}

// resolveOrder looks up the order behind a reference: first as a stored
// gateway reference, then as an order number.
func (s *Settlement) resolveOrder(ctx context.Context, reference string) (*orders.Order, error) {
	txn, err := s.txns.Get(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("lookup transaction %s: %w", reference, err)
	}
	if txn != nil {
		o, err := s.orders.Get(ctx, txn.OrderID)
		if err != nil {
			return nil, fmt.Errorf("lookup order %s: %w", txn.OrderID, err)
		}
		if o == nil {
			return nil, ErrOrderNotFound
		}
		return o, nil
	}

	o, err := s.orders.GetByNumber(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("lookup order by number %s: %w", reference, err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// verifyWithRetry calls the gateway, retrying only transport failures.
func (s *Settlement) verifyWithRetry(ctx context.Context, reference string) (*VerifyResponse, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			s.sleep(s.backoffBase << (attempt - 1))
		}
		result, err := s.gateway.Verify(ctx, reference)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrGatewayUnavailable) {
			return nil, err
		}
		lastErr = err
		log.Printf("[settlement] verify attempt %d for %s failed: %v", attempt+1, reference, err)
	}
	return nil, lastErr
}
