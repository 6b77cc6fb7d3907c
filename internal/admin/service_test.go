package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atelier-commerce/orderflow/internal/orders"
	"github.com/atelier-commerce/orderflow/internal/platform/dynamofake"
	"github.com/atelier-commerce/orderflow/internal/transactions"
)

type adminFixture struct {
	fake *dynamofake.Fake
	svc  *Service
	now  time.Time
}

func newAdminFixture() *adminFixture {
	fake := dynamofake.New(map[string]string{
		"orders":       "order_id",
		"transactions": "reference",
	})
	svc := NewService(orders.NewStore(fake, "orders"), transactions.NewStore(fake, "transactions"), nil)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	svc.nowFunc = func() time.Time { return now }
	return &adminFixture{fake: fake, svc: svc, now: now}
}

func seedOrder(f *adminFixture, id string, status orders.Status) {
	f.fake.Seed("orders", orders.Order{
		OrderID:     id,
		OrderNumber: "LX-20260314085959-AB12CD34",
		CustomerID:  "cust-1",
		Payment: orders.Payment{
			Method:   orders.MethodGateway,
			Status:   orders.PaymentPending,
			Amount:   59000,
			Currency: "NGN",
		},
		Status: status,
		Total:  59000,
	})
}

func TestUpdateStatus_ValidTransition(t *testing.T) {
	f := newAdminFixture()
	seedOrder(f, "order-1", orders.StatusPending)

	got, err := f.svc.UpdateStatus(context.Background(), "order-1", orders.StatusConfirmed, "", "paid offline")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != orders.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", got.Status)
	}
	if got.AdminNotes != "paid offline" {
		t.Fatalf("notes = %q", got.AdminNotes)
	}
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	f := newAdminFixture()
	seedOrder(f, "order-1", orders.StatusPending)

	_, err := f.svc.UpdateStatus(context.Background(), "order-1", orders.StatusShipped, "", "")
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.From != orders.StatusPending || invalid.To != orders.StatusShipped {
		t.Fatalf("transition = %s -> %s", invalid.From, invalid.To)
	}

	// untouched
	var o orders.Order
	f.fake.Load("orders", "order-1", &o)
	if o.Status != orders.StatusPending {
		t.Fatalf("status changed to %s", o.Status)
	}
}

func TestUpdateStatus_UnknownStatusValue(t *testing.T) {
	f := newAdminFixture()
	seedOrder(f, "order-1", orders.StatusPending)

	_, err := f.svc.UpdateStatus(context.Background(), "order-1", orders.Status("misplaced"), "", "")
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError for unknown status, got %v", err)
	}
}

func TestUpdateStatus_ShippedStampsEstimatedDelivery(t *testing.T) {
	f := newAdminFixture()
	seedOrder(f, "order-1", orders.StatusProcessing)

	got, err := f.svc.UpdateStatus(context.Background(), "order-1", orders.StatusShipped, "TRK-442", "")
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	if got.TrackingNumber != "TRK-442" {
		t.Fatalf("tracking = %q", got.TrackingNumber)
	}
	wantETA := f.now.Add(EstimatedDeliveryOffset)
	if got.EstimatedDelivery == nil || !got.EstimatedDelivery.Equal(wantETA) {
		t.Fatalf("eta = %v, want %v", got.EstimatedDelivery, wantETA)
	}

	// delivery keeps the original ETA and stamps delivered_at
	got, err = f.svc.UpdateStatus(context.Background(), "order-1", orders.StatusDelivered, "", "")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got.DeliveredAt == nil || !got.DeliveredAt.Equal(f.now) {
		t.Fatalf("delivered_at = %v, want %v", got.DeliveredAt, f.now)
	}
	if got.EstimatedDelivery == nil || !got.EstimatedDelivery.Equal(wantETA) {
		t.Fatalf("eta rewritten on delivery: %v", got.EstimatedDelivery)
	}
}

func TestUpdateStatus_TerminalStatesRejectChanges(t *testing.T) {
	f := newAdminFixture()
	seedOrder(f, "order-1", orders.StatusDelivered)
	seedOrder(f, "order-2", orders.StatusCancelled)

	for _, id := range []string{"order-1", "order-2"} {
		_, err := f.svc.UpdateStatus(context.Background(), id, orders.StatusConfirmed, "", "")
		var invalid *InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s: expected InvalidTransitionError, got %v", id, err)
		}
	}
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	f := newAdminFixture()
	_, err := f.svc.UpdateStatus(context.Background(), "ghost", orders.StatusConfirmed, "", "")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestManualVerifyPayment(t *testing.T) {
	f := newAdminFixture()
	seedOrder(f, "order-1", orders.StatusPending)
	f.fake.Seed("transactions", transactions.Transaction{
		Reference: "ref-1",
		OrderID:   "order-1",
		Amount:    59000,
		Status:    transactions.StatusPending,
	})
	var o orders.Order
	f.fake.Load("orders", "order-1", &o)
	o.Payment.Reference = "ref-1"
	o.Payment.Status = orders.PaymentFailed // callback never landed, shopper paid
	f.fake.Seed("orders", o)

	ctx := context.Background()
	got, err := f.svc.ManualVerifyPayment(ctx, "order-1")
	if err != nil {
		t.Fatalf("manual verify: %v", err)
	}
	if got.Payment.Status != orders.PaymentCompleted || got.Status != orders.StatusConfirmed {
		t.Fatalf("order = %s/%s, want completed/confirmed", got.Payment.Status, got.Status)
	}
	if got.Payment.AmountPaid != 59000 {
		t.Fatalf("amount_paid = %d, want the expected amount", got.Payment.AmountPaid)
	}

	var txn transactions.Transaction
	f.fake.Load("transactions", "ref-1", &txn)
	if txn.Status != transactions.StatusSuccessful {
		t.Fatalf("transaction status = %s, want successful", txn.Status)
	}

	// idempotent: a repeat is a read, not a second settlement
	again, err := f.svc.ManualVerifyPayment(ctx, "order-1")
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if again.Payment.Status != orders.PaymentCompleted {
		t.Fatalf("repeat payment = %s", again.Payment.Status)
	}
}

func TestManualVerifyPayment_CancelledOrder(t *testing.T) {
	f := newAdminFixture()
	seedOrder(f, "order-1", orders.StatusCancelled)

	_, err := f.svc.ManualVerifyPayment(context.Background(), "order-1")
	if !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate for cancelled order, got %v", err)
	}

	var o orders.Order
	f.fake.Load("orders", "order-1", &o)
	if o.Payment.Status != orders.PaymentPending {
		t.Fatalf("payment = %s, want untouched", o.Payment.Status)
	}
}

func TestManualVerifyPayment_UnknownOrder(t *testing.T) {
	f := newAdminFixture()
	_, err := f.svc.ManualVerifyPayment(context.Background(), "ghost")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
