package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/atelier-commerce/orderflow/internal/platform/dynamofake"
)

func newIdempFake() *dynamofake.Fake {
	return dynamofake.New(map[string]string{"idempotency": "idempotency_key"})
}

func TestGet_Missing(t *testing.T) {
	store := NewStore(newIdempFake(), "idempotency", 48*time.Hour)
	rec, err := store.Get(context.Background(), "never-seen")
	if err != nil || rec != nil {
		t.Fatalf("missing key should be (nil, nil), got (%+v, %v)", rec, err)
	}
}

func TestMarkDone_StoresReplayableResponse(t *testing.T) {
	fake := newIdempFake()
	now := time.Now()
	fake.Seed("idempotency", NewRecord("key-1", "order-1", now, 48*time.Hour))
	store := NewStore(fake, "idempotency", 48*time.Hour)
	ctx := context.Background()

	body := `{"order_id":"order-1","order_number":"LX-20260314092653-AB12CD34"}`
	if err := store.MarkDone(ctx, "key-1", body, 201); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	rec, err := store.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != StatusDone {
		t.Fatalf("status = %s, want DONE", rec.Status)
	}
	if rec.ResponseBody != body || rec.ResponseStatus != 201 {
		t.Fatalf("stored response = %q/%d", rec.ResponseBody, rec.ResponseStatus)
	}
	if rec.OrderID != "order-1" {
		t.Fatalf("order id = %s", rec.OrderID)
	}
}

func TestMarkFailed(t *testing.T) {
	fake := newIdempFake()
	fake.Seed("idempotency", NewRecord("key-2", "order-2", time.Now(), 48*time.Hour))
	store := NewStore(fake, "idempotency", 48*time.Hour)
	ctx := context.Background()

	if err := store.MarkFailed(ctx, "key-2", "payment initialization failed"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	rec, _ := store.Get(ctx, "key-2")
	if rec.Status != StatusFailed {
		t.Fatalf("status = %s, want FAILED", rec.Status)
	}
	if rec.Note != "payment initialization failed" {
		t.Fatalf("note = %q", rec.Note)
	}
}

func TestNewRecord(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rec := NewRecord("key-3", "order-3", now, 48*time.Hour)

	if rec.Status != StatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", rec.Status)
	}
	if rec.ExpiresAt != now.Add(48*time.Hour).Unix() {
		t.Fatalf("expires_at = %d", rec.ExpiresAt)
	}
}
