package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/atelier-commerce/orderflow/internal/orders"
	"github.com/atelier-commerce/orderflow/internal/platform/dynamofake"
)

type fakeSender struct {
	sent []string // recipient per send
	err  error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func sqsEvent(t *testing.T, msg NotificationMessage) events.SQSEvent {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	return events.SQSEvent{Records: []events.SQSMessage{{Body: string(body)}}}
}

func seedOrder(fake *dynamofake.Fake, id string, confirmed bool) {
	fake.Seed("orders", orders.Order{
		OrderID:          id,
		OrderNumber:      "LX-20260314092653-AB12CD34",
		CustomerID:       "cust-1",
		Status:           orders.StatusPending,
		Total:            45000,
		ConfirmationSent: confirmed,
	})
}

func TestProcessor_SendsConfirmationOnce(t *testing.T) {
	fake := dynamofake.New(map[string]string{"orders": "order_id"})
	seedOrder(fake, "order-1", false)
	sender := &fakeSender{}
	p := NewProcessor(orders.NewStore(fake, "orders"), sender, nil)

	msg := NotificationMessage{
		OrderID:     "order-1",
		OrderNumber: "LX-20260314092653-AB12CD34",
		Email:       "ada@example.com",
		Name:        "Ada Obi",
		Total:       45000,
		Currency:    "NGN",
	}
	if err := p.Handle(context.Background(), sqsEvent(t, msg)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(sender.sent) != 1 || sender.sent[0] != "ada@example.com" {
		t.Fatalf("sent = %v, want one mail to ada@example.com", sender.sent)
	}
	var o orders.Order
	fake.Load("orders", "order-1", &o)
	if !o.ConfirmationSent {
		t.Fatal("confirmation_sent flag not set")
	}
}

func TestProcessor_RedeliveryIsNoOp(t *testing.T) {
	fake := dynamofake.New(map[string]string{"orders": "order_id"})
	seedOrder(fake, "order-1", true)
	sender := &fakeSender{}
	p := NewProcessor(orders.NewStore(fake, "orders"), sender, nil)

	msg := NotificationMessage{OrderID: "order-1", Email: "ada@example.com"}
	if err := p.Handle(context.Background(), sqsEvent(t, msg)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("redelivery sent %d mails, want 0", len(sender.sent))
	}
}

func TestProcessor_LosingFlagRaceIsSwallowed(t *testing.T) {
	fake := dynamofake.New(map[string]string{"orders": "order_id"})
	seedOrder(fake, "order-1", false)
	sender := &fakeSender{}
	p := NewProcessor(orders.NewStore(fake, "orders"), sender, nil)

	// a concurrent consumer set the flag between our read and our write
	fake.PreUpdate = func(in *dynamodb.UpdateItemInput) error {
		return &dbtypes.ConditionalCheckFailedException{}
	}

	msg := NotificationMessage{OrderID: "order-1", Email: "ada@example.com"}
	if err := p.Handle(context.Background(), sqsEvent(t, msg)); err != nil {
		t.Fatalf("losing the flag race must not requeue: %v", err)
	}
}

func TestProcessor_UnknownOrderGoesBack(t *testing.T) {
	fake := dynamofake.New(map[string]string{"orders": "order_id"})
	p := NewProcessor(orders.NewStore(fake, "orders"), &fakeSender{}, nil)

	msg := NotificationMessage{OrderID: "ghost", Email: "ada@example.com"}
	if err := p.Handle(context.Background(), sqsEvent(t, msg)); err == nil {
		t.Fatal("expected error for unknown order so the message retries")
	}
}

func TestProcessor_MalformedBody(t *testing.T) {
	fake := dynamofake.New(map[string]string{"orders": "order_id"})
	p := NewProcessor(orders.NewStore(fake, "orders"), &fakeSender{}, nil)

	ev := events.SQSEvent{Records: []events.SQSMessage{{Body: "{not json"}}}
	if err := p.Handle(context.Background(), ev); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
