package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"

	"github.com/atelier-commerce/orderflow/internal/orders"
	"github.com/atelier-commerce/orderflow/internal/platform"
)

// Processor consumes order confirmation messages and sends exactly one
// confirmation per order. SQS delivers at-least-once; the confirmation_sent
// flag on the order makes redeliveries no-ops.
type Processor struct {
	orderStore *orders.Store
	sender     Sender
	metrics    *platform.Metrics
}

// NewProcessor wires a notification processor.
func NewProcessor(orderStore *orders.Store, sender Sender, metrics *platform.Metrics) *Processor {
	return &Processor{
		orderStore: orderStore,
		sender:     sender,
		metrics:    metrics,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times,
			// the message goes to the DLQ.
			log.Printf("[worker] error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg NotificationMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	log.Printf("[worker] received order=%s number=%s", msg.OrderID, msg.OrderNumber)

	order, err := p.orderStore.Get(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("fetch order %s: %w", msg.OrderID, err)
	}
	if order == nil {
		// publish happened post-commit, so the order must exist; DLQ if not
		return fmt.Errorf("order not found: %s", msg.OrderID)
	}
	if order.ConfirmationSent {
		log.Printf("[worker] confirmation already sent for order=%s", msg.OrderID)
		return nil
	}

	subject := fmt.Sprintf("Order %s confirmed", order.OrderNumber)
	body := fmt.Sprintf("Hi %s,\n\nYour order %s for %d %s has been received and is being prepared.\n",
		msg.Name, order.OrderNumber, order.Total, msg.Currency)
	if err := p.sender.Send(ctx, msg.Email, subject, body); err != nil {
		return fmt.Errorf("send confirmation for %s: %w", msg.OrderID, err)
	}

	err = p.orderStore.MarkConfirmationSent(ctx, msg.OrderID)
	if errors.Is(err, orders.ErrAlreadyNotified) {
		// a concurrent delivery won the flag; the shopper may get a second
		// email but the order state stays correct
		log.Printf("[worker] duplicate confirmation for order=%s", msg.OrderID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark confirmation sent for %s: %w", msg.OrderID, err)
	}

	if err := p.metrics.Count(ctx, platform.MetricNotificationsSent, 1); err != nil {
		log.Printf("[worker] metric: %v", err)
	}
	log.Printf("[worker] confirmation sent order=%s", msg.OrderID)
	return nil
}
