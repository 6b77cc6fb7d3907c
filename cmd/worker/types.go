package main

import (
	"context"
	"log"
)

// NotificationMessage is the payload published by the API after an order
// commits and consumed here.
type NotificationMessage struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Total       int64  `json:"total"`
	Currency    string `json:"currency"`
}

// Sender delivers an order confirmation. Mail transport lives behind this
// interface so the processor can be tested without a mail server.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes confirmations to the log. Stands in until a real mail
// transport is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, body string) error {
	log.Printf("[mail] to=%s subject=%q\n%s", to, subject, body)
	return nil
}
