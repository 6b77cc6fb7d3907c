package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/atelier-commerce/orderflow/internal/config"
	"github.com/atelier-commerce/orderflow/internal/orders"
	"github.com/atelier-commerce/orderflow/internal/platform"
)

func main() {
	clients, err := platform.NewClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	cfg := config.Load()
	orderStore := orders.NewStore(clients.DynamoDB, cfg.OrdersTable)
	metrics := platform.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)

	p := NewProcessor(orderStore, LogSender{}, metrics)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"order_id":"local-order-1","order_number":"LX-LOCAL","email":"dev@example.com","name":"Dev"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{Body: testBody},
			},
		}
		if err := p.Handle(context.Background(), event); err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		return
	}

	lambda.Start(p.Handle)
}
