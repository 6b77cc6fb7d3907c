package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/atelier-commerce/orderflow/internal/admin"
	"github.com/atelier-commerce/orderflow/internal/cache"
	"github.com/atelier-commerce/orderflow/internal/catalog"
	"github.com/atelier-commerce/orderflow/internal/checkout"
	"github.com/atelier-commerce/orderflow/internal/config"
	"github.com/atelier-commerce/orderflow/internal/handlers"
	"github.com/atelier-commerce/orderflow/internal/idempotency"
	"github.com/atelier-commerce/orderflow/internal/orders"
	"github.com/atelier-commerce/orderflow/internal/payments"
	"github.com/atelier-commerce/orderflow/internal/platform"
	"github.com/atelier-commerce/orderflow/internal/transactions"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterRoutes(r, cfg)

	return r
}

func main() {
	clients, err := platform.NewClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	cfg := config.Load()

	productStore := catalog.NewStore(clients.DynamoDB, cfg.ProductsTable)
	orderStore := orders.NewStore(clients.DynamoDB, cfg.OrdersTable)
	txnStore := transactions.NewStore(clients.DynamoDB, cfg.TransactionsTable)
	idempStore := idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL)
	publisher := platform.NewPublisher(clients.SQS, cfg.OrdersQueueURL)
	metrics := platform.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	gateway := payments.NewPaystack(cfg.PaystackBaseURL, cfg.PaystackSecretKey)

	pricing := checkout.PricingConfig{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFlatFee:       cfg.ShippingFlatFee,
		TaxRate:               cfg.TaxRate,
		CODUpfrontPercent:     cfg.CODUpfrontPercent,
	}

	handlerCfg := handlers.HandlerConfig{
		Checkout:      checkout.NewService(productStore, orderStore, cfg.IdempotencyTable, cfg.IdempotencyTTL, publisher, metrics, pricing, cfg.Currency),
		Settlement:    payments.NewSettlement(gateway, orderStore, txnStore, metrics, cfg.Currency, cfg.CallbackURL),
		Admin:         admin.NewService(orderStore, txnStore, metrics),
		Products:      productStore,
		Orders:        orderStore,
		Idempotency:   idempStore,
		Cache:         cache.New(cfg.CacheTTL),
		WebhookSecret: cfg.PaystackSecretKey,
	}

	r := setupRouter(handlerCfg)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":" + cfg.Port
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
