package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/atelier-commerce/orderflow/internal/admin"
	"github.com/atelier-commerce/orderflow/internal/cache"
	"github.com/atelier-commerce/orderflow/internal/catalog"
	"github.com/atelier-commerce/orderflow/internal/checkout"
	"github.com/atelier-commerce/orderflow/internal/idempotency"
	"github.com/atelier-commerce/orderflow/internal/orders"
	"github.com/atelier-commerce/orderflow/internal/payments"
	"github.com/atelier-commerce/orderflow/internal/validation"
)

// HandlerConfig groups the constructed services the route handlers need.
// Everything is built in main and injected; handlers own no state.
type HandlerConfig struct {
	Checkout    *checkout.Service
	Settlement  *payments.Settlement
	Admin       *admin.Service
	Products    *catalog.Store
	Orders      *orders.Store
	Idempotency *idempotency.Store
	Cache       *cache.Cache

	// WebhookSecret signs gateway webhook bodies (HMAC-SHA512).
	WebhookSecret string
}

// RegisterRoutes mounts every route group on the engine.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	registerCatalogRoutes(r, cfg)
	registerCheckoutRoutes(r, cfg, v)
	registerPaymentRoutes(r, cfg)
	registerAdminRoutes(r, cfg, v)
}
