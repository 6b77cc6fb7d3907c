package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/atelier-commerce/orderflow/internal/payments"
)

// webhookEvent is the gateway's webhook envelope; only the reference matters
// here, verification always goes back to the gateway itself.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

func registerPaymentRoutes(r *gin.Engine, cfg HandlerConfig) {
	// post-redirect check: the shopper lands here after hosted checkout
	r.GET("/payments/callback", func(c *gin.Context) {
		reference := c.Query("reference")
		if reference == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_reference"})
			return
		}
		order, err := cfg.Settlement.VerifyPayment(c.Request.Context(), reference)
		if err != nil {
			writeSettlementError(c, order, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"order_number":   order.OrderNumber,
			"status":         order.Status,
			"payment_status": order.Payment.Status,
		})
	})

	// asynchronous webhook: same state machine as the callback, so replays
	// and races between the two paths settle exactly once
	r.POST("/payments/webhook", func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_body"})
			return
		}
		signature := c.GetHeader("X-Paystack-Signature")
		if !payments.ValidSignature(cfg.WebhookSecret, body, signature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
			return
		}

		var event webhookEvent
		if err := json.Unmarshal(body, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
			return
		}
		if event.Event != "charge.success" && event.Event != "charge.failed" {
			// acknowledged but irrelevant; never make the gateway retry these
			c.Status(http.StatusOK)
			return
		}

		_, err = cfg.Settlement.VerifyPayment(c.Request.Context(), event.Data.Reference)
		switch {
		case err == nil, errors.Is(err, payments.ErrPaymentDeclined):
			c.Status(http.StatusOK)
		case errors.Is(err, payments.ErrGatewayUnavailable):
			// transient; non-2xx makes the gateway redeliver
			c.Status(http.StatusInternalServerError)
		default:
			// data problems (unknown reference, amount mismatch) won't heal
			// on retry; log and acknowledge
			log.Printf("[webhook] settlement anomaly for %s: %v", event.Data.Reference, err)
			c.Status(http.StatusOK)
		}
	})
}

func writeSettlementError(c *gin.Context, order interface{}, err error) {
	var mismatch *payments.AmountMismatchError
	switch {
	case errors.Is(err, payments.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
	case errors.As(err, &mismatch):
		c.JSON(http.StatusConflict, gin.H{
			"error":    "payment_amount_mismatch",
			"expected": mismatch.Expected,
			"received": mismatch.Got,
		})
	case errors.Is(err, payments.ErrPaymentDeclined):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment_declined", "order": order})
	case errors.Is(err, payments.ErrNotSettleable):
		c.JSON(http.StatusConflict, gin.H{"error": "order_not_settleable"})
	case errors.Is(err, payments.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "gateway_unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification_failed", "detail": err.Error()})
	}
}
