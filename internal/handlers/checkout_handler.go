package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/atelier-commerce/orderflow/internal/catalog"
	"github.com/atelier-commerce/orderflow/internal/checkout"
	"github.com/atelier-commerce/orderflow/internal/idempotency"
	"github.com/atelier-commerce/orderflow/internal/orders"
	"github.com/atelier-commerce/orderflow/internal/validation"
)

func registerCheckoutRoutes(r *gin.Engine, cfg HandlerConfig, v *validatorv10.Validate) {
	r.POST("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		idempKey := c.GetHeader("Idempotency-Key")
		if idempKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_idempotency_key"})
			return
		}

		input := checkout.PlaceOrderInput{
			CustomerID:      req.CustomerID,
			ShippingAddress: toAddress(req.ShippingAddress),
			PaymentMethod:   req.PaymentMethod,
			Notes:           req.Notes,
			IdempotencyKey:  idempKey,
			CorrelationID:   c.GetHeader("X-Request-Id"),
		}
		if req.BillingAddress != nil {
			billing := toAddress(*req.BillingAddress)
			input.BillingAddress = &billing
		}
		for _, it := range req.Items {
			input.Items = append(input.Items, checkout.ItemInput{
				SKU:      it.SKU,
				Size:     it.Size,
				Color:    it.Color,
				Quantity: it.Quantity,
			})
		}

		order, err := cfg.Checkout.PlaceOrder(ctx, input)
		if err != nil {
			writePlaceOrderError(c, cfg, idempKey, err)
			return
		}

		resp := orderResponse(order)

		// every order pays something now: the full total on gateway orders,
		// the upfront portion on cash-on-delivery
		if init, err := cfg.Settlement.InitializePayment(ctx, order); err != nil {
			// the order is committed; a replay of the same key retries this
			resp["payment_error"] = "initialization_failed"
			_ = cfg.Idempotency.MarkFailed(ctx, idempKey, "payment initialization failed")
		} else {
			resp["authorization_url"] = init.AuthorizationURL
			resp["payment_reference"] = init.Reference
			if body, err := json.Marshal(resp); err == nil {
				_ = cfg.Idempotency.MarkDone(ctx, idempKey, string(body), http.StatusCreated)
			}
		}

		c.Header("Location", fmt.Sprintf("/orders/%s", order.OrderID))
		c.JSON(http.StatusCreated, resp)
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		order, err := cfg.Orders.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order_lookup_failed"})
			return
		}
		if order == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		c.JSON(http.StatusOK, order)
	})

	r.GET("/customers/:id/orders", func(c *gin.Context) {
		list, err := cfg.Orders.ListByCustomer(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order_lookup_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
	})
}

// orderResponse is the placement response body, also rebuilt on replays.
func orderResponse(o *orders.Order) gin.H {
	resp := gin.H{
		"order_id":       o.OrderID,
		"order_number":   o.OrderNumber,
		"total":          o.Total,
		"status":         o.Status,
		"payment_method": o.Payment.Method,
	}
	if o.Payment.Method == orders.MethodCashOnDelivery {
		resp["upfront_amount"] = o.Payment.UpfrontAmount
		resp["balance_due"] = o.Total - o.Payment.UpfrontAmount
	}
	return resp
}

// writePlaceOrderError maps placement failures to responses. A duplicate
// idempotency key replays the stored outcome instead of re-running anything.
func writePlaceOrderError(c *gin.Context, cfg HandlerConfig, idempKey string, err error) {
	ctx := c.Request.Context()

	var notFound *checkout.ProductNotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found", "sku": notFound.SKU})
		return
	}

	var stock *catalog.InsufficientStockError
	if errors.As(err, &stock) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "insufficient_stock",
			"product":   stock.Name,
			"sku":       stock.SKU,
			"size":      stock.Size,
			"color":     stock.Color,
			"requested": stock.Requested,
			"available": stock.Available,
		})
		return
	}

	if errors.Is(err, orders.ErrDuplicateRequest) {
		rec, getErr := cfg.Idempotency.Get(ctx, idempKey)
		if getErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": getErr.Error()})
			return
		}
		if rec == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "transaction_failed_no_idempotency_record"})
			return
		}
		switch rec.Status {
		case idempotency.StatusDone:
			if rec.ResponseBody != "" {
				c.Data(rec.ResponseStatus, "application/json", []byte(rec.ResponseBody))
				return
			}
			c.JSON(http.StatusOK, gin.H{"order_id": rec.OrderID})
			return
		case idempotency.StatusInProgress:
			c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress", "order_id": rec.OrderID})
			return
		case idempotency.StatusFailed:
			// the order committed but a post-commit step (payment
			// initialization) did not; retry it on this replay
			replayFailedPlacement(c, cfg, idempKey, rec.OrderID)
			return
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_idempotency_status"})
			return
		}
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "order_creation_failed", "detail": err.Error()})
}

// replayFailedPlacement handles a key whose order committed but whose payment
// initialization failed: it re-initializes, and on success upgrades the
// record to DONE so later replays are pure reads.
func replayFailedPlacement(c *gin.Context, cfg HandlerConfig, idempKey, orderID string) {
	ctx := c.Request.Context()

	order, err := cfg.Orders.Get(ctx, orderID)
	if err != nil || order == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "previous_attempt_failed", "order_id": orderID})
		return
	}

	resp := orderResponse(order)
	if init, ierr := cfg.Settlement.InitializePayment(ctx, order); ierr != nil {
		resp["payment_error"] = "initialization_failed"
	} else {
		resp["authorization_url"] = init.AuthorizationURL
		resp["payment_reference"] = init.Reference
		if body, merr := json.Marshal(resp); merr == nil {
			_ = cfg.Idempotency.MarkDone(ctx, idempKey, string(body), http.StatusCreated)
		}
	}

	c.Header("Location", fmt.Sprintf("/orders/%s", order.OrderID))
	c.JSON(http.StatusCreated, resp)
}

func toAddress(a validation.Address) orders.Address {
	return orders.Address{
		Name:       a.Name,
		Phone:      a.Phone,
		Email:      a.Email,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}
