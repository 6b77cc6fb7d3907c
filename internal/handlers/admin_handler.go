package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/atelier-commerce/orderflow/internal/admin"
	"github.com/atelier-commerce/orderflow/internal/catalog"
	"github.com/atelier-commerce/orderflow/internal/orders"
	"github.com/atelier-commerce/orderflow/internal/validation"
)

// registerAdminRoutes mounts the back-office surface. Operator
// authentication sits in front of this service and is out of scope here.
func registerAdminRoutes(r *gin.Engine, cfg HandlerConfig, v *validatorv10.Validate) {
	grp := r.Group("/admin")

	grp.PUT("/orders/:id", func(c *gin.Context) {
		var req validation.UpdateOrderStatusRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		order, err := cfg.Admin.UpdateStatus(c.Request.Context(), c.Param("id"),
			orders.Status(req.Status), req.TrackingNumber, req.Notes)
		if err != nil {
			writeAdminError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"order_number":       order.OrderNumber,
			"status":             order.Status,
			"tracking_number":    order.TrackingNumber,
			"estimated_delivery": order.EstimatedDelivery,
			"delivered_at":       order.DeliveredAt,
		})
	})

	grp.POST("/orders/verify-payment", func(c *gin.Context) {
		var req validation.VerifyPaymentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		order, err := cfg.Admin.ManualVerifyPayment(c.Request.Context(), req.OrderID)
		if err != nil {
			writeAdminError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"order_number":   order.OrderNumber,
			"status":         order.Status,
			"payment_status": order.Payment.Status,
		})
	})

	grp.POST("/products", func(c *gin.Context) {
		var req validation.CreateProductRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		product := catalog.Product{
			SKU:           req.SKU,
			Name:          req.Name,
			Designer:      req.Designer,
			Description:   req.Description,
			Category:      req.Category,
			Subcategory:   req.Subcategory,
			Gender:        req.Gender,
			Price:         req.Price,
			OriginalPrice: req.OriginalPrice,
			Materials:     req.Materials,
			Tags:          req.Tags,
			IsActive:      req.IsActive,
			IsFeatured:    req.IsFeatured,
			IsOnSale:      req.IsOnSale,
			IsPreowned:    req.IsPreowned,
			Condition:     req.Condition,
			Images:        req.Images,
			Stock:         req.Stock,
		}
		if err := cfg.Products.Create(c.Request.Context(), product); err != nil {
			if errors.Is(err, catalog.ErrSKUExists) {
				c.JSON(http.StatusConflict, gin.H{"error": "sku_exists", "sku": req.SKU})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "product_create_failed"})
			return
		}
		invalidateProduct(cfg, req.SKU)
		c.JSON(http.StatusCreated, gin.H{"sku": req.SKU})
	})

	grp.PUT("/products/:sku/stock", func(c *gin.Context) {
		var req validation.AdjustStockRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		sku := c.Param("sku")
		err := cfg.Products.AdjustStock(c.Request.Context(), sku, req.Size, req.Color, req.Delta)
		switch {
		case errors.Is(err, catalog.ErrInsufficientStock):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient_stock", "sku": sku})
		case errors.Is(err, catalog.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found", "sku": sku})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "stock_adjust_failed"})
		default:
			invalidateProduct(cfg, sku)
			c.JSON(http.StatusOK, gin.H{"sku": sku, "size": req.Size, "color": req.Color})
		}
	})
}

func invalidateProduct(cfg HandlerConfig, sku string) {
	cfg.Cache.Delete(cacheKeyProductPrefix + sku)
	cfg.Cache.Delete(cacheKeyProductList)
}

func writeAdminError(c *gin.Context, err error) {
	var invalid *admin.InvalidTransitionError
	switch {
	case errors.Is(err, admin.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_transition", "detail": invalid.Error()})
	case errors.Is(err, admin.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent_update"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "admin_update_failed", "detail": err.Error()})
	}
}
