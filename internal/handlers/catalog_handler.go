package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/atelier-commerce/orderflow/internal/catalog"
)

const (
	cacheKeyProductList   = "products:list:active"
	cacheKeyProductPrefix = "products:sku:"
)

func registerCatalogRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.GET("/products", func(c *gin.Context) {
		var cached []catalog.Product
		if found, err := cfg.Cache.Unmarshal(cacheKeyProductList, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"products": cached})
			return
		}

		products, err := cfg.Products.List(c.Request.Context(), true)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "catalog_unavailable"})
			return
		}
		if err := cfg.Cache.Marshal(cacheKeyProductList, products); err != nil {
			log.Printf("[catalog] cache list: %v", err)
		}
		c.JSON(http.StatusOK, gin.H{"products": products})
	})

	r.GET("/products/:sku", func(c *gin.Context) {
		sku := c.Param("sku")

		var cached catalog.Product
		if found, err := cfg.Cache.Unmarshal(cacheKeyProductPrefix+sku, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}

		product, err := cfg.Products.Get(c.Request.Context(), sku)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "catalog_unavailable"})
			return
		}
		if product == nil || !product.IsActive {
			c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found"})
			return
		}
		if err := cfg.Cache.Marshal(cacheKeyProductPrefix+sku, product); err != nil {
			log.Printf("[catalog] cache product %s: %v", sku, err)
		}
		c.JSON(http.StatusOK, product)
	})
}
