package checkout

import (
	"math"

	"github.com/atelier-commerce/orderflow/internal/orders"
)

// PricingConfig carries the storefront pricing knobs. Amounts are whole
// currency units.
type PricingConfig struct {
	FreeShippingThreshold int64
	ShippingFlatFee       int64
	TaxRate               float64
	CODUpfrontPercent     float64
}

// Quote is the priced breakdown of a cart. Total always equals
// Subtotal + ShippingCost + Tax; tax is rounded to the nearest currency unit
// before summing so the parts can never drift from the total.
type Quote struct {
	Subtotal      int64
	ShippingCost  int64
	Tax           int64
	Total         int64
	UpfrontAmount int64 // cash-on-delivery only; 0 otherwise
}

// PriceOrder computes the quote for snapshot line items.
func PriceOrder(items []orders.LineItem, cfg PricingConfig, cashOnDelivery bool) Quote {
	var subtotal int64
	for _, it := range items {
		subtotal += it.UnitPrice * int64(it.Quantity)
	}

	shipping := cfg.ShippingFlatFee
	if subtotal > cfg.FreeShippingThreshold {
		shipping = 0
	}

	tax := int64(math.Round(float64(subtotal) * cfg.TaxRate))
	total := subtotal + shipping + tax

	q := Quote{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        total,
	}
	if cashOnDelivery {
		q.UpfrontAmount = int64(math.Round(float64(total) * cfg.CODUpfrontPercent))
	}
	return q
}
