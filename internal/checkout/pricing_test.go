package checkout

import (
	"testing"

	"github.com/atelier-commerce/orderflow/internal/orders"
)

var testPricing = PricingConfig{
	FreeShippingThreshold: 50000,
	ShippingFlatFee:       2000,
	TaxRate:               0.075,
	CODUpfrontPercent:     0.5,
}

func TestPriceOrder_BelowThresholdChargesShipping(t *testing.T) {
	items := []orders.LineItem{
		{SKU: "BLZ-001", UnitPrice: 20000, Quantity: 2}, // 40000
	}
	q := PriceOrder(items, testPricing, false)

	if q.Subtotal != 40000 {
		t.Fatalf("subtotal = %d, want 40000", q.Subtotal)
	}
	if q.ShippingCost != 2000 {
		t.Fatalf("shipping = %d, want 2000", q.ShippingCost)
	}
	if q.Tax != 3000 { // 40000 * 0.075
		t.Fatalf("tax = %d, want 3000", q.Tax)
	}
	if q.Total != 45000 {
		t.Fatalf("total = %d, want 45000", q.Total)
	}
	if q.UpfrontAmount != 0 {
		t.Fatalf("upfront = %d, want 0 for gateway payment", q.UpfrontAmount)
	}
}

func TestPriceOrder_AboveThresholdShipsFree(t *testing.T) {
	items := []orders.LineItem{
		{SKU: "GWN-014", UnitPrice: 60000, Quantity: 1},
	}
	q := PriceOrder(items, testPricing, false)

	if q.ShippingCost != 0 {
		t.Fatalf("shipping = %d, want 0 above threshold", q.ShippingCost)
	}
	if q.Total != 60000+4500 {
		t.Fatalf("total = %d, want 64500", q.Total)
	}
}

func TestPriceOrder_ExactlyAtThresholdStillPays(t *testing.T) {
	// free shipping requires strictly exceeding the threshold
	items := []orders.LineItem{
		{SKU: "BAG-220", UnitPrice: 50000, Quantity: 1},
	}
	q := PriceOrder(items, testPricing, false)

	if q.ShippingCost != 2000 {
		t.Fatalf("shipping = %d, want 2000 at exactly the threshold", q.ShippingCost)
	}
}

func TestPriceOrder_TaxRoundsToNearestUnit(t *testing.T) {
	// 1234 * 0.075 = 92.55 -> 93
	items := []orders.LineItem{
		{SKU: "SCF-003", UnitPrice: 1234, Quantity: 1},
	}
	q := PriceOrder(items, testPricing, false)

	if q.Tax != 93 {
		t.Fatalf("tax = %d, want 93", q.Tax)
	}
	if q.Total != q.Subtotal+q.ShippingCost+q.Tax {
		t.Fatalf("total %d != subtotal %d + shipping %d + tax %d",
			q.Total, q.Subtotal, q.ShippingCost, q.Tax)
	}
}

func TestPriceOrder_CashOnDeliveryUpfront(t *testing.T) {
	items := []orders.LineItem{
		{SKU: "SHO-101", UnitPrice: 30000, Quantity: 1},
		{SKU: "BLT-007", UnitPrice: 10000, Quantity: 1},
	}
	q := PriceOrder(items, testPricing, true)

	// subtotal 40000, shipping 2000, tax 3000, total 45000
	if q.Total != 45000 {
		t.Fatalf("total = %d, want 45000", q.Total)
	}
	if q.UpfrontAmount != 22500 {
		t.Fatalf("upfront = %d, want half the total", q.UpfrontAmount)
	}
}

func TestPriceOrder_MultipleQuantities(t *testing.T) {
	items := []orders.LineItem{
		{SKU: "TEE-001", UnitPrice: 7500, Quantity: 3},
		{SKU: "CAP-002", UnitPrice: 5000, Quantity: 2},
	}
	q := PriceOrder(items, testPricing, false)

	if q.Subtotal != 3*7500+2*5000 {
		t.Fatalf("subtotal = %d, want 32500", q.Subtotal)
	}
}
