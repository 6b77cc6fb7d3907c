package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// struct-level rules that single-field tags cannot express
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})
	v.RegisterStructValidation(createProductStructValidation, CreateProductRequest{})

	return v
}

// createOrderStructValidation rejects orders whose shipping address lacks an
// email (the confirmation has nowhere to go) and carts that repeat the same
// sku/size/color with conflicting display prices.
func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	if req.ShippingAddress.Email == "" {
		sl.ReportError(req.ShippingAddress.Email, "shipping_address.email", "Email", "required", "")
	}

	type key struct{ sku, size, color string }
	prices := map[key]int64{}
	for _, it := range req.Items {
		k := key{it.SKU, it.Size, it.Color}
		if prev, ok := prices[k]; ok && it.Price != 0 && prev != 0 && prev != it.Price {
			sl.ReportError(req.Items, "items", "Items", "conflicting_line_prices", it.SKU)
			return
		}
		if it.Price != 0 {
			prices[k] = it.Price
		}
	}
}

// createProductStructValidation rejects negative stock buckets and requires
// a condition on pre-owned pieces.
func createProductStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateProductRequest)

	for size, colors := range req.Stock {
		for color, qty := range colors {
			if qty < 0 {
				sl.ReportError(req.Stock, "stock", "Stock", "negative_quantity", size+"/"+color)
				return
			}
		}
	}

	if req.IsPreowned && req.Condition == "" {
		sl.ReportError(req.Condition, "condition", "Condition", "required_when_preowned", "")
	}
}
