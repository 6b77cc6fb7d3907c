package validation

import "testing"

func validOrderRequest() CreateOrderRequest {
	return CreateOrderRequest{
		CustomerID: "cust-123",
		Items: []Item{
			{SKU: "BLZ-001", Size: "M", Color: "black", Quantity: 1, Price: 20000},
		},
		ShippingAddress: Address{
			Name:    "Ada Obi",
			Phone:   "+2348012345678",
			Email:   "ada@example.com",
			Line1:   "12 Marina Rd",
			City:    "Lagos",
			State:   "Lagos",
			Country: "NG",
		},
		PaymentMethod: "gateway",
	}
}

func TestCreateOrderRequest_Valid(t *testing.T) {
	v := New()
	if err := v.Struct(validOrderRequest()); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestCreateOrderRequest_MissingFields(t *testing.T) {
	v := New()
	req := CreateOrderRequest{
		Items: []Item{},
	}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation errors for missing required fields, got nil")
	}
}

func TestCreateOrderRequest_ItemNeedsSizeAndColor(t *testing.T) {
	v := New()
	req := validOrderRequest()
	req.Items = []Item{{SKU: "BLZ-001", Quantity: 1}}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected error for missing size/color, got nil")
	}
}

func TestCreateOrderRequest_ShippingEmailRequired(t *testing.T) {
	v := New()
	req := validOrderRequest()
	req.ShippingAddress.Email = ""
	if err := v.Struct(req); err == nil {
		t.Fatal("expected error when shipping address has no email, got nil")
	}
}

func TestCreateOrderRequest_ConflictingLinePrices(t *testing.T) {
	v := New()
	req := validOrderRequest()
	req.Items = []Item{
		{SKU: "BLZ-001", Size: "M", Color: "black", Quantity: 1, Price: 20000},
		{SKU: "BLZ-001", Size: "M", Color: "black", Quantity: 1, Price: 18000},
	}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected error for conflicting display prices on the same line, got nil")
	}
}

func TestCreateOrderRequest_BadPaymentMethod(t *testing.T) {
	v := New()
	req := validOrderRequest()
	req.PaymentMethod = "wire_transfer"
	if err := v.Struct(req); err == nil {
		t.Fatal("expected error for unknown payment method, got nil")
	}
}

func TestCreateProductRequest_NegativeStockRejected(t *testing.T) {
	v := New()
	req := CreateProductRequest{
		SKU:      "BLZ-001",
		Name:     "Wool Blazer",
		Designer: "Maison K",
		Category: "outerwear",
		Price:    42000,
		Stock:    map[string]map[string]int{"M": {"black": -1}},
	}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected error for negative stock bucket, got nil")
	}
}

func TestCreateProductRequest_PreownedNeedsCondition(t *testing.T) {
	v := New()
	req := CreateProductRequest{
		SKU:        "BAG-220",
		Name:       "Vintage Tote",
		Designer:   "Maison K",
		Category:   "bags",
		Price:      85000,
		IsPreowned: true,
		Stock:      map[string]map[string]int{"one_size": {"tan": 1}},
	}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected error for pre-owned without condition, got nil")
	}

	req.Condition = "very_good"
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid with condition set, got %v", err)
	}
}

func TestUpdateOrderStatusRequest_StatusEnum(t *testing.T) {
	v := New()
	if err := v.Struct(UpdateOrderStatusRequest{Status: "shipped"}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	if err := v.Struct(UpdateOrderStatusRequest{Status: "lost"}); err == nil {
		t.Fatal("expected error for unknown status, got nil")
	}
}
