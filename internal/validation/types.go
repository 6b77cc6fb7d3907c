package validation

// Item is a single cart line. Price is what the client displayed to the
// shopper; the server snapshots its own price and never trusts this field
// for money.
type Item struct {
	SKU      string `json:"sku" validate:"required"`
	Size     string `json:"size" validate:"required"`
	Color    string `json:"color" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Price    int64  `json:"price,omitempty" validate:"omitempty,gt=0"`
}

// Address is a shipping or billing address payload.
type Address struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country" validate:"required"`
}

// CreateOrderRequest is the payload for POST /orders.
type CreateOrderRequest struct {
	CustomerID      string   `json:"customer_id" validate:"required"`
	Items           []Item   `json:"items" validate:"required,min=1,dive"`
	ShippingAddress Address  `json:"shipping_address" validate:"required"`
	BillingAddress  *Address `json:"billing_address,omitempty"`
	PaymentMethod   string   `json:"payment_method" validate:"required,oneof=gateway cash_on_delivery"`
	Notes           string   `json:"notes,omitempty"`
}

// UpdateOrderStatusRequest is the payload for PUT /admin/orders/:id.
type UpdateOrderStatusRequest struct {
	Status         string `json:"status" validate:"required,oneof=pending confirmed processing shipped delivered cancelled"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// VerifyPaymentRequest is the payload for POST /admin/orders/verify-payment.
type VerifyPaymentRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

// CreateProductRequest is the payload for POST /admin/products.
type CreateProductRequest struct {
	SKU           string                    `json:"sku" validate:"required"`
	Name          string                    `json:"name" validate:"required"`
	Designer      string                    `json:"designer" validate:"required"`
	Description   string                    `json:"description,omitempty"`
	Category      string                    `json:"category" validate:"required"`
	Subcategory   string                    `json:"subcategory,omitempty"`
	Gender        string                    `json:"gender,omitempty" validate:"omitempty,oneof=women men unisex"`
	Price         int64                     `json:"price" validate:"required,gt=0"`
	OriginalPrice int64                     `json:"original_price,omitempty" validate:"omitempty,gt=0"`
	Materials     []string                  `json:"materials,omitempty"`
	Tags          []string                  `json:"tags,omitempty"`
	IsActive      bool                      `json:"is_active"`
	IsFeatured    bool                      `json:"is_featured"`
	IsOnSale      bool                      `json:"is_on_sale"`
	IsPreowned    bool                      `json:"is_preowned"`
	Condition     string                    `json:"condition,omitempty" validate:"omitempty,oneof=excellent very_good good fair"`
	Images        []string                  `json:"images,omitempty" validate:"omitempty,dive,url"`
	Stock         map[string]map[string]int `json:"stock" validate:"required"`
}

// AdjustStockRequest is the payload for PUT /admin/products/:sku/stock.
type AdjustStockRequest struct {
	Size  string `json:"size" validate:"required"`
	Color string `json:"color" validate:"required"`
	Delta int    `json:"delta" validate:"required"`
}
