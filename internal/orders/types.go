package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Payment methods.
const (
	MethodGateway        = "gateway"
	MethodCashOnDelivery = "cash_on_delivery"
)

// transitions is the authoritative forward-only state machine. cancelled is
// reachable from any pre-shipped state; shipped and delivered orders cannot
// be cancelled here (returns are a separate flow). delivered and cancelled
// are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// Valid reports whether s is a defined order status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether from -> to is an allowed transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Address is a shipping or billing address. Email is required on shipping
// addresses; the order confirmation goes there.
type Address struct {
	Name       string `dynamodbav:"name" json:"name"`
	Phone      string `dynamodbav:"phone" json:"phone"`
	Email      string `dynamodbav:"email,omitempty" json:"email,omitempty"`
	Line1      string `dynamodbav:"line1" json:"line1"`
	Line2      string `dynamodbav:"line2,omitempty" json:"line2,omitempty"`
	City       string `dynamodbav:"city" json:"city"`
	State      string `dynamodbav:"state" json:"state"`
	PostalCode string `dynamodbav:"postal_code,omitempty" json:"postal_code,omitempty"`
	Country    string `dynamodbav:"country" json:"country"`
}

// LineItem is an immutable snapshot taken at order time. UnitPrice and the
// descriptive fields are copied from the product when the order is placed
// and are never recomputed from the live catalog.
type LineItem struct {
	SKU       string `dynamodbav:"sku" json:"sku"`
	Name      string `dynamodbav:"name" json:"name"`
	Designer  string `dynamodbav:"designer,omitempty" json:"designer,omitempty"`
	Image     string `dynamodbav:"image,omitempty" json:"image,omitempty"`
	Size      string `dynamodbav:"size" json:"size"`
	Color     string `dynamodbav:"color" json:"color"`
	UnitPrice int64  `dynamodbav:"unit_price" json:"unit_price"`
	Quantity  int    `dynamodbav:"quantity" json:"quantity"`
}

// Payment is the payment sub-record on an order. Amount is the order total;
// UpfrontAmount is the portion charged now for cash-on-delivery orders.
type Payment struct {
	Method        string `dynamodbav:"method" json:"method"`
	Status        string `dynamodbav:"status" json:"status"`
	Amount        int64  `dynamodbav:"amount" json:"amount"`
	UpfrontAmount int64  `dynamodbav:"upfront_amount,omitempty" json:"upfront_amount,omitempty"`
	AmountPaid    int64  `dynamodbav:"amount_paid,omitempty" json:"amount_paid,omitempty"`
	Currency      string `dynamodbav:"currency" json:"currency"`
	Reference     string `dynamodbav:"reference,omitempty" json:"reference,omitempty"`
}

// ExpectedAmount is what the gateway must report for the payment to settle:
// the upfront portion for cash-on-delivery, the full total otherwise.
func (p Payment) ExpectedAmount() int64 {
	if p.Method == MethodCashOnDelivery {
		return p.UpfrontAmount
	}
	return p.Amount
}

// Order is the item stored in the orders DynamoDB table. OrderNumber is the
// human-readable identifier exposed to shoppers and carries a GSI.
type Order struct {
	OrderID           string     `dynamodbav:"order_id" json:"order_id"` // PK
	OrderNumber       string     `dynamodbav:"order_number" json:"order_number"`
	CustomerID        string     `dynamodbav:"customer_id" json:"customer_id"`
	Items             []LineItem `dynamodbav:"items" json:"items"`
	ShippingAddress   Address    `dynamodbav:"shipping_address" json:"shipping_address"`
	BillingAddress    Address    `dynamodbav:"billing_address" json:"billing_address"`
	Payment           Payment    `dynamodbav:"payment" json:"payment"`
	Status            Status     `dynamodbav:"status" json:"status"`
	Subtotal          int64      `dynamodbav:"subtotal" json:"subtotal"`
	ShippingCost      int64      `dynamodbav:"shipping_cost" json:"shipping_cost"`
	Tax               int64      `dynamodbav:"tax" json:"tax"`
	Total             int64      `dynamodbav:"total" json:"total"`
	TrackingNumber    string     `dynamodbav:"tracking_number,omitempty" json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time `dynamodbav:"estimated_delivery,omitempty" json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time `dynamodbav:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	AdminNotes        string     `dynamodbav:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	ConfirmationSent  bool       `dynamodbav:"confirmation_sent,omitempty" json:"confirmation_sent,omitempty"`
	CreatedAt         time.Time  `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `dynamodbav:"updated_at" json:"updated_at"`
}

// NewOrderNumber builds a human-readable order number: a fixed prefix, a UTC
// timestamp, and a random suffix. The timestamp keeps numbers roughly sorted
// and the suffix makes collisions within a second negligible; the GSI on
// order_number is what actually enforces lookup by number.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "LX-" + now.UTC().Format("20060102150405") + "-" + suffix
}
