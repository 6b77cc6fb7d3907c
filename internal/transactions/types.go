package transactions

import "time"

// Transaction statuses reported by the gateway.
const (
	StatusPending    = "pending"
	StatusSuccessful = "successful"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Transaction is the gateway-facing record stored per initialized payment,
// keyed by the reference the gateway echoes back on callbacks and webhooks.
// Logically 1:1 with an order (1:partial for cash-on-delivery upfront).
type Transaction struct {
	Reference        string    `dynamodbav:"reference"` // PK
	OrderID          string    `dynamodbav:"order_id"`
	Amount           int64     `dynamodbav:"amount"`
	Currency         string    `dynamodbav:"currency"`
	Email            string    `dynamodbav:"email,omitempty"`
	Status           string    `dynamodbav:"status"`
	AuthorizationURL string    `dynamodbav:"authorization_url,omitempty"`
	GatewayResponse  string    `dynamodbav:"gateway_response,omitempty"`
	CreatedAt        time.Time `dynamodbav:"created_at"`
	UpdatedAt        time.Time `dynamodbav:"updated_at"`
}
