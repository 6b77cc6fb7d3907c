package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
)

// Gateway verification outcomes.
const (
	VerifySuccess = "success"
	VerifyFailed  = "failed"
)

// ErrGatewayUnavailable marks transport-level gateway failures: timeouts,
// connection errors, 5xx responses. These are the only errors the settlement
// service retries.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// InitializeRequest asks the gateway for a hosted-checkout session.
// Amount is in whole currency units; the concrete client converts to the
// gateway's subunits at the wire boundary.
type InitializeRequest struct {
	Amount      int64
	Currency    string
	Email       string
	Reference   string
	CallbackURL string
}

// InitializeResponse carries the redirect target for the shopper.
type InitializeResponse struct {
	AuthorizationURL string
	Reference        string
}

// VerifyResponse is the gateway's answer for a reference. AmountPaid is in
// whole currency units.
type VerifyResponse struct {
	Status     string // VerifySuccess | VerifyFailed
	AmountPaid int64
	Currency   string
	Message    string
}

// Gateway is the payment provider contract: initialize a hosted checkout,
// verify a transaction by reference. Stateless request/response mapping.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*VerifyResponse, error)
}

// ValidSignature checks a webhook body against its HMAC-SHA512 signature
// header using constant-time comparison.
func ValidSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
