package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Paystack talks to the Paystack transaction API. Amounts cross the wire in
// subunits (kobo), so the client multiplies and divides by 100 at the
// boundary and nowhere else.
type Paystack struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

// NewPaystack returns a client with an explicit request timeout; a hung
// gateway must never hold a settlement handler open indefinitely.
func NewPaystack(baseURL, secretKey string) *Paystack {
	return &Paystack{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackVerifyData struct {
	Status          string `json:"status"` // "success", "failed", "abandoned"
	Amount          int64  `json:"amount"` // subunits
	Currency        string `json:"currency"`
	GatewayResponse string `json:"gateway_response"`
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize creates a hosted-checkout session.
func (p *Paystack) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	payload := map[string]interface{}{
		"amount":    req.Amount * 100,
		"currency":  req.Currency,
		"email":     req.Email,
		"reference": req.Reference,
	}
	if req.CallbackURL != "" {
		payload["callback_url"] = req.CallbackURL
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal initialize payload: %w", err)
	}

	var env paystackEnvelope
	if err := p.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body), &env); err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, fmt.Errorf("initialize rejected: %s", env.Message)
	}

	var data paystackInitData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode initialize data: %w", err)
	}
	return &InitializeResponse{
		AuthorizationURL: data.AuthorizationURL,
		Reference:        data.Reference,
	}, nil
}

// Verify fetches the transaction state for a reference.
func (p *Paystack) Verify(ctx context.Context, reference string) (*VerifyResponse, error) {
	var env paystackEnvelope
	if err := p.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &env); err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, fmt.Errorf("verify rejected: %s", env.Message)
	}

	var data paystackVerifyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode verify data: %w", err)
	}

	status := VerifyFailed
	if data.Status == "success" {
		status = VerifySuccess
	}
	return &VerifyResponse{
		Status:     status,
		AmountPaid: data.Amount / 100,
		Currency:   data.Currency,
		Message:    data.GatewayResponse,
	}, nil
}

func (p *Paystack) do(ctx context.Context, method, path string, body io.Reader, out *paystackEnvelope) error {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		// transport failure: timeout, refused connection, DNS
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: gateway returned %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
