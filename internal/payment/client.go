// Package payment talks to the Paystack-style payment gateway: it initializes
// transactions and authenticates and decodes the webhook notifications the
// gateway sends back.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrGatewayUnreachable = errors.New("payment gateway unreachable")
	ErrInvalidRequest     = errors.New("invalid payment request")
)

// GatewayError carries a provider error response as-is.
type GatewayError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway status %d", e.StatusCode)
}

type InitRequest struct {
	Email       string
	Amount      decimal.Decimal // major currency unit
	Reference   string
	CallbackURL string
}

type InitResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
	// Raw is the provider's response body, returned verbatim by the pay endpoint.
	Raw json.RawMessage
}

type Client struct {
	HTTP      *http.Client
	BaseURL   string
	SecretKey string
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		BaseURL:   baseURL,
		SecretKey: secretKey,
	}
}

type initPayload struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type initResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// Initialize asks the provider to open a transaction for in.Amount (converted to
// minor units) keyed by in.Reference and returns the hosted checkout URL.
func (c *Client) Initialize(ctx context.Context, in InitRequest) (*InitResult, error) {
	if in.Email == "" || in.Reference == "" || !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: email, positive amount and reference are required", ErrInvalidRequest)
	}
	body, err := json.Marshal(initPayload{
		Email:       in.Email,
		Amount:      ToMinor(in.Amount),
		Reference:   in.Reference,
		CallbackURL: in.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrGatewayUnreachable, err)
	}

	var out initResponse
	decodeErr := json.Unmarshal(raw, &out)
	if res.StatusCode < 200 || res.StatusCode >= 300 || decodeErr != nil || !out.Status {
		return nil, &GatewayError{StatusCode: res.StatusCode, Message: out.Message, Body: raw}
	}
	if out.Data.AuthorizationURL == "" {
		return nil, &GatewayError{StatusCode: res.StatusCode, Message: "missing authorization_url", Body: raw}
	}
	return &InitResult{
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
		Reference:        out.Data.Reference,
		Raw:              raw,
	}, nil
}
