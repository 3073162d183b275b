// Package payments implements the payment-gateway port: repayment checkout
// sessions, disbursal payouts and webhook signature verification.
package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kredefy/backend/pkg/config"
	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/resilience"
)

// Client talks to the gateway REST API through the payments breaker.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	webhookSecret []byte
	breaker       *resilience.Breaker
	retry         resilience.RetryConfig
}

// NewClient creates a gateway client from settings.
func NewClient(settings config.PaymentsSettings, breaker *resilience.Breaker) *Client {
	retry := resilience.DefaultRetry
	retry.Retriable = ports.IsRetriable
	return &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       settings.BaseURL,
		apiKey:        settings.APIKey,
		webhookSecret: []byte(settings.WebhookSecret),
		breaker:       breaker,
		retry:         retry,
	}
}

// CreateCheckoutSession opens a hosted checkout for a loan repayment.
func (c *Client) CreateCheckoutSession(ctx context.Context, params ports.CheckoutParams) (*ports.CheckoutSession, error) {
	body := map[string]any{
		"amount":       params.Amount,
		"currency":     orINR(params.Currency),
		"customer_ref": params.CustomerRef,
		"metadata": map[string]string{
			"loan_id": params.LoanID,
			"user_id": params.UserID,
		},
	}
	var out struct {
		ID         string    `json:"id"`
		PaymentURL string    `json:"payment_url"`
		ExpiresAt  time.Time `json:"expires_at"`
	}
	if err := c.post(ctx, "payments.checkout", "/checkouts", body, &out); err != nil {
		return nil, err
	}
	return &ports.CheckoutSession{ID: out.ID, PaymentURL: out.PaymentURL, ExpiresAt: out.ExpiresAt}, nil
}

// CreatePayout disburses an approved loan to the borrower's UPI handle.
func (c *Client) CreatePayout(ctx context.Context, params ports.PayoutParams) (*ports.Payout, error) {
	body := map[string]any{
		"amount":     params.Amount,
		"currency":   "INR",
		"upi_handle": params.UPIHandle,
		"metadata": map[string]string{
			"loan_id": params.LoanID,
			"user_id": params.UserID,
		},
	}
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.post(ctx, "payments.payout", "/payouts", body, &out); err != nil {
		return nil, err
	}
	return &ports.Payout{ID: out.ID, Status: out.Status}, nil
}

// VerifyWebhookSignature checks the gateway HMAC-SHA256 over the raw body,
// comparing in constant time.
func (c *Client) VerifyWebhookSignature(payload []byte, signature string) bool {
	if len(c.webhookSecret) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, c.webhookSecret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) post(ctx context.Context, operation, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", operation, err)
	}

	_, err = resilience.Retry(ctx, operation, c.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.breaker.Do(func() error {
			return c.postOnce(ctx, path, encoded, out)
		})
	})
	return err
}

func (c *Client) postOnce(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.NewDependencyError("payments", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ports.NewDependencyError("payments", fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway rejected request: status %d: %s", resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding gateway response: %w", err)
	}
	return nil
}

func orINR(currency string) string {
	if currency == "" {
		return "INR"
	}
	return currency
}
