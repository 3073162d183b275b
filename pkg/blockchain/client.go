// Package blockchain implements the notarization port over a relayer REST
// API. The relayer holds the signing keys and submits transactions on the
// platform's behalf; this client only records intents and returns the
// resulting transaction hashes.
package blockchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kredefy/backend/pkg/config"
	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/resilience"
)

// Client talks to the relayer through the blockchain breaker.
type Client struct {
	httpClient *http.Client
	settings   config.ChainSettings
	breaker    *resilience.Breaker
	retry      resilience.RetryConfig
}

// NewClient creates a relayer client from settings.
func NewClient(settings config.ChainSettings, breaker *resilience.Breaker) *Client {
	retry := resilience.DefaultRetry
	retry.Retriable = ports.IsRetriable
	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		settings:   settings,
		breaker:    breaker,
		retry:      retry,
	}
}

// RecordLoan notarizes a disbursed loan on chain.
func (c *Client) RecordLoan(ctx context.Context, loanID, borrowerWallet string, amount float64, tenureDays int) (string, error) {
	return c.submit(ctx, "chain.record_loan", "/loans", map[string]any{
		"loan_id":         loanID,
		"borrower_wallet": borrowerWallet,
		"amount":          amount,
		"tenure_days":     tenureDays,
	})
}

// RecordRepayment notarizes a confirmed repayment.
func (c *Client) RecordRepayment(ctx context.Context, loanID string, amount float64) (string, error) {
	return c.submit(ctx, "chain.record_repayment", "/repayments", map[string]any{
		"loan_id": loanID,
		"amount":  amount,
	})
}

// StakeForVouch locks the voucher's stake against the vouchee.
func (c *Client) StakeForVouch(ctx context.Context, voucherWallet, voucheeWallet string, amount float64) (string, error) {
	return c.submit(ctx, "chain.stake_vouch", "/vouches/stake", map[string]any{
		"voucher_wallet": voucherWallet,
		"vouchee_wallet": voucheeWallet,
		"amount":         amount,
	})
}

// ReleaseVouchStake returns a vouch stake after the backed loan completes.
func (c *Client) ReleaseVouchStake(ctx context.Context, vouchID string) (string, error) {
	return c.submit(ctx, "chain.release_stake", "/vouches/release", map[string]any{
		"vouch_id": vouchID,
	})
}

// UpdateTrustScore publishes a wallet's current trust score.
func (c *Client) UpdateTrustScore(ctx context.Context, wallet string, score int) (string, error) {
	return c.submit(ctx, "chain.update_trust", "/trust", map[string]any{
		"wallet": wallet,
		"score":  score,
	})
}

// MarkLoanCompleted closes out a fully repaid loan on chain.
func (c *Client) MarkLoanCompleted(ctx context.Context, loanID string) (string, error) {
	return c.submit(ctx, "chain.complete_loan", "/loans/complete", map[string]any{
		"loan_id": loanID,
	})
}

// ExplorerURL returns a human-facing link for a transaction hash.
func (c *Client) ExplorerURL(txHash string) string {
	return fmt.Sprintf("%s/tx/%s", c.settings.ExplorerBaseURL, txHash)
}

func (c *Client) submit(ctx context.Context, operation, path string, body map[string]any) (string, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding %s request: %w", operation, err)
	}

	return resilience.Retry(ctx, operation, c.retry, func(ctx context.Context) (string, error) {
		var txHash string
		err := c.breaker.Do(func() error {
			var opErr error
			txHash, opErr = c.submitOnce(ctx, path, encoded)
			return opErr
		})
		return txHash, err
	})
}

func (c *Client) submitOnce(ctx context.Context, path string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.RelayerURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building relayer request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.settings.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ports.NewDependencyError("blockchain", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", ports.NewDependencyError("blockchain", fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("relayer rejected request: status %d: %s", resp.StatusCode, msg)
	}

	var parsed struct {
		TxHash string `json:"tx_hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding relayer response: %w", err)
	}
	if parsed.TxHash == "" {
		return "", fmt.Errorf("relayer returned no transaction hash")
	}
	return parsed.TxHash, nil
}
