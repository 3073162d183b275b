package api

import (
	"encoding/json"
	"io"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

const headerWebhookSignature = "X-Dodo-Signature"

// webhookPayload is the gateway's payment notification. Amounts arrive in
// paise.
type webhookPayload struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Metadata  struct {
		LoanID string `json:"loan_id"`
		UserID string `json:"user_id"`
	} `json:"metadata"`
}

// webhookHandler handles POST /payments/webhook. The signature is verified
// over the raw body before anything is parsed; duplicate deliveries are
// absorbed by the payment service.
func (s *Server) webhookHandler(c *echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	signature := c.Request().Header.Get(headerWebhookSignature)
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid webhook signature")
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed payload")
	}

	if payload.Status == "completed" {
		amountRupees := float64(payload.Amount) / 100
		if _, err := s.payments.ProcessRepayment(c.Request().Context(), payload.PaymentID, payload.Metadata.LoanID, amountRupees); err != nil {
			return mapServiceError(c, err)
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"received":   true,
		"request_id": currentRequestID(c),
	})
}
