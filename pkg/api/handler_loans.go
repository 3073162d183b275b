package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// CreateLoanRequest is the body of POST /loans.
type CreateLoanRequest struct {
	CircleID   string  `json:"circle_id"`
	Amount     float64 `json:"amount"`
	Purpose    string  `json:"purpose"`
	TenureDays int     `json:"tenure_days"`
}

// createLoanHandler handles POST /loans: the request runs through the
// decision pipeline and either opens a loan for voting or returns the
// decline with the advisor's guidance.
func (s *Server) createLoanHandler(c *echo.Context) error {
	var req CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TenureDays == 0 {
		req.TenureDays = 70
	}

	result, err := s.loans.RequestLoan(c.Request().Context(), currentUserID(c), req.CircleID, req.Amount, req.Purpose, req.TenureDays)
	if err != nil {
		return mapServiceError(c, err)
	}

	if !result.Approved {
		return c.JSON(http.StatusOK, map[string]any{
			"success":          false,
			"approved":         false,
			"reason":           result.Decision.Reason,
			"advice":           result.Decision.Advice,
			"suggested_action": result.Decision.SuggestedAction,
			"reasoning_traces": result.Decision.DisplayTraces,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":          true,
		"loan":             result.Loan,
		"ai_analysis":      result.Decision,
		"reasoning_traces": result.Decision.DisplayTraces,
	})
}

// VoteRequest is the body of POST /loans/:id/vote.
type VoteRequest struct {
	Vote        bool `json:"vote"`
	TokensSpent int  `json:"tokens_spent"`
}

// voteHandler handles POST /loans/:id/vote.
func (s *Server) voteHandler(c *echo.Context) error {
	loanID := c.Param("id")
	if loanID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "loan id is required")
	}

	var req VoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	outcome, err := s.loans.VoteOnLoan(c.Request().Context(), loanID, currentUserID(c), req.Vote, req.TokensSpent)
	if err != nil {
		return mapServiceError(c, err)
	}

	message := "vote recorded"
	if outcome.Tally.QuorumMet {
		message = "vote recorded; loan " + string(outcome.Status)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"tally":   outcome.Tally,
		"status":  outcome.Status,
	})
}

// DisburseRequest is the body of POST /loans/:id/disburse.
type DisburseRequest struct {
	UPIHandle string `json:"upi_handle"`
}

// disburseHandler handles POST /loans/:id/disburse.
func (s *Server) disburseHandler(c *echo.Context) error {
	loanID := c.Param("id")
	if loanID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "loan id is required")
	}

	var req DisburseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	loan, err := s.loans.Disburse(c.Request().Context(), loanID, req.UPIHandle)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"loan":    loan,
	})
}
