package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/kredefy/backend/pkg/models"
)

// CreateVouchRequest is the body of POST /vouches.
type CreateVouchRequest struct {
	VoucheeID    string  `json:"vouchee_id"`
	CircleID     string  `json:"circle_id"`
	VouchLevel   string  `json:"vouch_level"`
	SaathiStaked float64 `json:"saathi_staked"`
}

// createVouchHandler handles POST /vouches. The vouchee is screened by the
// fraud pipeline first; a blocked screen declines the vouch without touching
// the voucher's balance.
func (s *Server) createVouchHandler(c *echo.Context) error {
	var req CreateVouchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.VoucheeID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "vouchee_id field is required")
	}

	assessment, err := s.brain.ProcessVouchRequest(c.Request().Context(), currentUserID(c), req.VoucheeID, req.CircleID, req.VouchLevel)
	if err != nil {
		return mapServiceError(c, err)
	}
	if !assessment.Recommended {
		return c.JSON(http.StatusOK, map[string]any{
			"success":          false,
			"reason":           "vouchee failed the fraud screen",
			"ai_analysis":      assessment,
			"reasoning_traces": assessment.DisplayTraces,
		})
	}

	vouch, err := s.vouching.CreateVouch(c.Request().Context(), currentUserID(c), req.VoucheeID, req.CircleID, models.VouchLevel(req.VouchLevel), req.SaathiStaked)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":          true,
		"vouch":            vouch,
		"ai_analysis":      assessment,
		"reasoning_traces": assessment.DisplayTraces,
	})
}
