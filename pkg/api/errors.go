package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/resilience"
	"github.com/kredefy/backend/pkg/services"
)

// mapServiceError maps service-layer errors to HTTP responses: business
// failures are 400, missing entities 404, open circuits and exhausted
// dependencies 502, everything else a logged 500.
func mapServiceError(c *echo.Context, err error) error {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}
	switch {
	case errors.Is(err, services.ErrAlreadyVouched),
		errors.Is(err, services.ErrAlreadyVoted),
		errors.Is(err, services.ErrLoanNotVotable),
		errors.Is(err, services.ErrLoanNotDisbursable),
		errors.Is(err, ports.ErrConflict):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ports.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}

	var open *resilience.CircuitOpenError
	if errors.As(err, &open) {
		return c.JSON(http.StatusBadGateway, map[string]any{
			"error":               "service temporarily unavailable: " + open.Name,
			"retry_after_seconds": int(open.RetryAfter.Seconds()),
			"request_id":          currentRequestID(c),
		})
	}

	var dep *ports.DependencyError
	if errors.As(err, &dep) {
		return c.JSON(http.StatusBadGateway, map[string]any{
			"error":      "dependency unavailable: " + dep.Name,
			"request_id": currentRequestID(c),
		})
	}

	slog.Error("unhandled service error", "error", err, "request_id", currentRequestID(c))
	return c.JSON(http.StatusInternalServerError, map[string]any{
		"error":      "internal server error",
		"request_id": currentRequestID(c),
	})
}
