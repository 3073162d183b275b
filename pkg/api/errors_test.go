package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"

	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/resilience"
	"github.com/kredefy/backend/pkg/services"
)

// serveError routes a request through the middleware-free stack so
// mapServiceError runs against a real context.
func serveError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Use(requestID())
	e.GET("/test", func(c *echo.Context) error {
		return mapServiceError(c, err)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expectCode int
		expectBody string
	}{
		{
			name:       "validation error maps to 400",
			err:        services.NewValidationError("amount", "amount must be positive"),
			expectCode: http.StatusBadRequest,
			expectBody: "amount must be positive",
		},
		{
			name:       "duplicate vouch maps to 400",
			err:        fmt.Errorf("wrapped: %w", services.ErrAlreadyVouched),
			expectCode: http.StatusBadRequest,
			expectBody: "already",
		},
		{
			name:       "duplicate vote maps to 400",
			err:        services.ErrAlreadyVoted,
			expectCode: http.StatusBadRequest,
			expectBody: "already",
		},
		{
			name:       "not found maps to 404",
			err:        fmt.Errorf("wrapped: %w", ports.ErrNotFound),
			expectCode: http.StatusNotFound,
			expectBody: "resource not found",
		},
		{
			name:       "open circuit maps to 502 with retry hint",
			err:        &resilience.CircuitOpenError{Name: "payments", RetryAfter: 30 * time.Second},
			expectCode: http.StatusBadGateway,
			expectBody: "retry_after_seconds",
		},
		{
			name:       "dependency failure maps to 502 naming the dependency",
			err:        ports.NewDependencyError("blockchain", errors.New("connection refused")),
			expectCode: http.StatusBadGateway,
			expectBody: "dependency unavailable: blockchain",
		},
		{
			name:       "unknown error maps to 500",
			err:        errors.New("something unexpected happened"),
			expectCode: http.StatusInternalServerError,
			expectBody: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveError(t, tt.err)
			assert.Equal(t, tt.expectCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectBody)
		})
	}
}

func TestMapServiceErrorIncludesRequestID(t *testing.T) {
	rec := serveError(t, errors.New("boom"))
	assert.Contains(t, rec.Body.String(), rec.Header().Get(headerRequestID))
}
