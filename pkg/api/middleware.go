package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/kredefy/backend/pkg/metrics"
)

const (
	headerRequestID          = "X-Request-ID"
	headerResponseTime       = "X-Response-Time"
	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"

	contextKeyRequestID = "request_id"
	contextKeyUserID    = "user_id"
)

// requestID returns middleware that propagates the caller's request id or
// generates one, and echoes it on the response.
func requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			id := c.Request().Header.Get(headerRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set(contextKeyRequestID, id)
			c.Response().Header().Set(headerRequestID, id)
			return next(c)
		}
	}
}

// requestLogger logs one line per request and stamps X-Response-Time.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			start := time.Now()
			if resp, uerr := echo.UnwrapResponse(c.Response()); uerr == nil {
				resp.Before(func() {
					elapsed := time.Since(start)
					c.Response().Header().Set(headerResponseTime, fmt.Sprintf("%dms", elapsed.Milliseconds()))
				})
			}

			err := next(c)

			status := 0
			if resp, uerr := echo.UnwrapResponse(c.Response()); uerr == nil {
				status = resp.Status
			}
			slog.Info("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Get(contextKeyRequestID),
			)
			return err
		}
	}
}

// cors answers cross-origin requests for the configured origins. "*" allows
// any origin; otherwise the matching origin is echoed back with Vary set.
func cors(origins []string) echo.MiddlewareFunc {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			origin := c.Request().Header.Get("Origin")
			h := c.Response().Header()

			if allowAll {
				h.Set("Access-Control-Allow-Origin", "*")
			} else if origin != "" && allowed[origin] {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			h.Set("Access-Control-Max-Age", "86400")

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}

// securityHeaders returns middleware that sets standard security response headers.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", "default-src 'self'")
			return next(c)
		}
	}
}

// rateLimit enforces the per-principal sliding window. Health and metrics
// stay reachable for probes regardless of load.
func rateLimit(limiter *slidingLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			path := c.Request().URL.Path
			if path == "/health" || path == "/metrics" {
				return next(c)
			}

			allowed, remaining := limiter.Allow(principal(c))
			h := c.Response().Header()
			h.Set(headerRateLimitLimit, strconv.Itoa(limiter.limit))
			h.Set(headerRateLimitRemaining, strconv.Itoa(remaining))

			if !allowed {
				metrics.RateLimitRejections.Inc()
				h.Set("Retry-After", "60")
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"error":      "rate limit exceeded",
					"request_id": c.Get(contextKeyRequestID),
				})
			}
			return next(c)
		}
	}
}

// principal identifies the caller for rate limiting: the bearer token when
// present, the client address otherwise.
func principal(c *echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); auth != "" {
		return auth
	}
	return c.RealIP()
}

// bearerAuth verifies the Authorization bearer token and resolves the
// caller's user id. With an empty secret the token is taken as an opaque
// user id, which keeps local development credential-free.
func bearerAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			if secret == "" {
				c.Set(contextKeyUserID, token)
				return next(c)
			}

			userID, err := subjectFromJWT(token, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer token")
			}
			c.Set(contextKeyUserID, userID)
			return next(c)
		}
	}
}

func subjectFromJWT(token, secret string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("missing subject")
	}
	return sub, nil
}

func currentUserID(c *echo.Context) string {
	id, _ := c.Get(contextKeyUserID).(string)
	return id
}

func currentRequestID(c *echo.Context) string {
	id, _ := c.Get(contextKeyRequestID).(string)
	return id
}
