// Package resilience provides the reliability kit used around every
// external dependency: retry with exponential backoff, per-dependency
// circuit breakers and a drainable background task manager.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// RetryConfig controls Retry.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first.
	MaxRetries int
	// BaseDelay is the delay before the first retry; each subsequent
	// retry doubles it up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Retriable, when set, filters errors: a non-retriable error aborts
	// immediately without sleeping.
	Retriable func(error) bool
}

// DefaultRetry is the retry policy used for external calls.
var DefaultRetry = RetryConfig{
	MaxRetries: 3,
	BaseDelay:  500 * time.Millisecond,
	MaxDelay:   10 * time.Second,
}

// Retry runs op until it succeeds, the attempts are exhausted, the error is
// classified non-retriable, or ctx is done. Backoff is exponential with
// full jitter in [0.5d, 1.5d).
func Retry[T any](ctx context.Context, name string, cfg RetryConfig, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(cfg, attempt)
			slog.Warn("Retrying operation",
				"operation", name,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr)
			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("%s: %w", name, ctx.Err())
			case <-time.After(delay):
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if cfg.Retriable != nil && !cfg.Retriable(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: %w", name, ctx.Err())
		}
	}

	return zero, fmt.Errorf("%s: retries exhausted: %w", name, lastErr)
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	d := cfg.BaseDelay << (attempt - 1)
	if cfg.MaxDelay > 0 && d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	// Jitter in [0.5d, 1.5d) so synchronized callers spread out.
	return time.Duration(float64(d) * (0.5 + rand.Float64()))
}
