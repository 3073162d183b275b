package api

import (
	"sync"
	"time"
)

// slidingLimiter is a per-key sliding-window rate limiter.
type slidingLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	buckets   map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func newLimiter(limit int, window time.Duration) *slidingLimiter {
	return &slidingLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records one request for key and reports whether it fits in the
// window, plus the remaining budget.
func (l *slidingLimiter) Allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	// Once per window, drop buckets whose newest entry has aged out so
	// idle principals do not accumulate forever.
	if now.Sub(l.lastSweep) >= l.window {
		for k, ts := range l.buckets {
			if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	kept := l.buckets[key][:0]
	for _, t := range l.buckets[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.buckets[key] = kept
		return false, 0
	}

	kept = append(kept, now)
	l.buckets[key] = kept
	return true, l.limit - len(kept)
}
