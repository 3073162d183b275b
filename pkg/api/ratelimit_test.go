package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingLimiterWindowExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := newLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	ok, remaining := l.Allow("k")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	ok, remaining = l.Allow("k")
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)

	ok, _ = l.Allow("k")
	assert.False(t, ok)

	// The first request falls out of the window a minute later.
	now = now.Add(61 * time.Second)
	ok, _ = l.Allow("k")
	assert.True(t, ok)
}

func TestSlidingLimiterEvictsIdleKeys(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := newLimiter(5, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("idle")
	l.Allow("busy")
	assert.Len(t, l.buckets, 2)

	// Two minutes later only the requesting key survives the sweep.
	now = now.Add(2 * time.Minute)
	l.Allow("busy")
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "busy")
}

func TestSlidingLimiterIsolatesKeys(t *testing.T) {
	l := newLimiter(1, time.Minute)

	ok, _ := l.Allow("a")
	assert.True(t, ok)
	ok, _ = l.Allow("a")
	assert.False(t, ok)
	ok, _ = l.Allow("b")
	assert.True(t, ok)
}
