package resilience

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitOpenError is returned when a call is rejected without being
// attempted because the breaker is open.
type CircuitOpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit %s open, retry after %s", e.Name, e.RetryAfter.Round(time.Second))
}

// BreakerConfig controls a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker from closed.
	FailureThreshold int
	// SuccessThreshold is the consecutive half-open successes required to
	// close the breaker again.
	SuccessThreshold int
	// RecoveryTimeout is how long the breaker stays open before allowing
	// a probe.
	RecoveryTimeout time.Duration
}

// DefaultBreaker is the breaker policy for external dependencies.
var DefaultBreaker = BreakerConfig{
	FailureThreshold: 5,
	SuccessThreshold: 2,
	RecoveryTimeout:  30 * time.Second,
}

// Breaker is a circuit breaker guarding one named dependency.
//
// Closed: calls pass through; consecutive failures up to the threshold open
// it. Open: calls fail fast with CircuitOpenError until the recovery timeout
// elapses, then exactly one probe is let through (half-open). A half-open
// failure reopens the breaker; SuccessThreshold consecutive successes close it.
type Breaker struct {
	name string
	cfg  BreakerConfig

	// onStateChange is invoked outside the lock on every transition.
	onStateChange func(name, from, to string)

	mu            sync.Mutex
	state         BreakerState
	failures      int
	successes     int
	openedAt      time.Time
	probeInFlight bool

	now func() time.Time
}

// NewBreaker creates a breaker for the named dependency. Zero config fields
// fall back to DefaultBreaker.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreaker.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = DefaultBreaker.SuccessThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultBreaker.RecoveryTimeout
	}
	return &Breaker{
		name:  name,
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
}

// OnStateChange registers a transition hook (used for metrics).
func (b *Breaker) OnStateChange(fn func(name, from, to string)) { b.onStateChange = fn }

// Name returns the dependency name the breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs op through the breaker. If the breaker rejects the call, op is
// not invoked and a CircuitOpenError is returned.
func (b *Breaker) Do(op func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := op()
	b.record(err == nil)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		elapsed := b.now().Sub(b.openedAt)
		if elapsed < b.cfg.RecoveryTimeout {
			return &CircuitOpenError{Name: b.name, RetryAfter: b.cfg.RecoveryTimeout - elapsed}
		}
		b.transition(StateHalfOpen)
		b.probeInFlight = true
		return nil
	case StateHalfOpen:
		if b.probeInFlight {
			return &CircuitOpenError{Name: b.name, RetryAfter: b.cfg.RecoveryTimeout}
		}
		b.probeInFlight = true
		return nil
	}
	return nil
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.openedAt = b.now()
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.probeInFlight = false
		if !success {
			b.successes = 0
			b.openedAt = b.now()
			b.transition(StateOpen)
			return
		}
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.failures = 0
			b.successes = 0
			b.transition(StateClosed)
		}
	}
}

// transition must be called with the lock held.
func (b *Breaker) transition(to BreakerState) {
	from := b.state
	b.state = to
	slog.Warn("Circuit breaker state change",
		"breaker", b.name,
		"from", from.String(),
		"to", to.String())
	if b.onStateChange != nil {
		go b.onStateChange(b.name, from.String(), to.String())
	}
}
