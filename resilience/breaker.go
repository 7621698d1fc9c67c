package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned when the circuit is open and calls fail fast.
var ErrBreakerOpen = errors.New("resilience: circuit breaker is open")

// BreakerState represents the circuit breaker state.
type BreakerState int

const (
	// BreakerClosed allows calls to pass through.
	BreakerClosed BreakerState = iota
	// BreakerOpen blocks all calls until the open interval elapses.
	BreakerOpen
	// BreakerHalfOpen allows a single probe call to test recovery.
	BreakerHalfOpen
)

// String returns the state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// Name identifies the breaker in logs and state-change callbacks.
	Name string
	// MaxFailures is the number of consecutive failures before opening.
	MaxFailures int
	// OpenInterval is how long the breaker stays open before probing.
	OpenInterval time.Duration
	// OnStateChange is invoked on every transition.
	OnStateChange func(name string, from, to BreakerState)
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxFailures:  5,
		OpenInterval: 30 * time.Second,
	}
}

// Breaker fails calls fast while a downstream service is unhealthy. After
// MaxFailures consecutive failures it opens; once OpenInterval elapses a
// single probe call is let through, closing the breaker on success and
// re-opening it on failure.
type Breaker struct {
	cfg BreakerConfig

	mu        sync.Mutex
	state     BreakerState
	failures  int
	openUntil time.Time
	probing   bool
}

// NewBreaker creates a circuit breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenInterval <= 0 {
		cfg.OpenInterval = 30 * time.Second
	}
	return &Breaker{cfg: cfg, state: BreakerClosed}
}

// Allow reports whether a call may proceed. The caller must report the
// outcome with Record.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current() {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return false
	}
}

// Record reports the outcome of a call previously admitted by Allow.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.current()
	if err == nil {
		if state == BreakerHalfOpen {
			b.transition(BreakerClosed)
		}
		b.failures = 0
		return
	}

	b.failures++
	if state == BreakerHalfOpen || (state == BreakerClosed && b.failures >= b.cfg.MaxFailures) {
		b.openUntil = time.Now().Add(b.cfg.OpenInterval)
		b.transition(BreakerOpen)
	}
}

// Execute runs fn through the breaker, returning ErrBreakerOpen when the
// circuit rejects the call.
func (b *Breaker) Execute(fn func() error) error {
	if !b.Allow() {
		return ErrBreakerOpen
	}
	err := fn()
	b.Record(err)
	return err
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.transition(BreakerClosed)
}

// current resolves the open->half-open timeout transition. Callers hold mu.
func (b *Breaker) current() BreakerState {
	if b.state == BreakerOpen && !time.Now().Before(b.openUntil) {
		b.transition(BreakerHalfOpen)
	}
	return b.state
}

func (b *Breaker) transition(to BreakerState) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.probing = false
	if to == BreakerClosed {
		b.failures = 0
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}
