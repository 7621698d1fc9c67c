package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLimited is returned when a non-blocking acquisition is rejected.
var ErrLimited = errors.New("resilience: rate limit exceeded")

// LimiterConfig configures a token-bucket rate limiter.
type LimiterConfig struct {
	// Rate is the sustained number of calls allowed per second.
	Rate float64
	// Burst is the bucket capacity.
	Burst int
}

// DefaultLimiterConfig returns sensible defaults.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{Rate: 10, Burst: 20}
}

// Limiter is a token-bucket rate limiter. Tokens accrue at Rate per second
// up to Burst; each call consumes one token.
type Limiter struct {
	rate  float64
	burst float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewLimiter creates a rate limiter. The bucket starts full.
func NewLimiter(cfg LimiterConfig) *Limiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.Rate)
	}
	return &Limiter{
		rate:   cfg.Rate,
		burst:  float64(cfg.Burst),
		tokens: float64(cfg.Burst),
		last:   time.Now(),
	}
}

// Allow consumes a token if one is available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// Wait blocks until a token is available or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	delay := l.reserve()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Tokens returns the number of tokens currently available.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}

// reserve consumes a token, going negative if necessary, and returns how
// long the caller must wait for the debt to be repaid.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	l.tokens--
	if l.tokens >= 0 {
		return 0
	}
	return time.Duration(-l.tokens / l.rate * float64(time.Second))
}

// refill accrues tokens for the time elapsed since the last refill. Callers
// hold mu.
func (l *Limiter) refill() {
	now := time.Now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	l.last = now
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
}
