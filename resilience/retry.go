package resilience

import (
	"context"
	"fmt"
	"time"
)

// PolicyKind selects the retry behavior of a Policy.
type PolicyKind int

const (
	// PolicyNone performs exactly one attempt.
	PolicyNone PolicyKind = iota
	// PolicyFixed retries with a constant delay between attempts.
	PolicyFixed
	// PolicyExponential retries with delay base*2^attempt.
	PolicyExponential
)

// String returns the kind name.
func (k PolicyKind) String() string {
	switch k {
	case PolicyNone:
		return "none"
	case PolicyFixed:
		return "fixed"
	case PolicyExponential:
		return "exponential"
	default:
		return "unknown"
	}
}

// Policy describes how an operation is retried. MaxAttempts is the number of
// retries after the initial attempt, so a policy allows MaxAttempts+1 total
// tries. The zero value is PolicyNone.
type Policy struct {
	Kind        PolicyKind
	MaxAttempts int
	Delay       time.Duration
}

// None returns a policy that never retries.
func None() Policy {
	return Policy{Kind: PolicyNone}
}

// Fixed returns a policy that retries up to maxAttempts times with a
// constant delay between attempts.
func Fixed(maxAttempts int, delay time.Duration) Policy {
	return Policy{Kind: PolicyFixed, MaxAttempts: maxAttempts, Delay: delay}
}

// Exponential returns a policy that retries up to maxAttempts times with
// exponentially growing delays: base, 2*base, 4*base, ...
func Exponential(maxAttempts int, base time.Duration) Policy {
	return Policy{Kind: PolicyExponential, MaxAttempts: maxAttempts, Delay: base}
}

// Validate checks policy invariants.
func (p Policy) Validate() error {
	if p.MaxAttempts < 0 {
		return fmt.Errorf("resilience: max attempts must be >= 0 (got %d)", p.MaxAttempts)
	}
	if p.Kind != PolicyNone && p.Delay < 0 {
		return fmt.Errorf("resilience: delay must be >= 0 (got %s)", p.Delay)
	}
	return nil
}

// Backoff returns the delay to wait after the given 0-indexed attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	switch p.Kind {
	case PolicyFixed:
		return p.Delay
	case PolicyExponential:
		if attempt < 0 {
			attempt = 0
		}
		// Shifting past 62 bits would overflow time.Duration.
		if attempt > 62 {
			attempt = 62
		}
		d := p.Delay << uint(attempt)
		if d < 0 || (p.Delay > 0 && d < p.Delay) {
			return 1<<63 - 1
		}
		return d
	default:
		return 0
	}
}

// ExhaustedError reports that every attempt allowed by a policy failed with
// a retryable error. Attempts is the policy's MaxAttempts. The last attempt's
// error is wrapped.
type ExhaustedError struct {
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("resilience: retries exhausted after %d retries: %v", e.Attempts, e.Last)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Do executes fn under the given policy. retryIf decides whether a failed
// attempt may be retried; a nil retryIf retries every error.
//
// With PolicyNone, fn runs exactly once and its outcome is propagated
// unchanged. Otherwise fn runs for attempts 0..MaxAttempts inclusive. A
// non-retryable error stops immediately and is returned as-is; exhausting
// the attempt budget on a retryable error returns *ExhaustedError. The
// backoff sleep honors ctx cancellation, and intentionally runs outside any
// per-attempt deadline fn applies internally.
func Do[T any](ctx context.Context, p Policy, retryIf func(error) bool, fn func() (T, error)) (T, error) {
	var zero T

	if p.Kind == PolicyNone {
		return fn()
	}
	if err := p.Validate(); err != nil {
		return zero, err
	}

	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		if retryIf != nil && !retryIf(err) {
			return zero, err
		}
		if attempt >= p.MaxAttempts {
			return zero, &ExhaustedError{Attempts: p.MaxAttempts, Last: err}
		}

		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// DoFunc is Do for operations that return only an error.
func DoFunc(ctx context.Context, p Policy, retryIf func(error) bool, fn func() error) error {
	_, err := Do(ctx, p, retryIf, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
