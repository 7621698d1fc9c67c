// Package resilience provides the fault-tolerance building blocks used by
// the HTTP client: a policy-driven retry executor, a circuit breaker, and a
// token-bucket rate limiter.
//
// Retry is driven by a Policy value (None, Fixed, or Exponential) plus a
// caller-supplied retryability predicate, so the executor itself is agnostic
// of any error taxonomy.
package resilience
