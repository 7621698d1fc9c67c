// Package credential manages the bearer credential shared by all requests
// of an HTTP client: a storage capability, a single-flight refresh
// coordinator, and an expiry probe for JWT-shaped credentials.
//
// The coordinator guarantees that at most one refresh is in flight per
// instance. Concurrent callers that hit an expired credential attach to the
// in-flight refresh and observe its outcome instead of starting their own.
package credential
