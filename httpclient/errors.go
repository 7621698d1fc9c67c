package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrorCode classifies every failed call into a closed taxonomy. Every
// non-2xx status and every transport failure maps to exactly one code.
type ErrorCode int

const (
	// ErrCodeUnknown covers transport failures with no more specific code.
	ErrCodeUnknown ErrorCode = iota
	// ErrCodeInvalidEndpoint indicates the request could not be built.
	ErrCodeInvalidEndpoint
	// ErrCodeNoResponseBody indicates a body was expected but absent.
	ErrCodeNoResponseBody
	// ErrCodeDecoding indicates the response body failed to decode.
	ErrCodeDecoding
	// ErrCodeServerFault covers non-2xx statuses without a dedicated code.
	ErrCodeServerFault
	// ErrCodeTimeout indicates the transport exchange timed out.
	ErrCodeTimeout
	// ErrCodeOffline indicates a connection-level failure (refused, DNS,
	// unreachable network).
	ErrCodeOffline
	// ErrCodeCancelled indicates the caller cancelled the request.
	ErrCodeCancelled
	// ErrCodeTLS indicates a TLS handshake or verification failure.
	ErrCodeTLS
	// ErrCodeRetryExhausted indicates every retry attempt failed.
	ErrCodeRetryExhausted
	// ErrCodeRateLimited indicates HTTP 429.
	ErrCodeRateLimited
	// ErrCodeUnauthorized indicates HTTP 401 after refresh recovery was
	// exhausted or unavailable.
	ErrCodeUnauthorized
	// ErrCodeNotFound indicates HTTP 404.
	ErrCodeNotFound
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeInvalidEndpoint:
		return "invalid_endpoint"
	case ErrCodeNoResponseBody:
		return "no_response_body"
	case ErrCodeDecoding:
		return "decoding"
	case ErrCodeServerFault:
		return "server_fault"
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeOffline:
		return "offline"
	case ErrCodeCancelled:
		return "cancelled"
	case ErrCodeTLS:
		return "tls"
	case ErrCodeRetryExhausted:
		return "retry_exhausted"
	case ErrCodeRateLimited:
		return "rate_limited"
	case ErrCodeUnauthorized:
		return "unauthorized"
	case ErrCodeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is the structured error returned by every failed call.
type Error struct {
	// Code classifies the error.
	Code ErrorCode
	// StatusCode is the HTTP status (0 for transport-level failures).
	StatusCode int
	// Message describes the error. For server faults it is the message
	// extracted from the error body, when one could be parsed.
	Message string
	// Body is the raw response body (may be nil).
	Body []byte
	// RetryAfter is the server-requested delay for rate-limited calls.
	RetryAfter time.Duration
	// Attempts is the retry budget that was exhausted (ErrCodeRetryExhausted).
	Attempts int
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		if e.Message != "" {
			return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
		}
		return fmt.Sprintf("httpclient: %s (HTTP %d)", e.Code, e.StatusCode)
	}
	if e.Message != "" {
		return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("httpclient: %s", e.Code)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the default policy may retry this error:
// timeouts, connection-level failures, exhausted retries, and 5xx faults.
func (e *Error) Retryable() bool {
	switch e.Code {
	case ErrCodeTimeout, ErrCodeOffline, ErrCodeRetryExhausted:
		return true
	case ErrCodeServerFault:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// NewInvalidEndpointError creates an invalid-endpoint error.
func NewInvalidEndpointError(msg string) *Error {
	return &Error{Code: ErrCodeInvalidEndpoint, Message: msg}
}

// NewNoResponseBodyError creates a missing-body error.
func NewNoResponseBodyError() *Error {
	return &Error{Code: ErrCodeNoResponseBody, Message: "response body is empty"}
}

// NewDecodingError creates a decode-failure error.
func NewDecodingError(err error) *Error {
	return &Error{Code: ErrCodeDecoding, Message: err.Error(), Err: err}
}

// NewServerFaultError creates a server-fault error for a non-2xx status.
func NewServerFaultError(statusCode int, msg string, body []byte) *Error {
	return &Error{Code: ErrCodeServerFault, StatusCode: statusCode, Message: msg, Body: body}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: "request timed out", Err: err}
}

// NewOfflineError creates a connection-failure error.
func NewOfflineError(err error) *Error {
	return &Error{Code: ErrCodeOffline, Message: "connection failed", Err: err}
}

// NewCancelledError creates a cancellation error.
func NewCancelledError(err error) *Error {
	return &Error{Code: ErrCodeCancelled, Message: "request cancelled", Err: err}
}

// NewTLSError creates a TLS-failure error.
func NewTLSError(err error) *Error {
	return &Error{Code: ErrCodeTLS, Message: "tls failure", Err: err}
}

// NewUnknownError creates an unclassified transport error.
func NewUnknownError(err error) *Error {
	return &Error{Code: ErrCodeUnknown, Message: err.Error(), Err: err}
}

// NewRetryExhaustedError creates a retries-exhausted error wrapping the
// last attempt's failure.
func NewRetryExhaustedError(attempts int, last error) *Error {
	return &Error{
		Code:     ErrCodeRetryExhausted,
		Attempts: attempts,
		Message:  fmt.Sprintf("gave up after %d retries", attempts),
		Err:      last,
	}
}

// NewRateLimitedError creates a rate-limited error.
func NewRateLimitedError(retryAfter time.Duration, body []byte) *Error {
	return &Error{Code: ErrCodeRateLimited, StatusCode: http.StatusTooManyRequests, RetryAfter: retryAfter, Body: body}
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(body []byte) *Error {
	return &Error{Code: ErrCodeUnauthorized, StatusCode: http.StatusUnauthorized, Body: body}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(body []byte) *Error {
	return &Error{Code: ErrCodeNotFound, StatusCode: http.StatusNotFound, Body: body}
}

// Classify maps a response to the error taxonomy. Returns nil for 2xx. The
// mapping is total: 401, 404, and 429 get dedicated codes; every other
// non-2xx status is a server fault carrying the best-effort message parsed
// from the error body.
func Classify(statusCode int, headers map[string]string, body []byte) *Error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized:
		return NewUnauthorizedError(body)
	case statusCode == http.StatusNotFound:
		return NewNotFoundError(body)
	case statusCode == http.StatusTooManyRequests:
		return NewRateLimitedError(parseRetryAfter(headers["Retry-After"]), body)
	default:
		return NewServerFaultError(statusCode, extractMessage(body), body)
	}
}

// IsRetryable reports whether an error is retryable under the default
// policy. Non-taxonomy errors are never retried.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsOffline checks if an error is a connection-failure error.
func IsOffline(err error) bool { return hasCode(err, ErrCodeOffline) }

// IsCancelled checks if an error is a cancellation error.
func IsCancelled(err error) bool { return hasCode(err, ErrCodeCancelled) }

// IsUnauthorized checks if an error is an unauthorized error.
func IsUnauthorized(err error) bool { return hasCode(err, ErrCodeUnauthorized) }

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsRateLimited checks if an error is a rate-limited error.
func IsRateLimited(err error) bool { return hasCode(err, ErrCodeRateLimited) }

// IsServerFault checks if an error is a server-fault error.
func IsServerFault(err error) bool { return hasCode(err, ErrCodeServerFault) }

// IsRetryExhausted checks if an error is a retries-exhausted error.
func IsRetryExhausted(err error) bool { return hasCode(err, ErrCodeRetryExhausted) }

// IsDecoding checks if an error is a decode-failure error.
func IsDecoding(err error) bool { return hasCode(err, ErrCodeDecoding) }

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// errorEnvelope is the conventional error body shape: a top-level message,
// a detail string, or a map of field-level errors.
type errorEnvelope struct {
	Message string              `json:"message"`
	Err     json.RawMessage     `json:"error"`
	Detail  string              `json:"detail"`
	Errors  map[string][]string `json:"errors"`
}

// extractMessage best-effort parses an error envelope from a body. A parse
// failure is never an error, only a missing message.
func extractMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	if len(env.Err) > 0 {
		var s string
		if json.Unmarshal(env.Err, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(env.Err, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	if env.Detail != "" {
		return env.Detail
	}
	if len(env.Errors) > 0 {
		fields := make([]string, 0, len(env.Errors))
		for f := range env.Errors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, f+": "+strings.Join(env.Errors[f], "; "))
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// parseRetryAfter parses a Retry-After header as delay-seconds or an
// HTTP-date, capped at one hour. Returns 0 when absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		delay := time.Duration(seconds) * time.Second
		if delay > time.Hour {
			delay = time.Hour
		}
		return delay
	}
	if t, err := http.ParseTime(value); err == nil {
		if delay := time.Until(t); delay > 0 && delay <= time.Hour {
			return delay
		}
	}
	return 0
}
