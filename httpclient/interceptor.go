package httpclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/restkit/credential"
)

// ErrCredentialRefreshed is the distinguished signal a response interceptor
// returns after a successful credential refresh: the client reissues the
// original request instead of surfacing an error. It is not a failure.
var ErrCredentialRefreshed = errors.New("httpclient: credential refreshed, retry the request")

// RequestInterceptor transforms an outgoing request descriptor. It returns
// a new descriptor; descriptors are never mutated in place.
type RequestInterceptor interface {
	TransformRequest(ctx context.Context, req Request) (Request, error)
}

// ResponseInterceptor inspects or transforms a raw response body before
// classification. Returning ErrCredentialRefreshed signals the client to
// reissue the original request.
type ResponseInterceptor interface {
	TransformResponse(ctx context.Context, statusCode int, headers map[string]string, body []byte) ([]byte, error)
}

// RequestInterceptorFunc adapts a function to RequestInterceptor.
type RequestInterceptorFunc func(ctx context.Context, req Request) (Request, error)

// TransformRequest implements RequestInterceptor.
func (f RequestInterceptorFunc) TransformRequest(ctx context.Context, req Request) (Request, error) {
	return f(ctx, req)
}

// ResponseInterceptorFunc adapts a function to ResponseInterceptor.
type ResponseInterceptorFunc func(ctx context.Context, statusCode int, headers map[string]string, body []byte) ([]byte, error)

// TransformResponse implements ResponseInterceptor.
func (f ResponseInterceptorFunc) TransformResponse(ctx context.Context, statusCode int, headers map[string]string, body []byte) ([]byte, error) {
	return f(ctx, statusCode, headers, body)
}

// applyRequestInterceptors threads the descriptor through the chain in
// order. The first failure aborts the chain; later interceptors do not run.
func applyRequestInterceptors(ctx context.Context, chain []RequestInterceptor, req Request) (Request, error) {
	for _, ic := range chain {
		var err error
		req, err = ic.TransformRequest(ctx, req)
		if err != nil {
			return Request{}, err
		}
	}
	return req, nil
}

// applyResponseInterceptors threads the raw body through the chain in
// order, aborting on the first failure (including the refresh signal).
func applyResponseInterceptors(ctx context.Context, chain []ResponseInterceptor, statusCode int, headers map[string]string, body []byte) ([]byte, error) {
	for _, ic := range chain {
		var err error
		body, err = ic.TransformResponse(ctx, statusCode, headers, body)
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}

// RequestIDInterceptor stamps outgoing requests with a unique request ID
// when one is not already present.
type RequestIDInterceptor struct {
	// Header is the header name. Defaults to X-Request-ID.
	Header string
	// NewID generates IDs. Defaults to uuid.NewString.
	NewID func() string
}

// NewRequestIDInterceptor creates a request-ID interceptor with defaults.
func NewRequestIDInterceptor() *RequestIDInterceptor {
	return &RequestIDInterceptor{Header: "X-Request-Id", NewID: uuid.NewString}
}

// TransformRequest implements RequestInterceptor.
func (i *RequestIDInterceptor) TransformRequest(_ context.Context, req Request) (Request, error) {
	header := i.Header
	if header == "" {
		header = "X-Request-Id"
	}
	if _, ok := req.Header(header); ok {
		return req, nil
	}
	newID := i.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return req.WithHeader(header, newID()), nil
}

// CredentialInterceptor injects the stored bearer credential into outgoing
// requests and, as a response interceptor, turns a 401 into a coordinated
// refresh followed by the retry signal.
type CredentialInterceptor struct {
	store       credential.Store
	coordinator *credential.Coordinator

	// ExpiryLeeway, when positive, enables proactive refresh: a JWT-shaped
	// credential expiring within the leeway is refreshed before the request
	// is sent instead of waiting for the 401.
	ExpiryLeeway time.Duration
}

// NewCredentialInterceptor creates a credential interceptor. The
// coordinator may be nil, which disables refresh: 401 responses then
// classify as unauthorized directly.
func NewCredentialInterceptor(store credential.Store, coordinator *credential.Coordinator) *CredentialInterceptor {
	return &CredentialInterceptor{store: store, coordinator: coordinator}
}

// TransformRequest implements RequestInterceptor: it injects
// "Authorization: Bearer <credential>". Requests go out untouched when no
// credential is stored.
func (i *CredentialInterceptor) TransformRequest(ctx context.Context, req Request) (Request, error) {
	token, err := i.store.Read(ctx)
	if errors.Is(err, credential.ErrNoCredential) {
		return req, nil
	}
	if err != nil {
		return Request{}, NewUnknownError(err)
	}

	if i.coordinator != nil && i.ExpiryLeeway > 0 && credential.Expired(token, i.ExpiryLeeway) {
		if err := i.coordinator.Refresh(ctx); err == nil {
			if fresh, rerr := i.store.Read(ctx); rerr == nil {
				token = fresh
			}
		}
		// A failed proactive refresh is not fatal here: the request goes
		// out with the stale credential and the 401 path takes over.
	}

	return req.WithHeader("Authorization", "Bearer "+token), nil
}

// TransformResponse implements ResponseInterceptor: a 401 triggers one
// coordinated refresh episode and, on success, the retry signal.
func (i *CredentialInterceptor) TransformResponse(ctx context.Context, statusCode int, _ map[string]string, body []byte) ([]byte, error) {
	if statusCode != http.StatusUnauthorized || i.coordinator == nil {
		return body, nil
	}
	if err := i.coordinator.Refresh(ctx); err != nil {
		unauthorized := NewUnauthorizedError(body)
		unauthorized.Err = err
		return nil, unauthorized
	}
	return nil, ErrCredentialRefreshed
}
