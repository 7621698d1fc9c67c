package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// TypedResponse wraps a decoded body of type T with the response metadata.
type TypedResponse[T any] struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// URL is the final URL after redirects.
	URL string
	// Duration is the elapsed time of the transport exchange.
	Duration time.Duration
	// Data is the decoded response body.
	Data T
}

// RequestOption configures a single request.
type RequestOption func(*Request)

// WithHeader sets a header on the request.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		*r = r.WithHeader(key, value)
	}
}

// WithQuery appends a query parameter to the request.
func WithQuery(key, value string) RequestOption {
	return func(r *Request) {
		*r = r.WithQuery(key, value)
	}
}

// WithTimeout overrides the client timeout for the request.
func WithTimeout(timeout time.Duration) RequestOption {
	return func(r *Request) {
		r.Timeout = timeout
	}
}

// WithLogging overrides the client logging policy for the request.
func WithLogging(policy LoggingPolicy) RequestOption {
	return func(r *Request) {
		r.Logging = &policy
	}
}

// Get performs a GET request and decodes the JSON response into type T.
func Get[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodGet, path, nil, opts...)
}

// Post performs a POST request with a JSON body and decodes the response into type T.
func Post[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodPost, path, body, opts...)
}

// Put performs a PUT request with a JSON body and decodes the response into type T.
func Put[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodPut, path, body, opts...)
}

// Patch performs a PATCH request with a JSON body and decodes the response into type T.
func Patch[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodPatch, path, body, opts...)
}

// Delete performs a DELETE request and decodes the JSON response into type T.
func Delete[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodDelete, path, nil, opts...)
}

// doTyped executes a request and decodes the JSON response. Decoding runs
// only after classification succeeds, and decode failures are never
// retried: the exchange already succeeded, a second attempt would not fix
// a malformed body.
func doTyped[T any](c *Client, ctx context.Context, method, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	req := Request{Method: method, Path: path}

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, NewInvalidEndpointError("encode body: " + err.Error())
		}
		req.Body = encoded
		req = req.WithHeader("Content-Type", "application/json")
	}

	for _, opt := range opts {
		opt(&req)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Body) == 0 {
		return nil, NewNoResponseBodyError()
	}

	var data T
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return nil, NewDecodingError(err)
	}

	return &TypedResponse[T]{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		URL:        resp.URL,
		Duration:   resp.Duration,
		Data:       data,
	}, nil
}
