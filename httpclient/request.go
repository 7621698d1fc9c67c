package httpclient

import (
	"net/textproto"
	"time"
)

// QueryParam is a single query-string item. Parameters keep the order in
// which they were added.
type QueryParam struct {
	Key   string
	Value string
}

// LoggingPolicy controls request logging. The client's config supplies the
// default; a request-level policy overrides it for that call only.
type LoggingPolicy struct {
	// Enabled turns request start/completion logging on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// LogBody additionally logs response bodies at debug level.
	LogBody bool `yaml:"log_body" mapstructure:"log_body"`
	// MaxBodyLog caps logged body bytes. Defaults to 2048.
	MaxBodyLog int `yaml:"max_body_log" mapstructure:"max_body_log"`
}

/// Request describes an outbound HTTP request. It is a value type: the
// With* helpers return modified copies, so interceptors transform a request
// without mutating the caller's descriptor.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, PATCH, DELETE, etc).
	Method string
	// Path is appended to the client's BaseURL. Can be a full URL if
	// BaseURL is empty.
	Path string
	// Headers are request headers. Keys are unique under canonical
	// (case-insensitive) comparison; use WithHeader to set them.
	Headers map[string]string
	// Query are URL query parameters, applied in order.
	Query []QueryParam
	// Body is the raw request body, or nil.
	Body []byte
	// Timeout overrides the client's default timeout for this call. It
	// covers the transport exchange only, not retry backoff sleeps.
	Timeout time.Duration
	// Logging overrides the client's logging policy for this call.
	Logging *LoggingPolicy
}

// WithHeader returns a copy of the request with the header set. The key is
// canonicalized, so setting "authorization" replaces "Authorization".
func (r Request) WithHeader(key, value string) Request {
	out := r.clone()
	if out.Headers == nil {
		out.Headers = make(map[string]string, 1)
	}
	out.Headers[textproto.CanonicalMIMEHeaderKey(key)] = value
	return out
}

// WithQuery returns a copy of the request with a query parameter appended.
func (r Request) WithQuery(key, value string) Request {
	out := r.clone()
	out.Query = append(out.Query, QueryParam{Key: key, Value: value})
	return out
}

// WithBody returns a copy of the request with the body replaced.
func (r Request) WithBody(body []byte) Request {
	out := r.clone()
	out.Body = body
	return out
}

// Header returns the header value for a key under canonical comparison.
func (r Request) Header(key string) (string, bool) {
	v, ok := r.Headers[textproto.CanonicalMIMEHeaderKey(key)]
	return v, ok
}

// clone deep-copies the request's headers and query so that copies never
// share mutable state.
func (r Request) clone() Request {
	out := r
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	if r.Query != nil {
		out.Query = append([]QueryParam(nil), r.Query...)
	}
	return out
}

// Response is the buffered result of one transport exchange.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers, flattened to single values.
	Headers map[string]string
	// Body is the raw response body.
	Body []byte
	// URL is the final URL after redirects.
	URL string
	// Duration is the elapsed time of the transport exchange.
	Duration time.Duration
}

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Header returns a response header under canonical comparison.
func (r *Response) Header(key string) string {
	return r.Headers[textproto.CanonicalMIMEHeaderKey(key)]
}
