package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Transport performs one HTTP exchange for a request descriptor. It returns
// the buffered response for ANY status code; errors are reserved for
// transport-level failures, already mapped to the error taxonomy.
type Transport interface {
	Perform(ctx context.Context, req Request) (*Response, error)
}

// HTTPTransport is the net/http-backed Transport.
type HTTPTransport struct {
	client  *http.Client
	baseURL string
}

// NewHTTPTransport creates a transport resolving request paths against
// baseURL. A nil httpClient falls back to a client with a cloned default
// transport and no global timeout; timeouts are applied per call through
// the context.
func NewHTTPTransport(baseURL string, httpClient *http.Client) *HTTPTransport {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}
	return &HTTPTransport{client: httpClient, baseURL: baseURL}
}

// Perform implements Transport.
func (t *HTTPTransport) Perform(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := t.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}

	finalURL := httpReq.URL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
		URL:        finalURL,
		Duration:   time.Since(start),
	}, nil
}

// buildRequest constructs an *http.Request from the descriptor.
func (t *HTTPTransport) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := resolveURL(t.baseURL, req.Path)

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, NewInvalidEndpointError(err.Error())
	}

	if len(req.Query) > 0 {
		encoded := encodeQuery(req.Query)
		if httpReq.URL.RawQuery != "" {
			httpReq.URL.RawQuery += "&" + encoded
		} else {
			httpReq.URL.RawQuery = encoded
		}
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// resolveURL joins a base URL and a path unless the path is already
// absolute.
func resolveURL(base, path string) string {
	if base == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// encodeQuery encodes parameters preserving their order. url.Values.Encode
// sorts keys, which would break the descriptor's ordering guarantee.
func encodeQuery(items []QueryParam) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(item.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(item.Value))
	}
	return b.String()
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}

// mapTransportError maps a transport-level failure to the taxonomy at the
// transport boundary, so retry decisions never see raw net errors.
func mapTransportError(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(err, context.Canceled):
		// Distinguish caller cancellation from a per-call deadline.
		if ctx.Err() == context.DeadlineExceeded {
			return NewTimeoutError(err)
		}
		return NewCancelledError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError(err)
	}

	if isTLSError(err) {
		return NewTLSError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) {
		return NewOfflineError(err)
	}

	return NewUnknownError(err)
}

func isTLSError(err error) bool {
	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var unknownAuthErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	return errors.As(err, &certErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuthErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}
