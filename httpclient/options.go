package httpclient

import (
	"github.com/kbukum/restkit/credential"
	"github.com/kbukum/restkit/logger"
)

// Option configures a Client at construction time.
type Option func(*Client)

// WithTransport replaces the default net/http transport, typically with a
// fake in tests.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithLogger sets the client logger. Defaults to a no-op logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		c.log = l.WithComponent("httpclient")
	}
}

// WithRequestInterceptors appends request interceptors, applied in the
// order given.
func WithRequestInterceptors(interceptors ...RequestInterceptor) Option {
	return func(c *Client) {
		c.reqInterceptors = append(c.reqInterceptors, interceptors...)
	}
}

// WithResponseInterceptors appends response interceptors, applied in the
// order given.
func WithResponseInterceptors(interceptors ...ResponseInterceptor) Option {
	return func(c *Client) {
		c.respInterceptors = append(c.respInterceptors, interceptors...)
	}
}

// WithCredentials wires a credential store and refresh coordinator into
// both chains: bearer injection on the way out, coordinated refresh with
// retry on 401 on the way back.
func WithCredentials(store credential.Store, coordinator *credential.Coordinator) Option {
	return func(c *Client) {
		ic := NewCredentialInterceptor(store, coordinator)
		c.reqInterceptors = append(c.reqInterceptors, ic)
		c.respInterceptors = append(c.respInterceptors, ic)
	}
}

// WithRequestID stamps every request with an X-Request-Id header.
func WithRequestID() Option {
	return func(c *Client) {
		c.reqInterceptors = append(c.reqInterceptors, NewRequestIDInterceptor())
	}
}
