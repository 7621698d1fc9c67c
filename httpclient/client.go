package httpclient

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/resilience"
)

const tracerName = "github.com/kbukum/restkit/httpclient"

// Client executes requests through the full pipeline: build, intercept
// request, transport under the retry policy, intercept response (catching
// the refresh-and-retry signal), classify, and return the envelope. Safe
// for concurrent use; the only long-lived shared state is the retry
// policy, the resilience components, and the interceptor chains.
type Client struct {
	transport Transport
	config    Config
	breaker   *resilience.Breaker
	limiter   *resilience.Limiter

	reqInterceptors  []RequestInterceptor
	respInterceptors []ResponseInterceptor

	log    *logger.Logger
	tracer trace.Tracer
}

// New creates a client with the given configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: cfg,
		log:    logger.Nop(),
		tracer: otel.Tracer(tracerName),
	}
	if cfg.CircuitBreaker != nil {
		c.breaker = resilience.NewBreaker(*cfg.CircuitBreaker)
	}
	if cfg.RateLimiter != nil {
		c.limiter = resilience.NewLimiter(*cfg.RateLimiter)
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = NewHTTPTransport(cfg.BaseURL, nil)
	}
	return c, nil
}

// Do executes a request and returns the classified response envelope.
// Callers receive exactly one typed *Error per failed call.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	return c.do(ctx, req, 0)
}

// do runs one pass of the pipeline. refreshAttempt counts how many times
// this call has already been reissued after a credential refresh; the
// bound keeps a server that answers 401 regardless of credentials from
// causing unbounded recursion.
func (c *Client) do(ctx context.Context, req Request, refreshAttempt int) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "httpclient "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		))
	defer span.End()

	// The original descriptor is kept for reissue after a refresh, so the
	// request interceptors run again and inject the fresh credential.
	original := req
	logPolicy := c.logPolicy(req)

	merged := c.applyConfigDefaults(req)
	intercepted, err := applyRequestInterceptors(ctx, c.reqInterceptors, merged)
	if err != nil {
		return nil, c.fail(span, logPolicy, req, normalizeError(err))
	}

	if logPolicy.Enabled {
		c.log.Debug("request started", map[string]any{
			logger.FieldMethod: intercepted.Method,
			logger.FieldPath:   intercepted.Path,
		})
	}

	attempts := 0
	resp, err := resilience.Do(ctx, c.config.Retry, IsRetryable, func() (*Response, error) {
		attempts++
		return c.attempt(ctx, intercepted)
	})
	if err != nil {
		return nil, c.fail(span, logPolicy, req, normalizeError(err))
	}

	body, err := applyResponseInterceptors(ctx, c.respInterceptors, resp.StatusCode, resp.Headers, resp.Body)
	if err != nil {
		if errors.Is(err, ErrCredentialRefreshed) {
			if refreshAttempt >= c.config.MaxRefreshRetries {
				return nil, c.fail(span, logPolicy, req, NewUnauthorizedError(resp.Body))
			}
			span.AddEvent("credential refreshed, reissuing request")
			return c.do(ctx, original, refreshAttempt+1)
		}
		return nil, c.fail(span, logPolicy, req, normalizeError(err))
	}
	resp.Body = body

	if classErr := Classify(resp.StatusCode, resp.Headers, resp.Body); classErr != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		// The envelope is still returned so callers can inspect the raw
		// failure body alongside the typed error.
		return resp, c.fail(span, logPolicy, req, classErr)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	span.SetStatus(otelcodes.Ok, "")
	if logPolicy.Enabled {
		fields := map[string]any{
			logger.FieldMethod:   req.Method,
			logger.FieldPath:     req.Path,
			logger.FieldStatus:   resp.StatusCode,
			logger.FieldAttempt:  attempts,
			logger.FieldDuration: resp.Duration.Milliseconds(),
		}
		c.log.Info("request complete", fields)
		if logPolicy.LogBody {
			c.log.Debug("response body", map[string]any{"body": truncate(resp.Body, logPolicy.MaxBodyLog)})
		}
	}
	return resp, nil
}

// attempt performs one transport exchange: rate limiter, circuit breaker,
// then the transport call under the per-call timeout. A 5xx status is
// classified here so the retry executor can see it as a retryable server
// fault; all other statuses flow back as responses for the interceptor
// chain and final classification.
func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, normalizeError(err)
		}
	}

	if c.breaker != nil && !c.breaker.Allow() {
		return nil, &Error{Code: ErrCodeUnknown, Message: "circuit breaker open", Err: resilience.ErrBreakerOpen}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.transport.Perform(attemptCtx, req)

	var serverFault *Error
	if err == nil && resp.StatusCode >= 500 {
		serverFault = NewServerFaultError(resp.StatusCode, extractMessage(resp.Body), resp.Body)
	}
	if c.breaker != nil {
		switch {
		case err != nil:
			c.breaker.Record(err)
		case serverFault != nil:
			c.breaker.Record(serverFault)
		default:
			c.breaker.Record(nil)
		}
	}

	if err != nil {
		return nil, err
	}
	if serverFault != nil {
		return nil, serverFault
	}
	return resp, nil
}

// fail records the error on the span and log, and returns it.
func (c *Client) fail(span trace.Span, policy LoggingPolicy, req Request, err *Error) *Error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Code.String())
	if policy.Enabled {
		c.log.Error("request failed", err, map[string]any{
			logger.FieldMethod: req.Method,
			logger.FieldPath:   req.Path,
			"code":             err.Code.String(),
		})
	}
	return err
}

// applyConfigDefaults merges config-level defaults into the request, with
// request values winning.
func (c *Client) applyConfigDefaults(req Request) Request {
	if len(c.config.Headers) == 0 {
		return req
	}
	out := req
	for k, v := range c.config.Headers {
		if _, ok := out.Header(k); !ok {
			out = out.WithHeader(k, v)
		}
	}
	return out
}

// logPolicy resolves the effective logging policy for a request.
func (c *Client) logPolicy(req Request) LoggingPolicy {
	if req.Logging != nil {
		p := *req.Logging
		if p.MaxBodyLog <= 0 {
			p.MaxBodyLog = c.config.Logging.MaxBodyLog
		}
		return p
	}
	return c.config.Logging
}

// normalizeError folds any failure into the taxonomy: taxonomy errors pass
// through, retry exhaustion and context errors get their dedicated codes,
// everything else is unknown.
func normalizeError(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		var exhausted *resilience.ExhaustedError
		if errors.As(err, &exhausted) {
			// Exhaustion wraps the last taxonomy error; surface the
			// dedicated code so callers can tell "gave up after retrying"
			// from "failed once".
			return NewRetryExhaustedError(exhausted.Attempts, exhausted.Last)
		}
		return typed
	}
	var exhausted *resilience.ExhaustedError
	if errors.As(err, &exhausted) {
		return NewRetryExhaustedError(exhausted.Attempts, exhausted.Last)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	if errors.Is(err, context.Canceled) {
		return NewCancelledError(err)
	}
	return NewUnknownError(err)
}

func truncate(body []byte, max int) string {
	if max > 0 && len(body) > max {
		return string(body[:max]) + "...(truncated)"
	}
	return string(body)
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() Config {
	return c.config
}
