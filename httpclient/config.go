package httpclient

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/restkit/resilience"
)

const (
	defaultTimeout           = 30 * time.Second
	defaultMaxRefreshRetries = 1
	defaultMaxBodyLog        = 2048
)

// Config configures the HTTP client.
type Config struct {
	// BaseURL is the base URL prepended to all request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout is the default per-call timeout. It covers the transport
	// exchange only, not retry backoff. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are default headers applied to all requests. Request headers
	// override them.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// MaxRefreshRetries bounds how many times a call is reissued after a
	// successful credential refresh. Defaults to 1; exceeding the bound
	// surfaces an unauthorized error instead of looping.
	MaxRefreshRetries int `yaml:"max_refresh_retries" mapstructure:"max_refresh_retries" validate:"gte=0"`

	// Logging is the default logging policy. Requests can override it.
	Logging LoggingPolicy `yaml:"logging" mapstructure:"logging"`

	// Retry is the retry policy applied to every call. The zero value
	// disables retry.
	Retry resilience.Policy `yaml:"-" mapstructure:"-"`

	// CircuitBreaker configures an optional circuit breaker. Nil disables it.
	CircuitBreaker *resilience.BreakerConfig `yaml:"-" mapstructure:"-"`

	// RateLimiter configures an optional rate limiter. Nil disables it.
	RateLimiter *resilience.LimiterConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRefreshRetries == 0 {
		c.MaxRefreshRetries = defaultMaxRefreshRetries
	}
	if c.Logging.MaxBodyLog <= 0 {
		c.Logging.MaxBodyLog = defaultMaxBodyLog
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	if err := structValidator().Struct(c); err != nil {
		return fmt.Errorf("httpclient: invalid config: %w", err)
	}
	return nil
}

// DefaultRetryPolicy returns the retry policy used by most hosts: three
// exponential retries starting at 200ms.
func DefaultRetryPolicy() resilience.Policy {
	return resilience.Exponential(3, 200*time.Millisecond)
}
