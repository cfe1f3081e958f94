package resilience

import (
	"time"

	"github.com/felixgeelhaar/querykit/domain/transport"
)

// Option configures the executor.
type Option func(*ExecutorConfig)

// WithMaxConcurrent sets the maximum concurrent requests.
func WithMaxConcurrent(n int) Option {
	return func(c *ExecutorConfig) {
		c.MaxConcurrent = n
	}
}

// WithCircuitBreakerThreshold sets the failure threshold for the circuit breaker.
func WithCircuitBreakerThreshold(n int) Option {
	return func(c *ExecutorConfig) {
		c.CircuitBreakerThreshold = n
	}
}

// WithCircuitBreakerTimeout sets the circuit breaker open duration.
func WithCircuitBreakerTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.CircuitBreakerTimeout = d
	}
}

// WithRetryAttempts sets the maximum retry attempts.
func WithRetryAttempts(n int) Option {
	return func(c *ExecutorConfig) {
		c.RetryMaxAttempts = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.RetryInitialDelay = d
	}
}

// WithTimeout sets the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.DefaultTimeout = d
	}
}

// WithRateLimit sets the requests-per-second rate and burst capacity.
func WithRateLimit(rate, burst int) Option {
	return func(c *ExecutorConfig) {
		c.Rate = rate
		c.Burst = burst
	}
}

// WithRateLimitWait makes throttled requests wait for capacity instead
// of failing fast.
func WithRateLimitWait() Option {
	return func(c *ExecutorConfig) {
		c.RateLimitWait = true
	}
}

// NewExecutorWithOptions wraps next with the given options applied over
// the default configuration.
func NewExecutorWithOptions(next transport.Transport, opts ...Option) *Executor {
	config := DefaultExecutorConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewExecutor(next, config)
}
