// Package resilience guards outbound requests using fortify.
package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/querykit/domain/transport"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
)

// ErrRateLimited is returned when the rate limiter rejects a request.
var ErrRateLimited = errors.New("rate limit exceeded")

// rateLimitKey scopes all requests of one executor to a single bucket.
const rateLimitKey = "global"

// Executor wraps a transport with circuit breaker, retry, bulkhead, and
// rate limit patterns. Mechanisms left at their zero configuration are
// skipped, so a zero ExecutorConfig yields a plain passthrough.
type Executor struct {
	next     transport.Transport
	bulkhead bulkhead.Bulkhead[[]byte]
	breaker  circuitbreaker.CircuitBreaker[[]byte]
	retry    retry.Retry[[]byte]
	limiter  ratelimit.RateLimiter
	timeout  time.Duration
	wait     bool
}

var _ transport.Transport = (*Executor)(nil)

// ExecutorConfig configures the resilient executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent requests. Zero disables the bulkhead.
	MaxConcurrent int

	// CircuitBreakerThreshold is the number of consecutive failures before
	// opening. Zero disables the circuit breaker.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// RetryMaxAttempts is the attempt budget for idempotent requests.
	// Values below two disable retry.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between retries.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// DefaultTimeout bounds each guarded request. Zero leaves requests
	// bounded only by the caller's context.
	DefaultTimeout time.Duration

	// Rate is the number of requests allowed per second. Zero disables
	// rate limiting.
	Rate int

	// Burst is the bucket capacity for short spikes. Zero defaults to Rate.
	Burst int

	// RateLimitWait makes throttled requests wait for capacity instead of
	// failing fast with ErrRateLimited.
	RateLimitWait bool
}

// DefaultExecutorConfig returns a configuration with sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:           10,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        3,
		RetryInitialDelay:       100 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		DefaultTimeout:          30 * time.Second,
	}
}

// NewExecutor wraps next with the patterns enabled in config.
func NewExecutor(next transport.Transport, config ExecutorConfig) *Executor {
	e := &Executor{
		next:    next,
		timeout: config.DefaultTimeout,
		wait:    config.RateLimitWait,
	}

	if config.MaxConcurrent > 0 {
		e.bulkhead = bulkhead.New[[]byte](bulkhead.Config{
			MaxConcurrent: config.MaxConcurrent,
		})
	}

	if config.CircuitBreakerThreshold > 0 {
		threshold := uint32(config.CircuitBreakerThreshold) // #nosec G115 -- bounds checked above
		halfOpen := uint32(1)
		if config.MaxConcurrent > 0 {
			halfOpen = uint32(config.MaxConcurrent) // #nosec G115 -- bounds checked above
		}
		e.breaker = circuitbreaker.New[[]byte](circuitbreaker.Config{
			MaxRequests: halfOpen,
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		})
	}

	if config.RetryMaxAttempts > 1 {
		e.retry = retry.New[[]byte](retry.Config{
			MaxAttempts:        config.RetryMaxAttempts,
			InitialDelay:       config.RetryInitialDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         config.RetryBackoffMultiplier,
			NonRetryableErrors: []error{errNonRetryable},
		})
	}

	if config.Rate > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = config.Rate
		}
		e.limiter = ratelimit.New(&ratelimit.Config{
			Rate:  config.Rate,
			Burst: burst,
		})
	}

	return e
}

// NewDefaultExecutor wraps next with the default configuration.
func NewDefaultExecutor(next transport.Transport) *Executor {
	return NewExecutor(next, DefaultExecutorConfig())
}

// Request performs a guarded round trip against the wrapped transport.
// Composition order: Rate Limit → Bulkhead → Timeout → Circuit Breaker → Retry (for idempotent)
//
// Retry applies only to GET and HEAD requests, and only to failures that
// can clear up on a later attempt. Client errors and payload encoding
// failures are returned immediately.
func (e *Executor) Request(ctx context.Context, method, path string, opts transport.Options) ([]byte, error) {
	// Apply rate limit before consuming a bulkhead slot
	if e.limiter != nil {
		if err := e.throttle(ctx); err != nil {
			return nil, err
		}
	}

	// Apply bulkhead for concurrency control
	if e.bulkhead != nil {
		return e.bulkhead.Execute(ctx, func(ctx context.Context) ([]byte, error) {
			return e.send(ctx, method, path, opts)
		})
	}
	return e.send(ctx, method, path, opts)
}

func (e *Executor) throttle(ctx context.Context) error {
	if e.wait {
		return e.limiter.Wait(ctx, rateLimitKey)
	}
	if !e.limiter.Allow(ctx, rateLimitKey) {
		logging.Warn().
			Add(logging.Component("resilience")).
			Msg("request rejected by rate limiter")
		return ErrRateLimited
	}
	return nil
}

func (e *Executor) send(ctx context.Context, method, path string, opts transport.Options) ([]byte, error) {
	// Apply timeout
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// Apply circuit breaker
	if e.breaker != nil {
		return e.breaker.Execute(ctx, func(ctx context.Context) ([]byte, error) {
			return e.attempt(ctx, method, path, opts)
		})
	}
	return e.attempt(ctx, method, path, opts)
}

func (e *Executor) attempt(ctx context.Context, method, path string, opts transport.Options) ([]byte, error) {
	// Apply retry only for idempotent requests
	if e.retry != nil && isIdempotent(method) {
		body, err := e.retry.Do(ctx, func(ctx context.Context) ([]byte, error) {
			body, err := e.next.Request(ctx, method, path, opts)
			if err != nil && !shouldRetry(err) {
				return nil, &permanentError{err: err}
			}
			return body, err
		})
		return body, unwrapPermanent(err)
	}
	return e.next.Request(ctx, method, path, opts)
}

// CircuitBreakerState returns the current state of the circuit breaker.
// Without a configured breaker the circuit reads as closed.
func (e *Executor) CircuitBreakerState() circuitbreaker.State {
	if e.breaker == nil {
		var closed circuitbreaker.State
		return closed
	}
	return e.breaker.State()
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead:
		return true
	default:
		return false
	}
}

// shouldRetry reports whether a later attempt can succeed. Network
// failures and 5xx responses are transient; client errors and
// serialization failures repeat on replay.
func shouldRetry(err error) bool {
	if transport.IsNetwork(err) {
		return true
	}
	if transport.IsRequest(err) {
		return transport.StatusCode(err) >= http.StatusInternalServerError
	}
	return false
}

// errNonRetryable marks failures the retry policy must not replay.
var errNonRetryable = errors.New("non-retryable")

// permanentError stops the retry loop while keeping the original error
// chain visible to callers.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }

func (p *permanentError) Unwrap() []error { return []error{errNonRetryable, p.err} }

func unwrapPermanent(err error) error {
	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return err
}
