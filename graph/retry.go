package graph

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior for nodes
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors func(error) bool // Determines if an error should trigger retry
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: func(_ error) bool {
			// By default, retry all errors
			return true
		},
	}
}

// typedNodeFunc is the function shape every node on a
// ListenableStateGraphTyped[S] implements.
type typedNodeFunc[S any] func(ctx context.Context, state S) (S, error)

// RetryNode wraps a typed node function with retry logic.
type RetryNode[S any] struct {
	name   string
	fn     typedNodeFunc[S]
	config *RetryConfig
}

// NewRetryNode creates a new retry node
func NewRetryNode[S any](name string, fn typedNodeFunc[S], config *RetryConfig) *RetryNode[S] {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryNode[S]{name: name, fn: fn, config: config}
}

// Execute runs the node with retry logic
func (rn *RetryNode[S]) Execute(ctx context.Context, state S) (S, error) {
	var zero S
	var lastErr error
	delay := rn.config.InitialDelay

	for attempt := 1; attempt <= rn.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		default:
		}

		result, err := rn.fn(ctx, state)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if rn.config.RetryableErrors != nil && !rn.config.RetryableErrors(err) {
			return zero, fmt.Errorf("non-retryable error in %s: %w", rn.name, err)
		}

		// Don't sleep after the last attempt
		if attempt < rn.config.MaxAttempts {
			select {
			case <-time.After(delay):
				delay = min(time.Duration(float64(delay)*rn.config.BackoffFactor), rn.config.MaxDelay)
			case <-ctx.Done():
				return zero, fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
			}
		}
	}

	return zero, fmt.Errorf("max retries (%d) exceeded for %s: %w",
		rn.config.MaxAttempts, rn.name, lastErr)
}

// AddNodeWithRetry registers name on g, wrapping fn with retry logic.
func AddNodeWithRetry[S any](
	g *ListenableStateGraphTyped[S],
	name string,
	description string,
	fn typedNodeFunc[S],
	config *RetryConfig,
) {
	retryNode := NewRetryNode(name, fn, config)
	g.AddNode(name, description, retryNode.Execute)
}

// TimeoutNode wraps a typed node function with timeout logic.
type TimeoutNode[S any] struct {
	name    string
	fn      typedNodeFunc[S]
	timeout time.Duration
}

// NewTimeoutNode creates a new timeout node
func NewTimeoutNode[S any](name string, fn typedNodeFunc[S], timeout time.Duration) *TimeoutNode[S] {
	return &TimeoutNode[S]{name: name, fn: fn, timeout: timeout}
}

// Execute runs the node with a bound on its execution time.
func (tn *TimeoutNode[S]) Execute(ctx context.Context, state S) (S, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, tn.timeout)
	defer cancel()

	type result struct {
		value S
		err   error
	}
	resultChan := make(chan result, 1)

	go func() {
		value, err := tn.fn(timeoutCtx, state)
		resultChan <- result{value: value, err: err}
	}()

	select {
	case res := <-resultChan:
		return res.value, res.err
	case <-timeoutCtx.Done():
		var zero S
		return zero, fmt.Errorf("node %s timed out after %v", tn.name, tn.timeout)
	}
}

// AddNodeWithTimeout registers name on g, wrapping fn with a timeout.
func AddNodeWithTimeout[S any](
	g *ListenableStateGraphTyped[S],
	name string,
	description string,
	fn typedNodeFunc[S],
	timeout time.Duration,
) {
	timeoutNode := NewTimeoutNode(name, fn, timeout)
	g.AddNode(name, description, timeoutNode.Execute)
}

// CircuitBreakerConfig configures circuit breaker behavior
type CircuitBreakerConfig struct {
	FailureThreshold int           // Number of failures before opening
	SuccessThreshold int           // Number of successes before closing
	Timeout          time.Duration // Time before attempting to close
	HalfOpenMaxCalls int           // Max calls in half-open state
}

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker implements the circuit breaker pattern over a typed node.
type CircuitBreaker[S any] struct {
	name            string
	fn              typedNodeFunc[S]
	config          CircuitBreakerConfig
	state           CircuitBreakerState
	failures        int
	successes       int
	lastFailureTime time.Time
	halfOpenCalls   int
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker[S any](name string, fn typedNodeFunc[S], config CircuitBreakerConfig) *CircuitBreaker[S] {
	return &CircuitBreaker[S]{name: name, fn: fn, config: config, state: CircuitClosed}
}

// Execute runs the node with circuit breaker logic
func (cb *CircuitBreaker[S]) Execute(ctx context.Context, state S) (S, error) {
	var zero S

	switch cb.state {
	case CircuitClosed:
		// Circuit is closed, proceed normally
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) > cb.config.Timeout {
			cb.state = CircuitHalfOpen
			cb.halfOpenCalls = 0
		} else {
			return zero, fmt.Errorf("circuit breaker open for %s", cb.name)
		}
	case CircuitHalfOpen:
		if cb.halfOpenCalls >= cb.config.HalfOpenMaxCalls {
			cb.state = CircuitOpen
			return zero, fmt.Errorf("circuit breaker half-open limit reached for %s", cb.name)
		}
		cb.halfOpenCalls++
	}

	result, err := cb.fn(ctx, state)
	if err != nil {
		cb.failures++
		cb.successes = 0
		cb.lastFailureTime = time.Now()

		if cb.failures >= cb.config.FailureThreshold {
			cb.state = CircuitOpen
		}
		return zero, fmt.Errorf("circuit breaker error in %s: %w", cb.name, err)
	}

	cb.successes++
	cb.failures = 0
	if cb.state == CircuitHalfOpen && cb.successes >= cb.config.SuccessThreshold {
		cb.state = CircuitClosed
	}
	return result, nil
}

// AddNodeWithCircuitBreaker registers name on g, wrapping fn with a
// circuit breaker.
func AddNodeWithCircuitBreaker[S any](
	g *ListenableStateGraphTyped[S],
	name string,
	description string,
	fn typedNodeFunc[S],
	config CircuitBreakerConfig,
) {
	cb := NewCircuitBreaker(name, fn, config)
	g.AddNode(name, description, cb.Execute)
}

// RateLimiter implements rate limiting for a typed node.
type RateLimiter[S any] struct {
	name     string
	fn       typedNodeFunc[S]
	maxCalls int
	window   time.Duration
	calls    []time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter[S any](name string, fn typedNodeFunc[S], maxCalls int, window time.Duration) *RateLimiter[S] {
	return &RateLimiter[S]{name: name, fn: fn, maxCalls: maxCalls, window: window, calls: make([]time.Time, 0, maxCalls)}
}

// Execute runs the node with rate limiting
func (rl *RateLimiter[S]) Execute(ctx context.Context, state S) (S, error) {
	var zero S
	now := time.Now()

	validCalls := make([]time.Time, 0, rl.maxCalls)
	for _, callTime := range rl.calls {
		if now.Sub(callTime) < rl.window {
			validCalls = append(validCalls, callTime)
		}
	}
	rl.calls = validCalls

	if len(rl.calls) >= rl.maxCalls {
		oldestCall := rl.calls[0]
		waitTime := rl.window - now.Sub(oldestCall)
		return zero, fmt.Errorf("rate limit exceeded for %s, retry after %v", rl.name, waitTime)
	}

	rl.calls = append(rl.calls, now)
	return rl.fn(ctx, state)
}

// AddNodeWithRateLimit registers name on g, wrapping fn with rate limiting.
func AddNodeWithRateLimit[S any](
	g *ListenableStateGraphTyped[S],
	name string,
	description string,
	fn typedNodeFunc[S],
	maxCalls int,
	window time.Duration,
) {
	rl := NewRateLimiter(name, fn, maxCalls, window)
	g.AddNode(name, description, rl.Execute)
}

// ExponentialBackoffRetry implements exponential backoff with jitter
func ExponentialBackoffRetry(
	ctx context.Context,
	fn func() (any, error),
	maxAttempts int,
	baseDelay time.Duration,
) (any, error) {
	for attempt := range maxAttempts {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		if attempt == maxAttempts-1 {
			return nil, err
		}

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))

		//nolint:gosec // Using weak RNG for jitter is acceptable, not security-critical
		jitter := time.Duration(float64(delay) * 0.25 * (2*rand.Float64() - 1))
		delay += jitter

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("max attempts reached")
}
