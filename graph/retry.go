package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// NodeMiddleware wraps the function of a node. Middleware listed first in
// RunnerConfig.Middleware is the outermost.
type NodeMiddleware func(nodeName string, next NodeFunc) NodeFunc

// OnlyNodes applies mw to the named nodes and leaves the others untouched.
func OnlyNodes(mw NodeMiddleware, names ...string) NodeMiddleware {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(nodeName string, next NodeFunc) NodeFunc {
		if !set[nodeName] {
			return next
		}
		return mw(nodeName, next)
	}
}

func isInterrupt(err error) bool {
	var ni *NodeInterrupt
	return errors.As(err, &ni)
}

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

// WithRetry re-runs a failing node with exponential backoff. Interrupts and
// context cancellation are never retried.
func WithRetry(config *RetryConfig) NodeMiddleware {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return func(nodeName string, next NodeFunc) NodeFunc {
		return func(ctx context.Context, state State) (Command, error) {
			var lastErr error
			delay := config.InitialDelay

			for attempt := 1; attempt <= max(config.MaxAttempts, 1); attempt++ {
				// Check context cancellation
				select {
				case <-ctx.Done():
					return Command{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
				default:
				}

				cmd, err := next(ctx, state)
				if err == nil {
					return cmd, nil
				}
				if isInterrupt(err) || errors.Is(err, context.Canceled) {
					return Command{}, err
				}

				lastErr = err

				if config.RetryableErrors != nil && !config.RetryableErrors(err) {
					return Command{}, fmt.Errorf("non-retryable error in %s: %w", nodeName, err)
				}

				// Don't sleep after the last attempt
				if attempt < config.MaxAttempts {
					select {
					case <-time.After(delay):
						delay = time.Duration(float64(delay) * config.BackoffFactor)
						if config.MaxDelay > 0 {
							delay = min(delay, config.MaxDelay)
						}
					case <-ctx.Done():
						return Command{}, fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
					}
				}
			}

			return Command{}, fmt.Errorf("max retries (%d) exceeded for %s: %w",
				config.MaxAttempts, nodeName, lastErr)
		}
	}
}

// WithTimeout fails a node that runs longer than timeout. The node's context
// is cancelled when the deadline passes.
func WithTimeout(timeout time.Duration) NodeMiddleware {
	return func(nodeName string, next NodeFunc) NodeFunc {
		return func(ctx context.Context, state State) (Command, error) {
			timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				cmd Command
				err error
			}
			resultChan := make(chan result, 1)

			go func() {
				cmd, err := next(timeoutCtx, state)
				resultChan <- result{cmd: cmd, err: err}
			}()

			select {
			case res := <-resultChan:
				return res.cmd, res.err
			case <-timeoutCtx.Done():
				if ctx.Err() != nil {
					return Command{}, ctx.Err()
				}
				return Command{}, fmt.Errorf("node %s timed out after %v: %w", nodeName, timeout, context.DeadlineExceeded)
			}
		}
	}
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

// ErrCircuitOpen is returned (wrapped) while a node's circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

type circuitBreaker struct {
	mu              sync.Mutex
	config          CircuitBreakerConfig
	state           CircuitBreakerState
	failures        int
	successes       int
	lastFailureTime time.Time
	halfOpenCalls   int
	now             func() time.Time
}

func (cb *circuitBreaker) allow(nodeName string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) <= cb.config.Timeout {
			return fmt.Errorf("%w for %s", ErrCircuitOpen, nodeName)
		}
		cb.state = CircuitHalfOpen
		cb.halfOpenCalls = 0
		cb.successes = 0
		fallthrough
	case CircuitHalfOpen:
		if cb.halfOpenCalls >= max(cb.config.HalfOpenMaxCalls, 1) {
			return fmt.Errorf("%w for %s: half-open limit reached", ErrCircuitOpen, nodeName)
		}
		cb.halfOpenCalls++
	}
	return nil
}

func (cb *circuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.successes = 0
		cb.lastFailureTime = cb.now()
		if cb.state == CircuitHalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.state = CircuitOpen
		}
		return
	}

	cb.successes++
	cb.failures = 0
	if cb.state == CircuitHalfOpen && cb.successes >= cb.config.SuccessThreshold {
		cb.state = CircuitClosed
	}
	if cb.state == CircuitHalfOpen {
		cb.halfOpenCalls--
	}
}

func (cb *circuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitHalfOpen && cb.halfOpenCalls > 0 {
		cb.halfOpenCalls--
	}
}

// WithCircuitBreaker keeps one breaker per node. After FailureThreshold
// consecutive failures the node fails fast with ErrCircuitOpen until Timeout
// has passed. Interrupts count as neither success nor failure.
func WithCircuitBreaker(config CircuitBreakerConfig) NodeMiddleware {
	return func(nodeName string, next NodeFunc) NodeFunc {
		cb := &circuitBreaker{config: config, state: CircuitClosed, now: time.Now}
		return func(ctx context.Context, state State) (Command, error) {
			if err := cb.allow(nodeName); err != nil {
				return Command{}, err
			}
			cmd, err := next(ctx, state)
			if isInterrupt(err) {
				cb.release()
				return cmd, err
			}
			cb.record(err)
			return cmd, err
		}
	}
}
