// File: internal/services/resilience/retry.go
package resilience

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryConfig defines exponential backoff behavior.
type RetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	AttemptTimeout time.Duration // per attempt; 0 disables
}

// DefaultRetryConfig provides sensible defaults
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2,
		AttemptTimeout: 10 * time.Second,
	}
}

// Operation is one outbound call.
type Operation func(ctx context.Context) error

// Result summarises an execution. Attempts is 0 when the breaker refused the call.
type Result struct {
	Success     bool
	Attempts    int
	Err         error
	CircuitOpen bool
}

// Executor runs operations with retries, optionally behind a CircuitBreaker.
type Executor struct {
	config  RetryConfig
	breaker *CircuitBreaker
	logger  Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewExecutor wires an executor. breaker may be nil.
func NewExecutor(config RetryConfig, breaker *CircuitBreaker, logger Logger) *Executor {
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Executor{
		config:  config,
		breaker: breaker,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Breaker returns the attached breaker, or nil.
func (e *Executor) Breaker() *CircuitBreaker {
	return e.breaker
}

// CalculateBackoffDelay returns min(initial * multiplier^(attempt-1), maxDelay).
// Attempts are numbered from 1.
func (e *Executor) CalculateBackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(e.config.InitialDelay) * math.Pow(e.config.Multiplier, float64(attempt-1))
	if e.config.MaxDelay > 0 && (delay > float64(e.config.MaxDelay) || math.IsInf(delay, 1)) {
		return e.config.MaxDelay
	}
	if delay > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// RetryWithBackoff runs op up to maxRetries+1 times. It stops early on success,
// on a non-retryable error or when ctx is done.
func (e *Executor) RetryWithBackoff(ctx context.Context, op Operation, maxRetries int) Result {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		err := e.runAttempt(ctx, op)
		if err == nil {
			if attempt > 1 {
				e.logger.Info("operation succeeded after retry", "attempts", attempt)
			}
			return Result{Success: true, Attempts: attempt}
		}
		lastErr = err

		if ctx.Err() != nil {
			return Result{Attempts: attempt, Err: lastErr}
		}
		if !IsRetryable(err) {
			e.logger.Warn("operation failed with non-retryable error",
				"attempt", attempt,
				"category", string(CategoryOf(err)),
				"error", err)
			return Result{Attempts: attempt, Err: lastErr}
		}
		if attempt == maxRetries+1 {
			break
		}

		delay := e.CalculateBackoffDelay(attempt)
		e.logger.Warn("operation failed, retrying",
			"attempt", attempt,
			"max_retries", maxRetries,
			"delay", delay.String(),
			"error", err)
		if err := e.sleep(ctx, delay); err != nil {
			return Result{Attempts: attempt, Err: lastErr}
		}
	}

	e.logger.Error("operation failed after all retries", "attempts", maxRetries+1, "error", lastErr)
	return Result{Attempts: maxRetries + 1, Err: lastErr}
}

// ExecuteOption tweaks a single ExecuteWithProtection call.
type ExecuteOption func(*executeOptions)

type executeOptions struct {
	skipRecording bool
}

// WithoutBreakerRecording leaves the breaker counters untouched for this call.
func WithoutBreakerRecording() ExecuteOption {
	return func(o *executeOptions) { o.skipRecording = true }
}

// ExecuteWithProtection consults the breaker, runs the retry loop and reports
// the outcome back to the breaker. An open breaker short-circuits with zero attempts.
func (e *Executor) ExecuteWithProtection(ctx context.Context, op Operation, opts ...ExecuteOption) Result {
	var options executeOptions
	for _, opt := range opts {
		opt(&options)
	}

	if e.breaker != nil && !e.breaker.CanAttempt() {
		e.logger.Warn("call rejected by open circuit", "service", e.breaker.Name())
		return Result{Attempts: 0, Err: ErrCircuitOpen, CircuitOpen: true}
	}

	result := e.RetryWithBackoff(ctx, op, e.config.MaxRetries)
	if e.breaker == nil || options.skipRecording {
		return result
	}

	switch {
	case result.Success:
		e.breaker.RecordSuccess()
	case errors.Is(result.Err, context.Canceled):
		// caller gave up; no verdict on the service
		e.breaker.releaseProbe()
	case IsRetryable(result.Err):
		e.breaker.RecordFailure()
	default:
		// the service answered and refused the request itself
		e.breaker.RecordSuccess()
	}
	return result
}

func (e *Executor) runAttempt(ctx context.Context, op Operation) error {
	if e.config.AttemptTimeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, e.config.AttemptTimeout)
	defer cancel()
	return op(attemptCtx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
