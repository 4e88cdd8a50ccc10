package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"vectorsync/internal/application/common/slogger"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries    int           `json:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	Jitter        bool          `json:"jitter"`
}

// DefaultConfig returns a default retry configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// Operation represents an operation that can be retried.
type Operation func(ctx context.Context) error

// RetryableChecker classifies errors as retryable or permanent.
type RetryableChecker interface {
	IsRetryable(err error) bool
}

// retryAll treats every error as retryable.
type retryAll struct{}

func (retryAll) IsRetryable(error) bool { return true }

// Executor handles retry logic with exponential backoff.
type Executor struct {
	config  *Config
	checker RetryableChecker
}

// NewExecutor creates a retry executor that retries every error.
func NewExecutor(config *Config) *Executor {
	return NewExecutorWithChecker(config, nil)
}

// NewExecutorWithChecker creates a retry executor with custom error classification.
func NewExecutorWithChecker(config *Config, checker RetryableChecker) *Executor {
	if config == nil {
		config = DefaultConfig()
	}
	if checker == nil {
		checker = retryAll{}
	}
	return &Executor{config: config, checker: checker}
}

// Execute runs the operation, retrying retryable failures with exponential backoff.
func (e *Executor) Execute(ctx context.Context, operation Operation) error {
	var lastErr error

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := e.calculateDelay(attempt)
			slogger.Debug(ctx, "Retrying operation after delay", slogger.Fields3(
				"attempt", attempt,
				"max_retries", e.config.MaxRetries,
				"delay_ms", delay.Milliseconds(),
			))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 0 {
				slogger.Info(ctx, "Operation succeeded after retries", slogger.Fields{
					"attempt": attempt + 1,
				})
			}
			return nil
		}

		lastErr = err

		if !e.checker.IsRetryable(err) {
			slogger.Debug(ctx, "Error is not retryable", slogger.Fields2(
				"error", err.Error(),
				"attempt", attempt+1,
			))
			return err
		}

		slogger.Warn(ctx, "Operation failed, will retry", slogger.Fields3(
			"error", err.Error(),
			"attempt", attempt+1,
			"max_retries", e.config.MaxRetries,
		))
	}

	return fmt.Errorf("operation failed after %d attempts: %w", e.config.MaxRetries+1, lastErr)
}

// calculateDelay computes the backoff delay for the given attempt.
func (e *Executor) calculateDelay(attempt int) time.Duration {
	delay := float64(e.config.InitialDelay) * math.Pow(e.config.BackoffFactor, float64(attempt-1))
	if delay > float64(e.config.MaxDelay) {
		delay = float64(e.config.MaxDelay)
	}
	if e.config.Jitter {
		// Up to 25% jitter to avoid thundering herds on shared backends.
		delay += delay * 0.25 * rand.Float64() //nolint:gosec // Jitter does not need crypto randomness
	}
	return time.Duration(delay)
}
