// Package retry polls an operation with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryableError marks an error as worth another attempt.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError wraps err as retryable. A nil err stays nil.
func NewRetryableError(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err, or an error it wraps, is a RetryableError.
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}

// Config holds retry configuration
type Config struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// JitterFactor spreads each delay by up to this fraction in both
	// directions. Zero disables jitter.
	JitterFactor float64

	// RetryIf decides whether an error is retried. Nil retries only
	// RetryableError values.
	RetryIf func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig suits polling an instance that is still booting.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   10,
		InitialDelay: 2 * time.Second,
		MaxDelay:     20 * time.Second,
		Multiplier:   1.5,
		JitterFactor: 0.2,
	}
}

// Do calls fn until it succeeds, returns an error that should not be
// retried, the retries run out or ctx is done.
func Do[T any](ctx context.Context, config Config, fn func(context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
	)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return result, fmt.Errorf("context cancelled after %d attempts: %w (last error: %v)", attempt, err, lastErr)
			}
			return result, err
		}

		var err error
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !config.shouldRetry(err) {
			return result, err
		}
		if attempt >= config.MaxRetries {
			break
		}

		delay := config.delay(attempt, rng)
		if config.OnRetry != nil {
			config.OnRetry(attempt+1, err, delay)
		}

		select {
		case <-ctx.Done():
			return result, fmt.Errorf("context cancelled during retry wait: %w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(delay):
		}
	}

	return result, fmt.Errorf("max retries (%d) exceeded: %w", config.MaxRetries, lastErr)
}

func (c Config) shouldRetry(err error) bool {
	if c.RetryIf != nil {
		return c.RetryIf(err)
	}
	return IsRetryable(err)
}

func (c Config) delay(attempt int, rng *rand.Rand) time.Duration {
	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if c.JitterFactor > 0 {
		delay += delay * c.JitterFactor * (rng.Float64()*2 - 1)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
