package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks an error as transient so that [Retry] attempts the
// operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is wrapped in a RetryableError.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Retry executes fn up to attempts times, doubling delay after each failed
// attempt. Errors not wrapped in RetryableError are returned immediately.
// Returns the last error if all attempts fail, or ctx.Err() if cancelled.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// RetryWithBackoff calls [Retry] with DefaultAttempts and DefaultDelay.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, DefaultAttempts, DefaultDelay, fn)
}
