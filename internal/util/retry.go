package util

import (
	"context"
	"errors"
	"time"
)

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Retry returns the wrapped
// error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn up to maxAttempts times with exponential backoff starting at
// baseDelay. It returns nil on the first success, the unwrapped error of a
// Permanent failure, or the last error once attempts run out. Context
// cancellation is honoured between attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	delay := baseDelay
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return err
}
