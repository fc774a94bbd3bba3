package retry

import (
	"context"
	"errors"
	"time"
)

type stopError struct {
	err error
}

func (e *stopError) Error() string { return e.err.Error() }
func (e *stopError) Unwrap() error { return e.err }

// Stop marks err as permanent: DoWithRetry returns it (unwrapped) without
// further attempts.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &stopError{err: err}
}

// DoWithRetry executes fn up to attempts times with exponential backoff.
// It stops early if the context is canceled or fn returns a Stop error.
// A zero baseDelay retries immediately.
func DoWithRetry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err = fn(); err == nil {
			return nil
		}

		var stop *stopError
		if errors.As(err, &stop) {
			return stop.err
		}

		if i == attempts-1 {
			break
		}

		if delay > 0 {
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
