package source

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/matzehuels/schemaplot/pkg/errors"
)

// Connection attempts made before a database source gives up. A freshly
// started database container often refuses the first ping.
const (
	pingAttempts = 3
	pingDelay    = 500 * time.Millisecond
)

// retry runs fn up to attempts times, doubling delay after each failure.
// Only ErrCodeSource errors are retried; anything else, including a
// canceled context, is returned at once.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
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

func retryable(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, errors.ErrCodeSource)
}

// ping verifies a connection with retries.
func ping(ctx context.Context, what string, fn func(context.Context) error) error {
	return retry(ctx, pingAttempts, pingDelay, func() error {
		if err := fn(ctx); err != nil {
			return queryError(err, "ping %s", what)
		}
		return nil
	})
}
