package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/patchgest/internal/fetch"
)

const MaxRetries = 3

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *fetch.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// withRetry calls fn until it succeeds, fails permanently, or MaxRetries
// attempts are used up.
func withRetry[T any](ctx context.Context, backoff func(int) time.Duration, onRetry func(int, error), fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for attempt := range MaxRetries {
		out, err = fn()
		if err == nil || !IsRetryable(err) || attempt == MaxRetries-1 {
			return out, err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
	return out, err
}
