package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docintel/internal/pathstore"
)

// MaxRetries bounds the attempts for one result-store write.
const MaxRetries = 3

const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 10 * time.Second
)

// retryDelay is replaced in tests.
var retryDelay = Backoff

// IsRetryable reports whether err is a store failure that may succeed on a
// later attempt (429 or 5xx).
func IsRetryable(err error) bool {
	var retryErr *pathstore.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns the wait before retry n (0-indexed): backoffBase doubled
// per attempt, capped at backoffCap, plus up to 50% jitter.
func Backoff(attempt int) time.Duration {
	d := backoffBase << attempt
	if d <= 0 || d > backoffCap {
		d = backoffCap
	}
	return d + rand.N(d/2+1)
}

// withRetry calls fn until it succeeds, fails with a non-retryable error,
// or MaxRetries attempts are used up.
func withRetry(ctx context.Context, log *slog.Logger, key string, fn func() error) error {
	var err error
	for attempt := range MaxRetries {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		log.Warn("retryable store error", "key", key, "attempt", attempt+1, "error", err)
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(retryDelay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
