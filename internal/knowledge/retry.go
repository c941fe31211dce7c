package knowledge

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
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

type retryGenerator struct {
	next       Generator
	maxRetries int
	backoff    func(attempt int) time.Duration
}

// WithRetry retries RetryableError failures up to maxRetries extra times,
// sleeping Backoff(attempt) between tries. Other errors return at once.
func WithRetry(g Generator, maxRetries int) Generator {
	return &retryGenerator{next: g, maxRetries: maxRetries, backoff: Backoff}
}

func (r *retryGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(r.backoff(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}

		text, err := r.next.Generate(ctx, p)
		if err == nil {
			return text, nil
		}
		if !IsRetryable(err) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}
