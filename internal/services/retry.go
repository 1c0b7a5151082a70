package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Retrier runs an operation up to a fixed number of attempts with exponential
// backoff and jitter between attempts.
type Retrier struct {
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewRetrier(attempts int, baseDelay time.Duration) *Retrier {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrier{
		attempts:  attempts,
		baseDelay: baseDelay,
		maxDelay:  baseDelay * 16,
		sleep:     sleepContext,
	}
}

// Do calls fn until it succeeds, returns an error retryable rejects, or the
// attempts run out. The last error is wrapped so errors.Is still matches it.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error, retryable func(error) bool) error {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
				return err
			}
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", r.attempts, lastErr)
}

// backoff is base * 2^(attempt-1) with +-25% jitter, capped at maxDelay.
func (r *Retrier) backoff(attempt int) time.Duration {
	d := r.baseDelay << (attempt - 1)
	if d <= 0 || d > r.maxDelay {
		d = r.maxDelay
	}
	if quarter := int64(d / 4); quarter > 0 {
		d += time.Duration(rand.Int63n(2*quarter+1) - quarter)
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
