package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-scripts/adscan/internal/browser"
)

// RetryPolicy reruns an operation on transient failures with exponential
// backoff between attempts. Failures outside the retryable set propagate
// immediately; exhausting all attempts surfaces the last failure.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Retryable func(error) bool
}

// DefaultRetryPolicy is the standard browser retry: three attempts total,
// backoff doubling from a four second floor to a ten second ceiling, and
// only transient driver failures retried.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  3,
		BaseDelay: 4 * time.Second,
		MaxDelay:  10 * time.Second,
		Retryable: browser.IsTransient,
	}
}

// Do runs op until it succeeds, fails non-transiently, runs out of attempts
// or the context ends.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = func(error) bool { return true }
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 1 {
			select {
			case <-time.After(p.backoff(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// backoff doubles from the base delay per completed attempt, clamped to the
// configured ceiling.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay * time.Duration(1<<uint(attempt-1))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
