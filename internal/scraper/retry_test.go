package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/go-scripts/adscan/internal/browser"
)

func TestRetryPolicyDo(t *testing.T) {
	transient := &browser.NavigationError{URL: "https://example.com", Err: errors.New("timeout")}
	permanent := errors.New("malformed input")

	tests := []struct {
		name         string
		failures     []error
		wantAttempts int
		wantErr      bool
	}{
		{
			name:         "first attempt succeeds",
			failures:     []error{nil},
			wantAttempts: 1,
		},
		{
			name:         "transient failure then success",
			failures:     []error{transient, nil},
			wantAttempts: 2,
		},
		{
			name:         "transient failures exhaust attempts",
			failures:     []error{transient, transient, transient},
			wantAttempts: 3,
			wantErr:      true,
		},
		{
			name:         "permanent failure is not retried",
			failures:     []error{permanent, nil},
			wantAttempts: 1,
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := RetryPolicy{
				Attempts:  3,
				BaseDelay: time.Millisecond,
				MaxDelay:  2 * time.Millisecond,
				Retryable: browser.IsTransient,
			}

			attempts := 0
			err := policy.Do(context.Background(), func(context.Context) error {
				result := tt.failures[attempts]
				attempts++
				return result
			})

			assert.Equal(t, tt.wantAttempts, attempts)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetryPolicySurfacesLastFailure(t *testing.T) {
	lastErr := &browser.NavigationError{URL: "https://example.com", Err: errors.New("third timeout")}

	policy := RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond, Retryable: browser.IsTransient}
	attempts := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts == 3 {
			return lastErr
		}
		return &browser.NavigationError{URL: "https://example.com", Err: errors.New("earlier timeout")}
	})

	assert.ErrorIs(t, err, lastErr)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryPolicyHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := RetryPolicy{Attempts: 3, BaseDelay: time.Minute, Retryable: func(error) bool { return true }}
	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, func(context.Context) error {
			attempts++
			return errors.New("keep retrying")
		})
	}()

	// Let the first attempt fail, then cancel during the backoff wait.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestRetryPolicyBackoffClamp(t *testing.T) {
	policy := RetryPolicy{Attempts: 5, BaseDelay: 4 * time.Second, MaxDelay: 10 * time.Second}

	assert.Equal(t, 4*time.Second, policy.backoff(1))
	assert.Equal(t, 8*time.Second, policy.backoff(2))
	assert.Equal(t, 10*time.Second, policy.backoff(3), "third wait is clamped to the ceiling")
	assert.Equal(t, 10*time.Second, policy.backoff(4))
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.Equal(t, 3, policy.Attempts)
	assert.Equal(t, 4*time.Second, policy.BaseDelay)
	assert.Equal(t, 10*time.Second, policy.MaxDelay)
	assert.True(t, policy.Retryable(&browser.SessionError{Op: "content", Err: errors.New("lost")}))
	assert.False(t, policy.Retryable(errors.New("plain")))
}
