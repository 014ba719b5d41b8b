package api

import (
	"sync"
	"time"
)

// RateLimiter admits at most limit requests per key within the trailing
// window. The window slides with "now" rather than fixed epochs, so a burst
// is forgiven exactly one window after it happened.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	history map[string][]time.Time

	now func() time.Time
}

// NewRateLimiter returns a limiter allowing limit admissions per key per
// window. Keys are created lazily on first use and only ever hold timestamps
// younger than the window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether a request under key fits into the window right now,
// recording its timestamp when admitted. Rejected requests are not recorded,
// so they do not extend the key's penalty.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.history[key][:0]
	for _, at := range l.history[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) >= l.limit {
		l.history[key] = kept
		return false
	}
	l.history[key] = append(kept, now)
	return true
}
