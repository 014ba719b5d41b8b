// Package browser defines the narrow page-automation surface the scraping
// pipeline depends on, plus the headless Chrome implementation of it. The
// pipeline never talks to a concrete driver directly, which keeps domain
// processing testable without a browser process.
package browser

import (
	"context"
	"errors"
	"fmt"
)

// Page is one exclusively-owned browser tab. A domain run acquires a page,
// drives it and must Close it on every exit path.
type Page interface {
	// Navigate loads url and waits until the document body is ready.
	Navigate(ctx context.Context, url string) error
	// Content returns the serialized HTML of the current document.
	Content(ctx context.Context) (string, error)
	// ElementsHTML returns the outer HTML of every element matching the CSS
	// selector, in document order. No match is an empty slice, not an error.
	ElementsHTML(ctx context.Context, selector string) ([]string, error)
	// Close releases the tab. Safe to call more than once.
	Close() error
}

// Browser hands out pages against a shared underlying browser session.
type Browser interface {
	NewPage() (Page, error)
	Close() error
}

// NavigationError wraps a failed page load. Navigations time out or break on
// flaky networks, so these are worth retrying.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigating to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// SessionError wraps a failure in the conversation with the browser process
// itself (evaluate, content read, tab creation).
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("browser session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// IsTransient reports whether err belongs to the retryable failure set:
// navigation failures and driver-communication failures. A canceled context
// means the run is shutting down and is never retried.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var navErr *NavigationError
	var sesErr *SessionError
	return errors.As(err, &navErr) || errors.As(err, &sesErr)
}
