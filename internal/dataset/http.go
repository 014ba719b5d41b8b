package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/adscan/internal/ads"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxRetries  = 5
	defaultBaseDelay   = 1 * time.Second
)

// HTTPSink pushes results to a remote dataset service as JSON item batches,
// retrying server-side and transport failures with exponential backoff.
type HTTPSink struct {
	client     *http.Client
	endpoint   string
	token      string
	maxRetries int
	baseDelay  time.Duration
}

func NewHTTPSink(baseURL, datasetID, token string) (*HTTPSink, error) {
	if baseURL == "" {
		return nil, errors.New("dataset endpoint is required")
	}
	if datasetID == "" {
		return nil, errors.New("dataset id is required")
	}

	return &HTTPSink{
		client:     &http.Client{Timeout: defaultHTTPTimeout},
		endpoint:   fmt.Sprintf("%s/datasets/%s/items", strings.TrimRight(baseURL, "/"), datasetID),
		token:      token,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
	}, nil
}

// Push sends the result as a one-item batch. Connection failures, 5xx and
// 429 responses are retried; other client errors fail immediately since
// resending the same payload cannot fix them.
func (s *HTTPSink) Push(ctx context.Context, result ads.DomainResult) error {
	payload, err := json.Marshal([]ads.DomainResult{result})
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			// Calculate backoff delay: baseDelay * 2^attempt with jitter
			delay := s.baseDelay * time.Duration(1<<uint(attempt-1))
			delay += time.Duration(rand.Int63n(int64(delay)/2 + 1))

			log.Debug("Backing off before dataset retry",
				"domain", result.Domain, "delay", delay, "attempt", attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("building dataset request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if s.token != "" {
			req.Header.Set("Authorization", "Bearer "+s.token)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			log.Error("Dataset push failed",
				"domain", result.Domain, "error", err, "attempt", attempt)
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return fmt.Errorf("dataset rejected push: status %d: %s", resp.StatusCode, body)
		}

		log.Error("Dataset returned non-OK status",
			"domain", result.Domain,
			"status", resp.StatusCode,
			"response", string(body),
			"attempt", attempt)
		lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	return fmt.Errorf("dataset push failed after %d attempts: %w", s.maxRetries+1, lastErr)
}
