package scraper

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	// Register decoders for the creative formats the transparency page serves.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/go-scripts/adscan/internal/ocr"
)

const (
	defaultFetchTimeout  = 10 * time.Second
	defaultMaxImageBytes = 8 << 20
)

// TextExtractor fetches image creatives and runs them through OCR. Every
// failure mode degrades to an empty string: one unreadable creative must
// never fail its domain.
type TextExtractor struct {
	client   *http.Client
	engine   ocr.Engine
	limiter  *rate.Limiter
	timeout  time.Duration
	maxBytes int64
}

// TextExtractorOptions tunes fetch behavior; zero values fall back to the
// defaults above. A zero FetchRate disables pacing.
type TextExtractorOptions struct {
	Timeout   time.Duration
	MaxBytes  int64
	FetchRate rate.Limit
	Burst     int
}

func NewTextExtractor(engine ocr.Engine, opts TextExtractorOptions) *TextExtractor {
	if engine == nil {
		engine = ocr.Noop{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxImageBytes
	}

	var limiter *rate.Limiter
	if opts.FetchRate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.FetchRate, burst)
	}

	return &TextExtractor{
		client:   &http.Client{Timeout: opts.Timeout},
		engine:   engine,
		limiter:  limiter,
		timeout:  opts.Timeout,
		maxBytes: opts.MaxBytes,
	}
}

// ExtractText returns the recognized text of the image at imageURL, or the
// empty string when fetching, decoding or recognition fails.
func (t *TextExtractor) ExtractText(ctx context.Context, imageURL string) string {
	data, err := t.fetch(ctx, imageURL)
	if err != nil {
		log.Warn("Image fetch failed", "url", imageURL, "error", err)
		return ""
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		log.Warn("Creative is not a decodable image", "url", imageURL, "error", err)
		return ""
	}

	text, err := t.engine.ExtractText(ctx, data)
	if err != nil {
		log.Warn("OCR failed", "url", imageURL, "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (t *TextExtractor) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBytes))
	if err != nil {
		return nil, err
	}
	return data, nil
}
