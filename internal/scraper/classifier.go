package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/go-scripts/adscan/internal/ads"
	"github.com/go-scripts/adscan/internal/browser"
)

// Markers the transparency page renders once its query resolves. The absence
// marker is matched case-sensitively and wins over the presence marker: the
// phrase "ads" shows up in page chrome regardless of the query outcome.
const (
	markerNoAds = "No ads found"
	markerAds   = "ads"
)

const (
	defaultMarkerWait   = 10 * time.Second
	defaultPollInterval = 500 * time.Millisecond
)

// PageClassifier decides ad presence for a loaded transparency page by
// polling the rendered document for one of the outcome markers. A page that
// shows neither marker within the wait budget classifies as Unknown, which
// is a result, not an error.
type PageClassifier struct {
	Wait     time.Duration
	Interval time.Duration
}

func (c PageClassifier) Classify(ctx context.Context, page browser.Page) (ads.AdStatus, error) {
	wait := c.Wait
	if wait <= 0 {
		wait = defaultMarkerWait
	}
	interval := c.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	deadline := time.Now().Add(wait)
	for {
		content, err := page.Content(ctx)
		if err != nil {
			return ads.StatusUnknown, err
		}
		if strings.Contains(content, markerNoAds) {
			return ads.StatusAbsent, nil
		}
		if strings.Contains(strings.ToLower(content), markerAds) {
			return ads.StatusPresent, nil
		}
		if time.Now().After(deadline) {
			return ads.StatusUnknown, nil
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ads.StatusUnknown, ctx.Err()
		}
	}
}
