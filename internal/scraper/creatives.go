package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/adscan/internal/ads"
	"github.com/go-scripts/adscan/internal/browser"
)

// defaultCreativeSelector matches the custom element the transparency page
// wraps each ad preview in.
const defaultCreativeSelector = "creative-preview"

// CreativeExtractor pulls ad creatives out of a page already classified as
// running ads. It waits a bounded time for the first creative container to
// render; a page with none is an empty result, pages can lag behind their
// classification.
type CreativeExtractor struct {
	Selector string
	Wait     time.Duration
	Interval time.Duration
}

func (e CreativeExtractor) Extract(ctx context.Context, page browser.Page) ([]ads.Creative, error) {
	selector := e.Selector
	if selector == "" {
		selector = defaultCreativeSelector
	}

	containers, err := e.waitForContainers(ctx, page, selector)
	if err != nil {
		return nil, err
	}
	if len(containers) == 0 {
		log.Warn("No creative containers rendered", "selector", selector)
		return nil, nil
	}

	creatives := make([]ads.Creative, 0, len(containers))
	for _, container := range containers {
		creative, ok := parseContainer(container)
		if !ok {
			continue
		}
		creatives = append(creatives, creative)
	}
	return creatives, nil
}

// waitForContainers polls the page until at least one container matches or
// the wait budget runs out. Running out is not an error.
func (e CreativeExtractor) waitForContainers(ctx context.Context, page browser.Page, selector string) ([]string, error) {
	wait := e.Wait
	if wait <= 0 {
		wait = defaultMarkerWait
	}
	interval := e.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	deadline := time.Now().Add(wait)
	for {
		containers, err := page.ElementsHTML(ctx, selector)
		if err != nil {
			return nil, err
		}
		if len(containers) > 0 {
			return containers, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// parseContainer resolves one container to a creative. Video first: an
// embedded frame wins outright, then an image source, with video thumbnails
// rewritten to their watch URL. A container resolving to neither is skipped.
func parseContainer(containerHTML string) (ads.Creative, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(containerHTML))
	if err != nil {
		log.Warn("Unparseable creative container", "error", err)
		return ads.Creative{}, false
	}

	if src, ok := doc.Find("iframe").First().Attr("src"); ok && src != "" {
		return ads.Creative{Kind: ads.KindVideo, URL: src}, true
	}

	if src, ok := doc.Find("img").First().Attr("src"); ok && src != "" {
		if watchURL, isThumbnail := ads.VideoFromThumbnail(src); isThumbnail {
			return ads.Creative{Kind: ads.KindVideo, URL: watchURL}, true
		}
		return ads.Creative{Kind: ads.KindImage, URL: src}, true
	}

	return ads.Creative{}, false
}
