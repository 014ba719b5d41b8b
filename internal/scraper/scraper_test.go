package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/go-scripts/adscan/internal/ads"
	"github.com/go-scripts/adscan/internal/browser"
)

const (
	absentHTML  = "<html><body><div>No ads found</div></body></html>"
	presentHTML = "<html><body><span>~40 ads</span></body></html>"
)

// fastOptions builds a processor wired to the fake browser with timing
// turned down far enough for unit tests.
func fastOptions(b *fakeBrowser, sink Sink) ProcessorOptions {
	return ProcessorOptions{
		Browser:    b,
		Classifier: PageClassifier{Wait: 200 * time.Millisecond, Interval: 5 * time.Millisecond},
		Extractor:  CreativeExtractor{Wait: 200 * time.Millisecond, Interval: 5 * time.Millisecond},
		Texts:      NewTextExtractor(fixedTextEngine{text: "BUY NOW"}, TextExtractorOptions{}),
		Retry: RetryPolicy{
			Attempts:  3,
			BaseDelay: time.Millisecond,
			MaxDelay:  2 * time.Millisecond,
			Retryable: browser.IsTransient,
		},
		Sink: sink,
	}
}

func TestProcessDomainAbsent(t *testing.T) {
	browserFake := newFakeBrowser(func() *fakePage {
		return &fakePage{content: absentHTML}
	})
	sink := &collectSink{}
	processor := NewProcessor(fastOptions(browserFake, sink))

	err := processor.ProcessDomain(context.Background(), "example.com")
	assert.NoError(t, err)

	results := sink.pushed()
	assert.Len(t, results, 1)
	assert.Equal(t, "example.com", results[0].Domain)
	assert.Equal(t, ads.StatusAbsent, results[0].Status)
	assert.False(t, results[0].AdsRunning)
	assert.Empty(t, results[0].Creatives)
	assert.Empty(t, results[0].AdTexts)
	assert.WithinDuration(t, time.Now().UTC(), results[0].Timestamp, 5*time.Second)

	snap := processor.Stats().Snapshot()
	assert.Equal(t, 1, snap.Processed)
	assert.Equal(t, 0, snap.WithAds)
	assert.Equal(t, 0, snap.TotalCreatives)

	pages := browserFake.openedPages()
	assert.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].closeCount(), "page must be released")
}

func TestProcessDomainPresent(t *testing.T) {
	img := pngBytes(t)
	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(img)
	}))
	t.Cleanup(imageServer.Close)

	containers := []string{
		`<creative-preview><img src="` + imageServer.URL + `/creative.png"/></creative-preview>`,
		`<creative-preview><iframe src="https://www.youtube.com/embed/vid42"></iframe></creative-preview>`,
		`<creative-preview><img src="https://i.ytimg.com/vi/thumb7/hqdefault.jpg"/></creative-preview>`,
	}
	browserFake := newFakeBrowser(func() *fakePage {
		return &fakePage{
			content:  presentHTML,
			elements: map[string][]string{defaultCreativeSelector: containers},
		}
	})
	sink := &collectSink{}
	processor := NewProcessor(fastOptions(browserFake, sink))

	err := processor.ProcessDomain(context.Background(), "example.com")
	assert.NoError(t, err)

	results := sink.pushed()
	assert.Len(t, results, 1)
	result := results[0]

	assert.Equal(t, ads.StatusPresent, result.Status)
	assert.True(t, result.AdsRunning)
	assert.Equal(t, []ads.Creative{
		{Kind: ads.KindImage, URL: imageServer.URL + "/creative.png"},
		{Kind: ads.KindVideo, URL: "https://www.youtube.com/embed/vid42"},
		{Kind: ads.KindVideo, URL: "https://www.youtube.com/watch?v=thumb7"},
	}, result.Creatives)

	// One OCR text per image creative; the two videos contribute none.
	assert.Equal(t, []string{"BUY NOW"}, result.AdTexts)

	snap := processor.Stats().Snapshot()
	assert.Equal(t, 1, snap.Processed)
	assert.Equal(t, 1, snap.WithAds)
	assert.Equal(t, 3, snap.TotalCreatives)
}

func TestProcessDomainToleratesFetchFailures(t *testing.T) {
	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(imageServer.Close)

	containers := []string{
		`<creative-preview><img src="` + imageServer.URL + `/gone.png"/></creative-preview>`,
	}
	browserFake := newFakeBrowser(func() *fakePage {
		return &fakePage{
			content:  presentHTML,
			elements: map[string][]string{defaultCreativeSelector: containers},
		}
	})
	sink := &collectSink{}
	processor := NewProcessor(fastOptions(browserFake, sink))

	err := processor.ProcessDomain(context.Background(), "example.com")
	assert.NoError(t, err, "a dead creative URL must not fail the domain")

	results := sink.pushed()
	assert.Len(t, results, 1)
	assert.Equal(t, ads.StatusPresent, results[0].Status)
	assert.Equal(t, []string{""}, results[0].AdTexts, "the failed fetch keeps its slot as an empty text")

	snap := processor.Stats().Snapshot()
	assert.Equal(t, 1, snap.Processed)
	assert.Equal(t, 0, snap.Failed)
}

func TestProcessDomainNormalizesBeforeNavigating(t *testing.T) {
	browserFake := newFakeBrowser(func() *fakePage {
		return &fakePage{content: absentHTML}
	})
	sink := &collectSink{}
	processor := NewProcessor(fastOptions(browserFake, sink))

	err := processor.ProcessDomain(context.Background(), "https://www.example.com/")
	assert.NoError(t, err)

	pages := browserFake.openedPages()
	assert.Len(t, pages, 1)
	navigated := pages[0].navigatedTo()
	assert.Len(t, navigated, 1)
	assert.Contains(t, navigated[0], "domain=example.com")
	assert.Contains(t, navigated[0], "adstransparency.google.com")
	assert.Equal(t, "example.com", sink.pushed()[0].Domain)
}

func TestProcessDomainNavigationFailure(t *testing.T) {
	navErr := &browser.NavigationError{URL: "https://example.com", Err: errors.New("timeout")}
	browserFake := newFakeBrowser(func() *fakePage {
		return &fakePage{navErr: navErr, navFailures: 100}
	})
	sink := &collectSink{}
	processor := NewProcessor(fastOptions(browserFake, sink))

	err := processor.ProcessDomain(context.Background(), "example.com")
	assert.Error(t, err)

	pages := browserFake.openedPages()
	assert.Len(t, pages, 1)
	assert.Len(t, pages[0].navigatedTo(), 3, "transient navigation failures retry up to the attempt cap")
	assert.Equal(t, 1, pages[0].closeCount(), "page must be released on failure too")

	assert.Empty(t, sink.pushed(), "failed domains never emit partial results")

	snap := processor.Stats().Snapshot()
	assert.Equal(t, 1, snap.Processed)
	assert.Equal(t, 1, snap.Failed)
}

func TestProcessDomainSinkFailure(t *testing.T) {
	browserFake := newFakeBrowser(func() *fakePage {
		return &fakePage{content: absentHTML}
	})
	sink := &collectSink{err: errors.New("dataset unreachable")}
	processor := NewProcessor(fastOptions(browserFake, sink))

	err := processor.ProcessDomain(context.Background(), "example.com")
	assert.Error(t, err)

	snap := processor.Stats().Snapshot()
	assert.Equal(t, 1, snap.Processed)
	assert.Equal(t, 1, snap.Failed)
}

func TestSchedulerBoundedConcurrency(t *testing.T) {
	browserFake := newFakeBrowser(func() *fakePage {
		return &fakePage{content: absentHTML, navDelay: 20 * time.Millisecond}
	})
	sink := &collectSink{}
	processor := NewProcessor(fastOptions(browserFake, sink))

	domains := []string{"a.com", "b.com", "c.com", "d.com", "e.com", "f.com"}
	Scheduler{Processor: processor}.Run(context.Background(), domains, 2)

	assert.LessOrEqual(t, browserFake.peak.Load(), int32(2), "no more than two pages in flight")
	assert.Len(t, sink.pushed(), len(domains))
	assert.Equal(t, len(domains), processor.Stats().Snapshot().Processed)
}

func TestSchedulerCompletesDespiteFailures(t *testing.T) {
	var calls int
	browserFake := newFakeBrowser(func() *fakePage {
		calls++
		if calls%2 == 0 {
			return &fakePage{
				navErr:      &browser.NavigationError{URL: "x", Err: errors.New("down")},
				navFailures: 100,
			}
		}
		return &fakePage{content: absentHTML}
	})
	sink := &collectSink{}
	processor := NewProcessor(fastOptions(browserFake, sink))

	domains := []string{"a.com", "b.com", "c.com", "d.com"}
	Scheduler{Processor: processor}.Run(context.Background(), domains, 1)

	snap := processor.Stats().Snapshot()
	assert.Equal(t, len(domains), snap.Processed, "every domain reaches a terminal state")
	assert.Equal(t, 2, snap.Failed)
	assert.Len(t, sink.pushed(), 2)
	assert.GreaterOrEqual(t, snap.Processed, snap.Failed)
	assert.GreaterOrEqual(t, snap.Processed, snap.WithAds)
}

func TestSchedulerPreservesAdmissionOrder(t *testing.T) {
	browserFake := newFakeBrowser(func() *fakePage {
		return &fakePage{content: absentHTML}
	})
	sink := &collectSink{}
	processor := NewProcessor(fastOptions(browserFake, sink))

	domains := []string{"first.com", "second.com", "third.com"}
	Scheduler{Processor: processor}.Run(context.Background(), domains, 1)

	var processed []string
	for _, result := range sink.pushed() {
		processed = append(processed, result.Domain)
	}
	assert.Equal(t, domains, processed, "serial runs preserve input order")
}

func TestSchedulerDefaultsConcurrencyToOne(t *testing.T) {
	browserFake := newFakeBrowser(func() *fakePage {
		return &fakePage{content: absentHTML}
	})
	sink := &collectSink{}
	processor := NewProcessor(fastOptions(browserFake, sink))

	Scheduler{Processor: processor}.Run(context.Background(), []string{"a.com", "b.com"}, 0)

	assert.LessOrEqual(t, browserFake.peak.Load(), int32(1))
	assert.Len(t, sink.pushed(), 2)
}

func TestProcessDomainRecoversAfterTransientFailures(t *testing.T) {
	browserFake := newFakeBrowser(func() *fakePage {
		// First two navigation attempts fail, the third lands.
		return &fakePage{
			content:     absentHTML,
			navErr:      &browser.NavigationError{URL: "x", Err: errors.New("flaky")},
			navFailures: 2,
		}
	})
	sink := &collectSink{}
	processor := NewProcessor(fastOptions(browserFake, sink))

	err := processor.ProcessDomain(context.Background(), "example.com")
	assert.NoError(t, err)
	assert.Len(t, sink.pushed(), 1)
	assert.Len(t, browserFake.openedPages()[0].navigatedTo(), 3)

	snap := processor.Stats().Snapshot()
	assert.Equal(t, 1, snap.Processed)
	assert.Equal(t, 0, snap.Failed)
}

func TestTransparencyURLQueryShape(t *testing.T) {
	browserFake := newFakeBrowser(func() *fakePage {
		return &fakePage{content: absentHTML}
	})
	sink := &collectSink{}
	opts := fastOptions(browserFake, sink)
	opts.Region = "DE"
	opts.Preset = "Last 7 days"
	processor := NewProcessor(opts)

	assert.NoError(t, processor.ProcessDomain(context.Background(), "example.de"))

	navigated := browserFake.openedPages()[0].navigatedTo()[0]
	assert.Contains(t, navigated, "region=DE")
	assert.True(t, strings.Contains(navigated, "preset-date=Last+7+days"))
}
