// Package scraper implements the domain-processing pipeline: per-domain
// navigation of the ad-transparency page, ad-presence classification,
// creative extraction, OCR fan-out and result delivery, fanned out across a
// bounded number of concurrent domain runs.
package scraper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/adscan/internal/ads"
	"github.com/go-scripts/adscan/internal/browser"
	"github.com/go-scripts/adscan/internal/metrics"
)

const (
	defaultRegion     = "US"
	defaultPreset     = "Last 30 days"
	defaultNavTimeout = 30 * time.Second
)

// Sink receives one fully-populated result per processed domain.
type Sink interface {
	Push(ctx context.Context, result ads.DomainResult) error
}

// Processor runs the full pipeline for single domains. Safe for concurrent
// use; each run owns its own browser page.
type Processor struct {
	browser    browser.Browser
	classifier PageClassifier
	extractor  CreativeExtractor
	texts      *TextExtractor
	retry      RetryPolicy
	sink       Sink
	stats      *Stats
	metrics    *metrics.Metrics
	region     string
	preset     string
	navTimeout time.Duration
}

// ProcessorOptions wires a Processor. Browser is required; everything else
// has a usable zero value.
type ProcessorOptions struct {
	Browser    browser.Browser
	Classifier PageClassifier
	Extractor  CreativeExtractor
	Texts      *TextExtractor
	Retry      RetryPolicy
	Sink       Sink
	Stats      *Stats
	Metrics    *metrics.Metrics
	Region     string
	Preset     string
	NavTimeout time.Duration
}

func NewProcessor(opts ProcessorOptions) *Processor {
	if opts.Stats == nil {
		opts.Stats = NewStats()
	}
	if opts.Texts == nil {
		opts.Texts = NewTextExtractor(nil, TextExtractorOptions{})
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Region == "" {
		opts.Region = defaultRegion
	}
	if opts.Preset == "" {
		opts.Preset = defaultPreset
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = defaultNavTimeout
	}

	return &Processor{
		browser:    opts.Browser,
		classifier: opts.Classifier,
		extractor:  opts.Extractor,
		texts:      opts.Texts,
		retry:      opts.Retry,
		sink:       opts.Sink,
		stats:      opts.Stats,
		metrics:    opts.Metrics,
		region:     opts.Region,
		preset:     opts.Preset,
		navTimeout: opts.NavTimeout,
	}
}

// Stats exposes the run counters shared by all domains of this processor.
func (p *Processor) Stats() *Stats { return p.stats }

// ProcessDomain takes one domain through the whole pipeline. Exactly one of
// RecordSuccess or RecordFailure fires per call; a failure drops the domain
// without emitting a partial result.
func (p *Processor) ProcessDomain(ctx context.Context, rawDomain string) error {
	domain := ads.NormalizeDomain(rawDomain)
	start := time.Now()
	log.Info("Processing domain", "domain", domain)

	status, creatives, err := p.inspect(ctx, domain)
	if err != nil {
		p.fail(domain, start, err)
		return err
	}

	adTexts := p.extractTexts(ctx, creatives)

	result := ads.DomainResult{
		Domain:     domain,
		Status:     status,
		AdsRunning: status.Running(),
		Creatives:  creatives,
		AdTexts:    adTexts,
		Timestamp:  time.Now().UTC(),
	}

	if p.sink != nil {
		if err := p.sink.Push(ctx, result); err != nil {
			p.fail(domain, start, err)
			return err
		}
	}

	p.stats.RecordSuccess(status.Running(), len(creatives))
	p.metrics.DomainProcessed(status.Running(), time.Since(start))
	for _, creative := range creatives {
		p.metrics.CreativeFound(string(creative.Kind))
	}

	log.Info("Domain done",
		"domain", domain,
		"ad_status", status,
		"creatives", len(creatives))
	return nil
}

func (p *Processor) fail(domain string, start time.Time, err error) {
	p.stats.RecordFailure()
	p.metrics.DomainFailed(time.Since(start))
	log.Error("Domain failed", "domain", domain, "error", err)
}

// inspect owns the page for the domain run: navigate and classify under the
// retry policy, then extract creatives when ads are present. The page is
// released on every exit path.
func (p *Processor) inspect(ctx context.Context, domain string) (ads.AdStatus, []ads.Creative, error) {
	page, err := p.browser.NewPage()
	if err != nil {
		return ads.StatusUnknown, nil, err
	}
	defer page.Close()

	targetURL := ads.TransparencyURL(domain, p.region, p.preset)

	var status ads.AdStatus
	err = p.retry.Do(ctx, func(ctx context.Context) error {
		navCtx, cancel := context.WithTimeout(ctx, p.navTimeout)
		defer cancel()
		if err := page.Navigate(navCtx, targetURL); err != nil {
			return err
		}

		var classifyErr error
		status, classifyErr = p.classifier.Classify(ctx, page)
		return classifyErr
	})
	if err != nil {
		return ads.StatusUnknown, nil, err
	}

	if status != ads.StatusPresent {
		return status, nil, nil
	}

	creatives, err := p.extractor.Extract(ctx, page)
	if err != nil {
		return status, nil, err
	}
	return status, creatives, nil
}

// extractTexts runs OCR over every image creative concurrently. The returned
// slice holds one entry per image creative, ordered by the creative's
// position, regardless of which extraction finishes first. Video creatives
// are never OCR'd.
func (p *Processor) extractTexts(ctx context.Context, creatives []ads.Creative) []string {
	imagePositions := make([]int, 0, len(creatives))
	for i, creative := range creatives {
		if creative.Kind == ads.KindImage {
			imagePositions = append(imagePositions, i)
		}
	}
	if len(imagePositions) == 0 {
		return nil
	}

	texts := make([]string, len(imagePositions))
	var wg sync.WaitGroup
	for slot, position := range imagePositions {
		wg.Add(1)
		go func(slot int, imageURL string) {
			defer wg.Done()
			texts[slot] = p.texts.ExtractText(ctx, imageURL)
		}(slot, creatives[position].URL)
	}
	wg.Wait()

	return texts
}

// Scheduler fans ProcessDomain calls out over a bounded number of goroutines.
type Scheduler struct {
	Processor *Processor
}

// Run admits domains in input order with at most concurrency runs in flight,
// waits for all of them to reach a terminal state, then emits a final
// progress report. Domain failures never abort the batch; Run returns how
// many domains failed.
func (s Scheduler) Run(ctx context.Context, domains []string, concurrency int) int {
	if concurrency < 1 {
		concurrency = 1
	}

	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var failed atomic.Int64

	for _, domain := range domains {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(domain string) {
			defer wg.Done()
			defer func() { <-semaphore }()
			if err := s.Processor.ProcessDomain(ctx, domain); err != nil {
				failed.Add(1)
			}
		}(domain)
	}

	wg.Wait()
	s.Processor.Stats().Report(len(domains))
	return int(failed.Load())
}
