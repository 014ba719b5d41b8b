package scraper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-scripts/adscan/internal/ads"
	"github.com/go-scripts/adscan/internal/browser"
)

// fakePage scripts the page surface the pipeline depends on, so classifier,
// extractor and processor tests run without a browser process.
type fakePage struct {
	mu          sync.Mutex
	content     string
	contentErr  error
	elements    map[string][]string
	elementsErr error
	navErr      error
	navFailures int
	navDelay    time.Duration
	navigated   []string
	closed      int
	onClose     func()
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	if p.navDelay > 0 {
		time.Sleep(p.navDelay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	if p.navFailures > 0 {
		p.navFailures--
		return p.navErr
	}
	return nil
}

func (p *fakePage) Content(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.content, p.contentErr
}

func (p *fakePage) ElementsHTML(_ context.Context, selector string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.elementsErr != nil {
		return nil, p.elementsErr
	}
	return p.elements[selector], nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	p.closed++
	onClose := p.onClose
	p.mu.Unlock()
	if onClose != nil {
		onClose()
	}
	return nil
}

func (p *fakePage) navigatedTo() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigated...)
}

func (p *fakePage) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// fakeBrowser hands out one scripted page per NewPage call and tracks how
// many pages are open at once.
type fakeBrowser struct {
	mu      sync.Mutex
	newPage func() *fakePage
	pages   []*fakePage

	active atomic.Int32
	peak   atomic.Int32
}

func newFakeBrowser(newPage func() *fakePage) *fakeBrowser {
	return &fakeBrowser{newPage: newPage}
}

func (b *fakeBrowser) NewPage() (browser.Page, error) {
	active := b.active.Add(1)
	for {
		peak := b.peak.Load()
		if active <= peak || b.peak.CompareAndSwap(peak, active) {
			break
		}
	}

	page := b.newPage()
	page.onClose = func() { b.active.Add(-1) }

	b.mu.Lock()
	b.pages = append(b.pages, page)
	b.mu.Unlock()
	return page, nil
}

func (b *fakeBrowser) Close() error { return nil }

func (b *fakeBrowser) openedPages() []*fakePage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*fakePage(nil), b.pages...)
}

// collectSink gathers pushed results in memory.
type collectSink struct {
	mu      sync.Mutex
	results []ads.DomainResult
	err     error
}

func (s *collectSink) Push(_ context.Context, result ads.DomainResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.results = append(s.results, result)
	return nil
}

func (s *collectSink) pushed() []ads.DomainResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ads.DomainResult(nil), s.results...)
}

// fixedTextEngine recognizes the same text for every image.
type fixedTextEngine struct {
	text string
}

func (e fixedTextEngine) ExtractText(context.Context, []byte) (string, error) {
	return e.text, nil
}
