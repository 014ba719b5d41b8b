// Package progress renders live batch-run feedback on the terminal: a single
// spinner whose suffix tracks delivered domains against the run total.
package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/go-scripts/adscan/internal/ads"
)

const maxDomainWidth = 40

// Tracker is a result sink that advances a terminal spinner as domains
// finish. Failed domains never reach a sink, so the count shows delivered
// results; failures surface in the log instead.
type Tracker struct {
	mu      sync.Mutex
	spin    *spinner.Spinner
	total   int
	done    int
	withAds int
}

func New(total int) *Tracker {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" scanning 0/%d domains", total)
	return &Tracker{spin: s, total: total}
}

func (t *Tracker) Start() { t.spin.Start() }
func (t *Tracker) Stop()  { t.spin.Stop() }

// Push records one finished domain and refreshes the spinner suffix.
func (t *Tracker) Push(_ context.Context, result ads.DomainResult) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done++
	if result.AdsRunning {
		t.withAds++
	}
	t.spin.Suffix = fmt.Sprintf(" scanning %d/%d domains, %d with ads, last %s",
		t.done, t.total, t.withAds, truncateDomain(result.Domain))
	return nil
}

// truncateDomain keeps the tail of an overlong domain so the registrable part
// stays visible.
func truncateDomain(domain string) string {
	if len(domain) <= maxDomainWidth {
		return domain
	}
	return "..." + domain[len(domain)-maxDomainWidth:]
}
