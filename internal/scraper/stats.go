package scraper

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Stats tracks process-lifetime pipeline counters. Multiple in-flight domain
// runs record into the same Stats, so every update holds the mutex.
type Stats struct {
	mu             sync.Mutex
	processed      int
	withAds        int
	totalCreatives int
	failed         int
	start          time.Time
}

func NewStats() *Stats {
	return &Stats{start: time.Now()}
}

// RecordSuccess counts one completed domain. Creatives only count toward the
// total when the domain actually ran ads.
func (s *Stats) RecordSuccess(hadAds bool, creativeCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
	if hadAds {
		s.withAds++
		s.totalCreatives += creativeCount
	}
}

// RecordFailure counts one failed domain. Failed domains still count as
// processed, so processed >= failed always holds.
func (s *Stats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
	s.failed++
}

// Snapshot is a consistent copy of the counters at one instant.
type Snapshot struct {
	Processed      int
	WithAds        int
	TotalCreatives int
	Failed         int
	Elapsed        time.Duration
}

// SuccessRate is (processed - failed) / processed, with the denominator
// floored at one so an empty run reports 0 rather than dividing by zero.
func (s Snapshot) SuccessRate() float64 {
	denominator := s.Processed
	if denominator < 1 {
		denominator = 1
	}
	return float64(s.Processed-s.Failed) / float64(denominator)
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Processed:      s.processed,
		WithAds:        s.withAds,
		TotalCreatives: s.totalCreatives,
		Failed:         s.failed,
		Elapsed:        time.Since(s.start),
	}
}

// Report emits one progress line against the total domain count of the run.
func (s *Stats) Report(totalDomains int) {
	snap := s.Snapshot()
	log.Info("Progress",
		"processed", fmt.Sprintf("%d/%d", snap.Processed, totalDomains),
		"success_rate", fmt.Sprintf("%.1f%%", snap.SuccessRate()*100),
		"domains_with_ads", snap.WithAds,
		"total_creatives", snap.TotalCreatives,
		"elapsed", snap.Elapsed.Round(100*time.Millisecond))
}
