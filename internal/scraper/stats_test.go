package scraper

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsCounters(t *testing.T) {
	stats := NewStats()

	stats.RecordSuccess(true, 3)
	stats.RecordSuccess(false, 0)
	stats.RecordFailure()

	snap := stats.Snapshot()
	assert.Equal(t, 3, snap.Processed)
	assert.Equal(t, 1, snap.WithAds)
	assert.Equal(t, 3, snap.TotalCreatives)
	assert.Equal(t, 1, snap.Failed)
}

func TestStatsCreativesOnlyCountWithAds(t *testing.T) {
	stats := NewStats()

	// A creative count reported without ads must not leak into the total.
	stats.RecordSuccess(false, 7)

	snap := stats.Snapshot()
	assert.Equal(t, 0, snap.TotalCreatives)
	assert.Equal(t, 0, snap.WithAds)
}

func TestStatsSuccessRate(t *testing.T) {
	tests := []struct {
		name      string
		successes int
		failures  int
		expect    float64
	}{
		{name: "empty run", successes: 0, failures: 0, expect: 0},
		{name: "all successes", successes: 4, failures: 0, expect: 1},
		{name: "half failed", successes: 2, failures: 2, expect: 0.5},
		{name: "all failed", successes: 0, failures: 3, expect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := NewStats()
			for i := 0; i < tt.successes; i++ {
				stats.RecordSuccess(false, 0)
			}
			for i := 0; i < tt.failures; i++ {
				stats.RecordFailure()
			}
			assert.InDelta(t, tt.expect, stats.Snapshot().SuccessRate(), 0.001)
		})
	}
}

func TestStatsConcurrentUpdates(t *testing.T) {
	stats := NewStats()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				stats.RecordSuccess(true, 2)
			} else {
				stats.RecordFailure()
			}
		}(i)
	}
	wg.Wait()

	snap := stats.Snapshot()
	assert.Equal(t, workers, snap.Processed, "no concurrent increment may be lost")
	assert.Equal(t, workers/2, snap.WithAds)
	assert.Equal(t, workers/2, snap.Failed)
	assert.GreaterOrEqual(t, snap.Processed, snap.WithAds)
	assert.GreaterOrEqual(t, snap.Processed, snap.Failed)
}
