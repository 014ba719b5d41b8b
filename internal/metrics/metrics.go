// Package metrics exposes Prometheus collectors for the scraping pipeline.
// A nil *Metrics is a valid no-op recorder, so batch runs that never serve
// /metrics skip the registry entirely.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	kindLabel   = "kind"
	statusLabel = "status"
)

// Metrics holds the pipeline collectors plus the registry that gathers them.
type Metrics struct {
	Registry *prometheus.Registry

	domainsProcessed prometheus.Counter
	domainsWithAds   prometheus.Counter
	domainsFailed    prometheus.Counter
	creatives        *prometheus.CounterVec
	domainDuration   prometheus.Histogram
	scrapeRequests   *prometheus.CounterVec
	rateLimited      prometheus.Counter
}

// New registers all pipeline collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{Registry: registry}

	m.domainsProcessed = newCounter(registry,
		"adscan_domains_processed_total",
		"Count of domains that reached a terminal state.")
	m.domainsWithAds = newCounter(registry,
		"adscan_domains_with_ads_total",
		"Count of domains classified as running ads.")
	m.domainsFailed = newCounter(registry,
		"adscan_domains_failed_total",
		"Count of domains that ended in failure.")
	m.creatives = newCounterVec(registry,
		"adscan_creatives_total",
		"Count of extracted creatives by kind.",
		[]string{kindLabel})
	m.domainDuration = newHistogram(registry,
		"adscan_domain_duration_seconds",
		"Seconds spent processing one domain end to end.",
		[]float64{1, 2.5, 5, 10, 20, 30, 60})
	m.scrapeRequests = newCounterVec(registry,
		"adscan_scrape_requests_total",
		"Count of scrape API requests by response status.",
		[]string{statusLabel})
	m.rateLimited = newCounter(registry,
		"adscan_ratelimit_rejections_total",
		"Count of API requests rejected by the rate limiter.")

	return m
}

func newCounter(registry *prometheus.Registry, name, help string) prometheus.Counter {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: help,
	})
	registry.MustRegister(counter)
	return counter
}

func newCounterVec(registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, labels)
	registry.MustRegister(counter)
	return counter
}

func newHistogram(registry *prometheus.Registry, name, help string, buckets []float64) prometheus.Histogram {
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Help:    help,
		Buckets: buckets,
	})
	registry.MustRegister(histogram)
	return histogram
}

// DomainProcessed records one terminal domain outcome with its duration.
func (m *Metrics) DomainProcessed(withAds bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.domainsProcessed.Inc()
	if withAds {
		m.domainsWithAds.Inc()
	}
	m.domainDuration.Observe(elapsed.Seconds())
}

// DomainFailed records one failed domain with its duration.
func (m *Metrics) DomainFailed(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.domainsProcessed.Inc()
	m.domainsFailed.Inc()
	m.domainDuration.Observe(elapsed.Seconds())
}

// CreativeFound records one extracted creative by kind.
func (m *Metrics) CreativeFound(kind string) {
	if m == nil {
		return
	}
	m.creatives.With(prometheus.Labels{kindLabel: kind}).Inc()
}

// ScrapeRequest records one API scrape request by HTTP status code.
func (m *Metrics) ScrapeRequest(status int) {
	if m == nil {
		return
	}
	m.scrapeRequests.With(prometheus.Labels{statusLabel: strconv.Itoa(status)}).Inc()
}

// RateLimitRejection records one admission-control rejection.
func (m *Metrics) RateLimitRejection() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
