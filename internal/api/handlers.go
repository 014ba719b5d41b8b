// Package api is the HTTP front door over the scraping pipeline: a
// key-guarded, rate-limited scrape endpoint plus liveness, metrics
// exposition and a results dashboard.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/julienschmidt/httprouter"

	"github.com/go-scripts/adscan/internal/ads"
	"github.com/go-scripts/adscan/internal/browser"
	"github.com/go-scripts/adscan/internal/dataset"
	"github.com/go-scripts/adscan/internal/metrics"
	"github.com/go-scripts/adscan/internal/scraper"
)

const (
	serviceName    = "Google Ads Transparency Scraper API"
	serviceVersion = "1.0.0"
)

// Handler serves the scrape API. Every scrape request gets its own browser
// session from NewBrowser and its own scheduler; Options carries the shared
// pipeline wiring (classifier, extractor, retry policy, process stats).
type Handler struct {
	NewBrowser func() (browser.Browser, error)
	Options    scraper.ProcessorOptions
	Sink       dataset.Sink
	Limiter    *RateLimiter
	Metrics    *metrics.Metrics
	KeyHeader  string

	// ResultsFile is the NDJSON file the dashboard charts are built from.
	ResultsFile string
	Version     string
}

// ScrapeRequest is the body of POST /scrape.
type ScrapeRequest struct {
	Domains        []string `json:"domains"`
	MaxConcurrency int      `json:"max_concurrency"`
}

// CreativeRecord is one row of the scrape response: a single creative
// annotated with its owning domain's outcome. Text is set only for image
// creatives that yielded OCR output.
type CreativeRecord struct {
	Domain     string           `json:"domain"`
	Status     ads.AdStatus     `json:"ad_status"`
	AdsRunning bool             `json:"ads_running"`
	Kind       ads.CreativeKind `json:"kind"`
	URL        string           `json:"url"`
	Text       string           `json:"text,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Scrape runs the pipeline over the domains in the request body and responds
// with one record per extracted creative, an empty array when none of the
// domains run ads.
func (h *Handler) Scrape(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if status := h.authorize(w, r); status != 0 {
		h.Metrics.ScrapeRequest(status)
		return
	}

	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Metrics.ScrapeRequest(http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Domains) == 0 {
		h.Metrics.ScrapeRequest(http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "domains must not be empty")
		return
	}

	b, err := h.NewBrowser()
	if err != nil {
		log.Error("Browser session failed", "error", err)
		h.Metrics.ScrapeRequest(http.StatusInternalServerError)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer b.Close()

	// Results are collected for the response and mirrored to the persistent
	// sink when one is configured.
	collector := &dataset.Collector{}
	opts := h.Options
	opts.Browser = b
	opts.Metrics = h.Metrics
	if h.Sink != nil {
		opts.Sink = dataset.Multi{h.Sink, collector}
	} else {
		opts.Sink = collector
	}

	sched := scraper.Scheduler{Processor: scraper.NewProcessor(opts)}
	sched.Run(r.Context(), req.Domains, req.MaxConcurrency)

	h.Metrics.ScrapeRequest(http.StatusOK)
	writeJSON(w, http.StatusOK, flatten(collector.Results()))
}

// Index describes the service and its endpoints. It sits behind the same key
// and rate-limit policy as the scrape endpoint.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.authorize(w, r) != 0 {
		return
	}

	version := h.Version
	if version == "" {
		version = serviceVersion
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    serviceName,
		"version": version,
		"endpoints": map[string]string{
			"/scrape":    "POST - Scrape ads data for given domains",
			"/":          "GET - This documentation",
			"/status":    "GET - Liveness probe",
			"/metrics":   "GET - Prometheus metrics",
			"/dashboard": "GET - Results dashboard",
		},
	})
}

// Status is the unauthenticated liveness probe.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// authorize enforces the API key header and the per-key window. On rejection
// it writes the response itself and returns the status sent; 0 means the
// request may proceed.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) int {
	key := r.Header.Get(h.KeyHeader)
	if key == "" {
		writeError(w, http.StatusUnauthorized, "missing "+h.KeyHeader+" header")
		return http.StatusUnauthorized
	}
	if !h.Limiter.Allow(key) {
		h.Metrics.RateLimitRejection()
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		return http.StatusTooManyRequests
	}
	return 0
}

// flatten turns domain results into creative-level response rows. Extracted
// texts are positional over the image creatives of their result.
func flatten(results []ads.DomainResult) []CreativeRecord {
	records := make([]CreativeRecord, 0)
	for _, result := range results {
		images := 0
		for _, creative := range result.Creatives {
			record := CreativeRecord{
				Domain:     result.Domain,
				Status:     result.Status,
				AdsRunning: result.AdsRunning,
				Kind:       creative.Kind,
				URL:        creative.URL,
				Timestamp:  result.Timestamp,
			}
			if creative.Kind == ads.KindImage {
				if images < len(result.AdTexts) {
					record.Text = result.AdTexts[images]
				}
				images++
			}
			records = append(records, record)
		}
	}
	return records
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
