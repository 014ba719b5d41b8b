// Package ads holds the domain model for transparency-center scans: the
// normalized domain, the per-domain ad status, and the creatives found on a
// transparency page.
package ads

import (
	"net/url"
	"strings"
	"time"
)

// TransparencyBaseURL is the public ad-transparency registry queried per domain.
const TransparencyBaseURL = "https://adstransparency.google.com/"

// AdStatus is the ad-presence classification for one domain.
type AdStatus string

const (
	// StatusPresent means the transparency page showed ads for the domain.
	StatusPresent AdStatus = "present"
	// StatusAbsent means the page reported no ads for the domain.
	StatusAbsent AdStatus = "absent"
	// StatusUnknown means neither marker appeared within the wait budget.
	StatusUnknown AdStatus = "unknown"
)

// Running reports whether the status indicates active ads.
func (s AdStatus) Running() bool { return s == StatusPresent }

// CreativeKind distinguishes image from video creatives.
type CreativeKind string

const (
	KindImage CreativeKind = "image"
	KindVideo CreativeKind = "video"
)

// Creative is one ad asset found on a transparency page. URL is never empty;
// a container whose source cannot be resolved produces no Creative at all.
type Creative struct {
	Kind CreativeKind `json:"type"`
	URL  string       `json:"url"`
}

// DomainResult is the record produced once per processed domain. It is fully
// populated by the processor and immutable once handed to a sink.
type DomainResult struct {
	Domain     string     `json:"domain"`
	Status     AdStatus   `json:"ad_status"`
	AdsRunning bool       `json:"ads_running"`
	Creatives  []Creative `json:"creatives"`
	AdTexts    []string   `json:"ad_texts"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NormalizeDomain strips scheme prefixes, a leading www. and trailing slashes
// from a raw domain string. Normalization is idempotent.
func NormalizeDomain(domain string) string {
	d := strings.TrimSpace(domain)
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "www.")
	return strings.Trim(d, "/")
}

// TransparencyURL builds the registry query URL for a normalized domain with
// the region and date-preset parameters.
func TransparencyURL(domain, region, preset string) string {
	q := url.Values{}
	q.Set("region", region)
	q.Set("domain", domain)
	q.Set("preset-date", preset)
	return TransparencyBaseURL + "?" + q.Encode()
}

const (
	thumbnailHost = "i.ytimg.com"
	watchURL      = "https://www.youtube.com/watch?v="
)

// VideoFromThumbnail reports whether an image source is really a YouTube video
// thumbnail (host i.ytimg.com, path segment vi/<id>/...) and, if so, returns
// the canonical watch URL for the video. Thumbnails are a disguised video
// reference and must not be treated as image creatives.
func VideoFromThumbnail(src string) (string, bool) {
	if !strings.Contains(src, thumbnailHost+"/vi/") {
		return "", false
	}
	parts := strings.Split(src, "/")
	for i, part := range parts {
		if part != "vi" {
			continue
		}
		if i+1 < len(parts) && parts[i+1] != "" {
			return watchURL + parts[i+1], true
		}
	}
	return "", false
}
