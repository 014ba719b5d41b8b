// Package dataset delivers finished domain results to their destinations: an
// NDJSON file, a remote dataset service, an Excel report, or any fan-out
// combination of those.
package dataset

import (
	"context"
	"errors"
	"sync"

	"github.com/go-scripts/adscan/internal/ads"
)

// Sink receives one result per processed domain.
type Sink interface {
	Push(ctx context.Context, result ads.DomainResult) error
}

// ErrNoSink means the configuration enabled no destination at all.
var ErrNoSink = errors.New("no result sink configured")

// Config selects which sinks to build. Empty fields disable their sink.
type Config struct {
	File      string
	Excel     string
	Endpoint  string
	DatasetID string
	Token     string
}

// New builds the configured sinks, fanning out to all of them when more than
// one destination is enabled.
func New(cfg Config) (Sink, error) {
	var sinks []Sink

	if cfg.File != "" {
		fileSink, err := NewFileSink(cfg.File)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fileSink)
	}
	if cfg.Excel != "" {
		excelSink, err := NewExcelSink(cfg.Excel)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, excelSink)
	}
	if cfg.Endpoint != "" {
		httpSink, err := NewHTTPSink(cfg.Endpoint, cfg.DatasetID, cfg.Token)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, httpSink)
	}

	switch len(sinks) {
	case 0:
		return nil, ErrNoSink
	case 1:
		return sinks[0], nil
	default:
		return Multi(sinks), nil
	}
}

// Close closes s if it is closable. The Excel sink holds its workbook in
// memory until closed, so a batch run must call this before exiting.
func Close(s Sink) error {
	if closer, ok := s.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Multi pushes every result to all members. All members are attempted even
// when an earlier one fails; failures are joined into one error.
type Multi []Sink

func (m Multi) Push(ctx context.Context, result ads.DomainResult) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Push(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every member that is closable.
func (m Multi) Close() error {
	var errs []error
	for _, sink := range m {
		if closer, ok := sink.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Collector keeps results in memory, in push order. The API front door uses
// one per request to hand results back to the caller.
type Collector struct {
	mu      sync.Mutex
	results []ads.DomainResult
}

func (c *Collector) Push(_ context.Context, result ads.DomainResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
	return nil
}

// Results returns a copy of everything pushed so far.
func (c *Collector) Results() []ads.DomainResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ads.DomainResult(nil), c.results...)
}
