package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-scripts/adscan/internal/ads"
)

// FileSink appends results to an NDJSON file, one JSON object per line.
// Appending keeps earlier runs intact, so a file accumulates scan history.
type FileSink struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

func NewFileSink(path string) (*FileSink, error) {
	// Create output directory if it doesn't exist
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening output file: %w", err)
	}

	return &FileSink{
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

func (s *FileSink) Push(_ context.Context, result ads.DomainResult) error {
	// Lock to prevent concurrent file access issues
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoder.Encode(result)
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
