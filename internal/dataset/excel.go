package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/go-scripts/adscan/internal/ads"
)

const excelSheet = "Results"

var excelHeader = []string{"Domain", "Ad Status", "Ads Running", "Creatives", "Ad Texts", "Timestamp"}

// ExcelSink accumulates results as rows of a workbook held in memory; the
// workbook is written to disk on Close.
type ExcelSink struct {
	mu      sync.Mutex
	path    string
	file    *excelize.File
	nextRow int
}

func NewExcelSink(path string) (*ExcelSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating report directory: %w", err)
		}
	}

	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", excelSheet); err != nil {
		return nil, fmt.Errorf("naming report sheet: %w", err)
	}
	for i, title := range excelHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetCellValue(excelSheet, cell, title); err != nil {
			return nil, err
		}
	}

	return &ExcelSink{path: path, file: file, nextRow: 2}, nil
}

func (s *ExcelSink) Push(_ context.Context, result ads.DomainResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creatives := make([]string, 0, len(result.Creatives))
	for _, creative := range result.Creatives {
		creatives = append(creatives, fmt.Sprintf("%s: %s", creative.Kind, creative.URL))
	}

	row := []interface{}{
		result.Domain,
		string(result.Status),
		result.AdsRunning,
		strings.Join(creatives, "; "),
		strings.Join(result.AdTexts, "; "),
		result.Timestamp.Format(time.RFC3339),
	}
	for i, value := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, s.nextRow)
		if err != nil {
			return err
		}
		if err := s.file.SetCellValue(excelSheet, cell, value); err != nil {
			return err
		}
	}
	s.nextRow++
	return nil
}

// Close writes the workbook out and releases it.
func (s *ExcelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.SaveAs(s.path); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return s.file.Close()
}
