package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/julienschmidt/httprouter"

	"github.com/go-scripts/adscan/internal/ads"
)

// Dashboard renders two charts over everything scraped so far: how domains
// split by ad status, and how many creatives each advertising domain runs.
// It reads the NDJSON results file on every request, so it always reflects
// the latest completed domains.
func (h *Handler) Dashboard(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	results := loadResults(h.ResultsFile)

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Ad Status"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)

	statusCounts := make(map[string]int)
	for _, result := range results {
		statusCounts[string(result.Status)]++
	}
	var pieItems []opts.PieData
	for status, count := range statusCounts {
		pieItems = append(pieItems, opts.PieData{Name: status, Value: count})
	}
	pie.AddSeries("Domains", pieItems)

	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Creatives per Domain"}))

	var barX []string
	var barY []opts.BarData
	for _, result := range results {
		if len(result.Creatives) == 0 {
			continue
		}
		barX = append(barX, result.Domain)
		barY = append(barY, opts.BarData{Value: len(result.Creatives)})
	}
	bar.SetXAxis(barX).AddSeries("Creatives", barY)

	_ = pie.Render(w)
	_ = bar.Render(w)
}

// loadResults reads the NDJSON results file, skipping lines that don't parse.
// A missing file renders as an empty dashboard rather than an error.
func loadResults(path string) []ads.DomainResult {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var results []ads.DomainResult
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var result ads.DomainResult
		if err := json.Unmarshal(scanner.Bytes(), &result); err == nil {
			results = append(results, result)
		}
	}
	return results
}
