// Package ui renders the end-of-run terminal report for batch scans: a
// counter panel plus a per-domain results table.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/adscan/internal/ads"
	"github.com/go-scripts/adscan/internal/scraper"
)

var (
	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("110"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

const domainColumnWidth = 40

// Summary renders the counter panel shown once a batch run finishes.
func Summary(snap scraper.Snapshot, totalDomains int) string {
	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-14s", label)) + valueStyle.Render(value)
	}

	lines := []string{
		titleStyle.Render("Scan summary"),
		row("Domains", fmt.Sprintf("%d/%d", snap.Processed, totalDomains)),
		row("With ads", fmt.Sprintf("%d", snap.WithAds)),
		row("Creatives", fmt.Sprintf("%d", snap.TotalCreatives)),
		row("Failed", fmt.Sprintf("%d", snap.Failed)),
		row("Success rate", fmt.Sprintf("%.1f%%", snap.SuccessRate()*100)),
		row("Elapsed", snap.Elapsed.Round(100*time.Millisecond).String()),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// ResultsTable renders one row per delivered result. Rows are colored by
// outcome: green for domains with ads, red for indeterminate ones.
func ResultsTable(results []ads.DomainResult) string {
	if len(results) == 0 {
		return ""
	}

	header := titleStyle.Render(fmt.Sprintf("%-*s %-8s %9s %6s",
		domainColumnWidth, "Domain", "Status", "Creatives", "Texts"))

	rows := make([]string, 0, len(results))
	for _, result := range results {
		row := fmt.Sprintf("%-*s %-8s %9d %6d",
			domainColumnWidth, truncate(result.Domain, domainColumnWidth),
			result.Status,
			len(result.Creatives),
			countNonEmpty(result.AdTexts))

		switch result.Status {
		case ads.StatusPresent:
			row = valueStyle.Render(row)
		case ads.StatusUnknown:
			row = errorStyle.Render(row)
		default:
			row = mutedStyle.Render(row)
		}
		rows = append(rows, row)
	}

	return panelStyle.Render(header + "\n" + strings.Join(rows, "\n"))
}

func truncate(s string, w int) string {
	if len(s) <= w {
		return s
	}
	return s[:w-3] + "..."
}

func countNonEmpty(texts []string) int {
	count := 0
	for _, text := range texts {
		if text != "" {
			count++
		}
	}
	return count
}
