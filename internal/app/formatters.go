package app

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/chartsage/internal/models"
)

// formatAnalysisResult renders one result as markdown. The projected image is
// summarised rather than inlined.
func formatAnalysisResult(r *models.AnalysisResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s %s\n\n", r.Signal, r.Market))
	sb.WriteString(fmt.Sprintf("**Mode:** %s\n", r.Mode))
	sb.WriteString(fmt.Sprintf("**Entry:** %s\n", r.EntrySuggestion))
	if r.Warning != "" {
		sb.WriteString(fmt.Sprintf("**Warning:** %s\n", r.Warning))
	}
	sb.WriteString(fmt.Sprintf("**Time:** %s\n", r.Timestamp.Format("2006-01-02 15:04:05 UTC")))
	sb.WriteString(fmt.Sprintf("**Request:** %s\n", r.RequestID))

	if r.ContinuationImage != "" {
		sb.WriteString("\nA projected continuation image is attached to this result.\n")
	}

	if len(r.GroundingLinks) > 0 {
		sb.WriteString("\n## Sources\n\n")
		for _, link := range r.GroundingLinks {
			sb.WriteString(fmt.Sprintf("- %s\n", link))
		}
	}
	return sb.String()
}

// formatHistory renders the history as a markdown table.
func formatHistory(results []models.AnalysisResult) string {
	if len(results) == 0 {
		return "No analyses yet."
	}

	var sb strings.Builder
	sb.WriteString("# Recent Analyses\n\n")
	sb.WriteString("| Time (UTC) | Mode | Market | Signal | Entry |\n")
	sb.WriteString("|------------|------|--------|--------|-------|\n")
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			r.Timestamp.Format("2006-01-02 15:04"), r.Mode, r.Market, r.Signal,
			strings.ReplaceAll(r.EntrySuggestion, "|", "/")))
	}
	return sb.String()
}

func formatMarketStatus(s models.MarketStatus) string {
	if s.Open {
		return "Market scanner is available."
	}
	return fmt.Sprintf("Market scanner is unavailable: %s", s.Reason)
}
