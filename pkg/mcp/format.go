package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/pario-ai/reviewd/pkg/models"
)

const timeLayout = "2006-01-02 15:04:05"

func formatFetches(records []models.FetchRecord) string {
	if len(records) == 0 {
		return "No fetches recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-7s %8s %10s  %s\n", "Time", "Outcome", "Reviews", "Latency", "Location / Error")
	b.WriteString(strings.Repeat("-", 80) + "\n")
	for _, r := range records {
		detail := r.Location
		if r.Outcome == models.FetchError {
			detail = truncate(r.Error, 60)
		}
		fmt.Fprintf(&b, "%-20s %-7s %8d %8dms  %s\n",
			r.CreatedAt.Format(timeLayout), r.Outcome, r.ReviewCount, r.LatencyMs, detail)
	}
	return b.String()
}

func formatFetchSummary(s models.FetchSummary) string {
	return fmt.Sprintf("Fetch Summary\n"+
		"  Total:        %d\n"+
		"  Succeeded:    %d\n"+
		"  Failed:       %d\n"+
		"  Last success: %s\n"+
		"  Last failure: %s\n",
		s.Total, s.Succeeded, s.Failed, formatOptionalTime(s.LastSuccess), formatOptionalTime(s.LastFailure))
}

func formatBudgetStatus(statuses []models.BudgetStatus) string {
	if len(statuses) == 0 {
		return "No budget policies found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-8s %12s %12s %12s %6s\n", "Period", "Max Fetches", "Used", "Remaining", "Usage%")
	b.WriteString(strings.Repeat("-", 54) + "\n")
	for _, s := range statuses {
		pct := float64(0)
		if s.Policy.MaxFetches > 0 {
			pct = float64(s.Used) / float64(s.Policy.MaxFetches) * 100
		}
		fmt.Fprintf(&b, "%-8s %12d %12d %12d %5.1f%%\n",
			s.Policy.Period, s.Policy.MaxFetches, s.Used, s.Remaining, pct)
	}
	return b.String()
}

func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("Review Cache\n"+
		"  Entries:  %d\n"+
		"  Hits:     %d\n"+
		"  Misses:   %d\n"+
		"  Hit Rate: %.1f%%\n",
		stats.Entries, stats.Hits, stats.Misses, hitRate)
}

func formatAccessEntries(entries []models.AccessEntry) string {
	if len(entries) == 0 {
		return "No access log entries found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-36s %-6s %-16s %6s %-5s %8s\n",
		"Time", "Request ID", "Method", "Route", "Status", "Cache", "Latency")
	b.WriteString(strings.Repeat("-", 104) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%-20s %-36s %-6s %-16s %6d %-5s %6dms\n",
			e.CreatedAt.Format(timeLayout), truncate(e.RequestID, 36), e.Method,
			truncate(e.Route, 16), e.StatusCode, e.Cache, e.LatencyMs)
	}
	return b.String()
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(timeLayout)
}

// truncate shortens s to n runes, ending in "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
