package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pario-ai/reviewd/pkg/models"
)

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"reviewd_fetches":       handleFetches,
	"reviewd_fetch_summary": handleFetchSummary,
	"reviewd_budget":        handleBudget,
	"reviewd_cache_stats":   handleCacheStats,
	"reviewd_access_log":    handleAccessLog,
}

var emptySchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{},
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "reviewd_fetches",
		Description: "List the most recent upstream review fetches with outcome, review count and latency.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Number of fetches to return (optional, default 20)",
				},
			},
		},
	},
	{
		Name:        "reviewd_fetch_summary",
		Description: "Summarize the upstream fetch log: totals, failures and the last success and failure times.",
		InputSchema: emptySchema,
	},
	{
		Name:        "reviewd_budget",
		Description: "Show upstream fetch budget usage against every configured policy.",
		InputSchema: emptySchema,
	},
	{
		Name:        "reviewd_cache_stats",
		Description: "Show review cache statistics (entries, hits, misses, hit rate).",
		InputSchema: emptySchema,
	},
	{
		Name:        "reviewd_access_log",
		Description: "Search the HTTP access log with optional filters.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"route": map[string]any{
					"type":        "string",
					"description": "Filter by route, e.g. /reviews (optional)",
				},
				"since": map[string]any{
					"type":        "string",
					"description": "Start date in YYYY-MM-DD format (optional)",
				},
				"min_status": map[string]any{
					"type":        "integer",
					"description": "Only entries with at least this status code (optional)",
				},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

type fetchesArgs struct {
	Limit int `json:"limit"`
}

func handleFetches(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.tracker == nil {
		return textResult("Fetch log is not configured.")
	}
	var args fetchesArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	records, err := s.tracker.Recent(ctx, args.Limit)
	if err != nil {
		return errorResult("Error fetching fetch log: " + err.Error())
	}
	return textResult(formatFetches(records))
}

func handleFetchSummary(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.tracker == nil {
		return textResult("Fetch log is not configured.")
	}
	summary, err := s.tracker.Summary(ctx)
	if err != nil {
		return errorResult("Error fetching summary: " + err.Error())
	}
	return textResult(formatFetchSummary(summary))
}

func handleBudget(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.budget == nil {
		return textResult("Budget enforcement is not configured.")
	}
	statuses, err := s.budget.Status(ctx)
	if err != nil {
		return errorResult("Error fetching budget status: " + err.Error())
	}
	return textResult(formatBudgetStatus(statuses))
}

func handleCacheStats(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.cache == nil {
		return textResult("Review cache statistics are not configured.")
	}
	stats, err := s.cache.Stats()
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

type accessLogArgs struct {
	Route     string `json:"route"`
	Since     string `json:"since"`
	MinStatus int    `json:"min_status"`
}

func handleAccessLog(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.access == nil {
		return textResult("Access logging is not configured.")
	}
	var args accessLogArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}

	opts := models.AccessQueryOpts{
		Route:     args.Route,
		MinStatus: args.MinStatus,
		Limit:     50,
	}
	if args.Since != "" {
		t, err := time.Parse("2006-01-02", args.Since)
		if err != nil {
			return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
		}
		opts.Since = t
	}

	entries, err := s.access.Query(ctx, opts)
	if err != nil {
		return errorResult("Error searching access log: " + err.Error())
	}
	return textResult(formatAccessEntries(entries))
}
