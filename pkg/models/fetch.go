package models

import "time"

// FetchOutcome classifies an upstream review fetch.
type FetchOutcome string

const (
	FetchOK    FetchOutcome = "ok"
	FetchError FetchOutcome = "error"
)

// FetchRecord tracks a single upstream review fetch.
type FetchRecord struct {
	ID          int64        `json:"id"`
	Account     string       `json:"account"`
	Location    string       `json:"location"`
	Outcome     FetchOutcome `json:"outcome"`
	ReviewCount int          `json:"review_count"`
	LatencyMs   int64        `json:"latency_ms"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// FetchSummary aggregates the fetch log.
type FetchSummary struct {
	Total       int        `json:"total"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastFailure *time.Time `json:"last_failure,omitempty"`
}
