package models

import "time"

// AccessEntry is one served HTTP request as kept in the access log.
// URL has sensitive query values redacted before it is stored.
type AccessEntry struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Route      string    `json:"route"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	Cache      string    `json:"cache,omitempty"`
	ClientHash string    `json:"client_hash"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// AccessQueryOpts filters access log queries.
type AccessQueryOpts struct {
	RequestID string
	Route     string
	MinStatus int
	Since     time.Time
	Limit     int
}

// AccessStat holds aggregate request counts per route and day.
type AccessStat struct {
	Route  string `json:"route"`
	Day    string `json:"day"`
	Count  int64  `json:"count"`
	Errors int64  `json:"errors"`
}
