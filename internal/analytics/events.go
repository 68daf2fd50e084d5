package analytics

import "time"

// Mode names the search operation that produced an event.
type Mode string

const (
	ModeSearch Mode = "search"
	ModeBody   Mode = "body"
	ModeTitle  Mode = "title"
	ModeAnchor Mode = "anchor"
)

// SearchEvent records one answered query.
type SearchEvent struct {
	Mode      Mode      `json:"mode"`
	Query     string    `json:"query"`
	Tokens    []string  `json:"tokens"`
	Results   int       `json:"results"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
