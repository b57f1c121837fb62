package storage

import (
	"context"
	"fmt"
	"time"
)

// FetchResult represents the outcome of a single page fetch.
type FetchResult struct {
	ID           string
	URL          string
	Method       string
	StatusCode   int
	Headers      map[string][]string
	Body         []byte
	Duration     time.Duration
	DetectedBot  bool
	DetectionSrc string // e.g. "Cloudflare", "Akamai", "PerimeterX", "DataDome", "Paywall"
	CreatedAt    time.Time
	Error        string // non-empty if the fetch failed before an HTTP response
}

// Failed reports whether the fetch is unusable: a transport error or an HTTP
// error status.
func (r *FetchResult) Failed() bool {
	return r == nil || r.Error != "" || r.StatusCode >= 400 || r.StatusCode == 0
}

// Reason describes why a failed fetch is unusable. It is empty for a
// successful fetch.
func (r *FetchResult) Reason() string {
	switch {
	case r == nil:
		return "no result"
	case r.Error != "":
		return r.Error
	case r.StatusCode == 0:
		return "no response"
	case r.StatusCode >= 400:
		return fmt.Sprintf("http %d", r.StatusCode)
	}
	return ""
}

// QueryOutcome records what one search query produced.
type QueryOutcome struct {
	Query string `json:"query"`
	Hits  int    `json:"hits"`
	Error string `json:"error,omitempty"`
}

// RankedLink is one URL in a run's output, or one candidate that was
// excluded along the way.
type RankedLink struct {
	URL      string `json:"url"`
	Host     string `json:"host"`
	Score    int    `json:"score"`
	Phase    string `json:"phase"` // "heuristic" or "rerank"
	Excluded string `json:"excluded,omitempty"`
}

// RunRecord is the audit record of one discovery invocation. Records are
// written after a run completes and are never consulted by later runs.
type RunRecord struct {
	ID         string         `json:"id"`
	Topic      string         `json:"topic"`
	Level      string         `json:"level"`
	Queries    []QueryOutcome `json:"queries"`
	Rejected   map[string]int `json:"rejected"`
	Candidates int            `json:"candidates"`
	Links      []RankedLink   `json:"links"`
	Excluded   []RankedLink   `json:"excluded"`
	Reranked   bool           `json:"reranked"`
	Duration   time.Duration  `json:"duration"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter allows querying for specific RunRecords.
type Filter struct {
	Topic  string
	Level  string
	Since  *time.Time
	Limit  int
	Offset int
}

// Backend defines the interface for storing and querying run records.
type Backend interface {
	Save(ctx context.Context, record *RunRecord) error
	Query(ctx context.Context, filter Filter) ([]*RunRecord, error)
	Close() error
}

// RunDetail holds the nested parts of a RunRecord that SQL backends persist
// as a single JSON column.
type RunDetail struct {
	Queries  []QueryOutcome `json:"queries"`
	Rejected map[string]int `json:"rejected"`
	Links    []RankedLink   `json:"links"`
	Excluded []RankedLink   `json:"excluded"`
}

// Detail extracts the nested parts of the record.
func (r *RunRecord) Detail() RunDetail {
	return RunDetail{
		Queries:  r.Queries,
		Rejected: r.Rejected,
		Links:    r.Links,
		Excluded: r.Excluded,
	}
}

// SetDetail restores the nested parts of the record.
func (r *RunRecord) SetDetail(d RunDetail) {
	r.Queries = d.Queries
	r.Rejected = d.Rejected
	r.Links = d.Links
	r.Excluded = d.Excluded
}
