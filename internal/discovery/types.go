package discovery

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Level is the requested depth of a design write-up.
type Level string

const (
	HLD Level = "HLD"
	LLD Level = "LLD"
)

// ParseLevel accepts "hld" or "lld" in any case, surrounding space ignored.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case HLD, LLD:
		return l, nil
	}
	return "", errors.Wrapf(ErrInvalidLevel, "level %q", s)
}

// Valid reports whether l is HLD or LLD.
func (l Level) Valid() bool {
	return l == HLD || l == LLD
}

// Other returns the opposite level.
func (l Level) Other() Level {
	if l == HLD {
		return LLD
	}
	return HLD
}

// Phrase is the wording a level contributes to search queries.
func (l Level) Phrase() string {
	if l == LLD {
		return "low level design LLD"
	}
	return "high level design HLD"
}

// Candidate is a search hit that passed the filter. Score is set by the
// heuristic scorer and replaced by the reranker.
type Candidate struct {
	RawURL       string `json:"raw_url"`
	CanonicalURL string `json:"url"`
	Host         string `json:"host"`
	Title        string `json:"title"`
	Snippet      string `json:"snippet"`
	Score        int    `json:"score"`
	// Order is the discovery position across all queries: query index
	// first, then provider rank. Lower is earlier.
	Order int `json:"order"`
	// Query is the index of the query that produced the hit.
	Query int `json:"query"`
}

// Rejection names why the filter turned a hit away. The zero value accepts.
type Rejection string

const (
	Accepted        Rejection = ""
	RejectEmptyURL  Rejection = "empty_url"
	RejectTracking  Rejection = "tracking_url"
	RejectEmptyHost Rejection = "empty_host"
	RejectBlocked   Rejection = "blocked_host"
	RejectPaywall   Rejection = "paywall_host"
)

// Request is one discovery call.
type Request struct {
	Topic              string
	Level              Level
	MaxLinks           int  // default 5
	MaxResultsPerQuery int  // default 12
	AllowPaywall       bool // keep paywalled hosts and pages
	EnableRerank       bool
	PerHostCap         int // default 1
	// Deadline bounds the whole call. Zero means only ctx bounds it.
	Deadline time.Duration
}

const (
	DefaultMaxLinks           = 5
	DefaultMaxResultsPerQuery = 12
	DefaultPerHostCap         = 1
)

// normalize fills defaults and validates the request.
func (r Request) normalize() (Request, error) {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Topic == "" {
		return r, ErrEmptyTopic
	}
	if !r.Level.Valid() {
		lvl, err := ParseLevel(string(r.Level))
		if err != nil {
			return r, err
		}
		r.Level = lvl
	}
	if r.MaxLinks <= 0 {
		r.MaxLinks = DefaultMaxLinks
	}
	if r.MaxResultsPerQuery <= 0 {
		r.MaxResultsPerQuery = DefaultMaxResultsPerQuery
	}
	if r.PerHostCap <= 0 {
		r.PerHostCap = DefaultPerHostCap
	}
	return r, nil
}
