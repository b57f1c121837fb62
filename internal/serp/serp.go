// Package serp fetches raw result tuples from web search providers.
package serp

import (
	"context"
	"net/http"

	"github.com/FranksOps/linkscout/internal/storage"
	"github.com/cockroachdb/errors"
)

// Hit is one raw search result. Any field may be empty.
type Hit struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Provider runs a query against a search engine. limit caps the number of
// hits returned; zero results is not an error.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

// Getter is the HTTP capability providers need. *scraper.Fetcher satisfies it.
type Getter interface {
	FetchWithHeader(ctx context.Context, targetURL string, header http.Header) (*storage.FetchResult, error)
}

// ErrorCode classifies provider failures.
type ErrorCode int

const (
	// ErrCodeEmptyQuery is returned for a blank query.
	ErrCodeEmptyQuery ErrorCode = iota + 2000

	// ErrCodeProviderUnavailable is returned when the provider could not be
	// reached, refused the request, or answered with something unparseable.
	ErrCodeProviderUnavailable
)

// String returns the human-readable string representation of the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrCodeEmptyQuery:
		return "empty query"
	case ErrCodeProviderUnavailable:
		return "provider unavailable"
	default:
		return "unknown error"
	}
}

func newErrorWithCode(code ErrorCode, msg string) error {
	err := errors.New(msg)
	return errors.WithSecondaryError(err, errors.Newf("code: %d", int(code)))
}

var (
	// ErrEmptyQuery is returned when a blank query is searched.
	ErrEmptyQuery = newErrorWithCode(ErrCodeEmptyQuery, "serp: empty query")

	// ErrProviderUnavailable wraps every transport, status and parse failure.
	ErrProviderUnavailable = newErrorWithCode(ErrCodeProviderUnavailable, "serp: provider unavailable")
)

// unavailable marks cause as a provider outage while keeping it for logs.
func unavailable(cause error) error {
	return errors.WithSecondaryError(ErrProviderUnavailable, cause)
}

// fetchFailure converts a failed FetchResult into a provider error, or nil
// if the result is usable.
func fetchFailure(name string, res *storage.FetchResult) error {
	if res.DetectedBot {
		return unavailable(errors.Newf("%s: blocked by %s", name, res.DetectionSrc))
	}
	if res.Failed() {
		return unavailable(errors.Newf("%s: %s", name, res.Reason()))
	}
	return nil
}

func truncate(hits []Hit, limit int) []Hit {
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}
