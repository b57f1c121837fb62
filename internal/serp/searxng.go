package serp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

// SearXNG queries a SearXNG instance through its JSON API. The instance must
// have the json format enabled.
type SearXNG struct {
	getter   Getter
	endpoint string
}

// NewSearXNG creates a provider for the instance at endpoint, e.g.
// "http://localhost:8888".
func NewSearXNG(getter Getter, endpoint string) *SearXNG {
	return &SearXNG{getter: getter, endpoint: strings.TrimRight(endpoint, "/")}
}

// Name returns the provider name.
func (s *SearXNG) Name() string {
	return "searxng"
}

type searxResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search runs query and returns up to limit hits in the instance's order.
func (s *SearXNG) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if s.endpoint == "" {
		return nil, unavailable(errors.New("searxng: no endpoint configured"))
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	target := s.endpoint + "/search?" + params.Encode()

	res, _ := s.getter.FetchWithHeader(ctx, target, http.Header{"Accept": {"application/json"}})
	if err := fetchFailure(s.Name(), res); err != nil {
		return nil, err
	}

	var payload searxResponse
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return nil, unavailable(errors.Wrapf(err, "searxng: decode response"))
	}

	hits := make([]Hit, 0, len(payload.Results))
	for _, r := range payload.Results {
		hits = append(hits, Hit{
			URL:     strings.TrimSpace(r.URL),
			Title:   cleanText(r.Title),
			Snippet: cleanText(r.Content),
		})
	}
	return truncate(hits, limit), nil
}
