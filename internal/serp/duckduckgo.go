package serp

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
)

// DefaultDuckDuckGoEndpoint is the JavaScript-free results page.
const DefaultDuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the HTML results page.
type DuckDuckGo struct {
	getter   Getter
	endpoint string
}

// NewDuckDuckGo creates a provider. An empty endpoint means the public one.
func NewDuckDuckGo(getter Getter, endpoint string) *DuckDuckGo {
	if endpoint == "" {
		endpoint = DefaultDuckDuckGoEndpoint
	}
	return &DuckDuckGo{getter: getter, endpoint: endpoint}
}

// Name returns the provider name.
func (d *DuckDuckGo) Name() string {
	return "duckduckgo"
}

// Search runs query and parses up to limit hits in page order.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	u, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, unavailable(errors.Wrapf(err, "duckduckgo: bad endpoint"))
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	res, _ := d.getter.FetchWithHeader(ctx, u.String(), http.Header{"Referer": {"https://html.duckduckgo.com/"}})
	if err := fetchFailure(d.Name(), res); err != nil {
		return nil, err
	}

	hits, err := parseDuckDuckGo(res.Body)
	if err != nil {
		return nil, unavailable(errors.Wrapf(err, "duckduckgo: parse results"))
	}
	return truncate(hits, limit), nil
}

func parseDuckDuckGo(body []byte) ([]Hit, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	doc.Find(".result").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		hits = append(hits, Hit{
			URL:     unwrapRedirect(strings.TrimSpace(href)),
			Title:   cleanText(link.Text()),
			Snippet: cleanText(s.Find(".result__snippet").First().Text()),
		})
	})
	return hits, nil
}

// unwrapRedirect pulls the target out of a //duckduckgo.com/l/?uddg= link.
// Ad links (y.js) are left alone so the filter can reject them.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
