package discovery

import "strings"

// Tables holds the fixed lookup sets the filter and scorer consult. A Tables
// value is built once and only read afterwards, so one instance can be shared
// by concurrent runs.
type Tables struct {
	blocked  map[string]struct{}
	paywall  map[string]struct{}
	tracking []string

	levelPhrases  map[Level][]string
	keywords      []string
	articleShapes []string
	toolShapes    []string
	relevance     []weighted
	signalHit     int // topic signal in url+title
	signalSnippet int // topic signal only in snippet
	levelMatch    int
	levelMismatch int
	keywordWeight int
	articleWeight int
	toolWeight    int
}

type weighted struct {
	phrase string
	points int
}

var (
	blockedHosts = []string{
		// video and social
		"youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be",
		"vimeo.com", "www.vimeo.com",
		"tiktok.com", "www.tiktok.com",
		"instagram.com", "www.instagram.com",
		"facebook.com", "www.facebook.com", "m.facebook.com",
		"twitter.com", "www.twitter.com", "x.com", "www.x.com",
		// search engines and their click redirects
		"bing.com", "www.bing.com",
		"duckduckgo.com", "html.duckduckgo.com",
		// diagram templates
		"mural.co", "www.mural.co",
		"lucidchart.com", "www.lucidchart.com",
		"canva.com", "www.canva.com",
	}

	paywallHosts = []string{
		"educative.io", "www.educative.io",
		"medium.com", "www.medium.com",
		"leetcode.com", "www.leetcode.com",
		"dzone.com", "www.dzone.com",
	}

	trackingSubstrings = []string{
		"bing.com/aclick", "aclick?", "duckduckgo.com/y.js",
		"utm_", "gclid=", "fbclid=", "msclkid=",
	}
)

var defaultTables = NewTables(nil, nil)

// DefaultTables returns the shared built-in tables.
func DefaultTables() *Tables {
	return defaultTables
}

// NewTables builds the built-in tables plus extra blocked and paywall hosts.
func NewTables(extraBlocked, extraPaywall []string) *Tables {
	return &Tables{
		blocked:  hostSet(blockedHosts, extraBlocked),
		paywall:  hostSet(paywallHosts, extraPaywall),
		tracking: trackingSubstrings,
		levelPhrases: map[Level][]string{
			HLD: {"high level", "high-level", "hld"},
			LLD: {"low level", "low-level", "lld"},
		},
		keywords: []string{
			"components", "data flow", "request flow", "sequence",
			"cache", "database", "queue", "load balancer", "api gateway",
			"microservice", "services", "scalability", "consistency", "latency",
		},
		articleShapes: []string{"/blog", "/post", "/p/", "/guides", "system-design", "architecture", "interview"},
		toolShapes:    []string{"template", "download", "tool", "generator", "pricing", "login", "signup"},
		relevance: []weighted{
			{"system design", 8},
			{"architecture", 4},
		},
		signalHit:     6,
		signalSnippet: 3,
		levelMatch:    4,
		levelMismatch: 1,
		keywordWeight: 2,
		articleWeight: 2,
		toolWeight:    -3,
	}
}

func hostSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, l := range lists {
		for _, h := range l {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				set[h] = struct{}{}
			}
		}
	}
	return set
}

// Blocked reports whether host is never a usable source. Hosts match
// exactly; listing a domain does not cover its subdomains.
func (t *Tables) Blocked(host string) bool {
	_, ok := t.blocked[host]
	return ok
}

// Paywalled reports whether host is a known paywall.
func (t *Tables) Paywalled(host string) bool {
	_, ok := t.paywall[host]
	return ok
}
