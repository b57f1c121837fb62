// Package gate recognizes responses that did not deliver the page: bot walls
// served by CDNs and search providers, and subscriber-only paywalls.
package gate

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/FranksOps/linkscout/internal/storage"
)

// Detector examines a fetch result and reports whether a bot wall served it.
type Detector func(res *storage.FetchResult) (detected bool, source string)

// signature describes one vendor's block page.
type signature struct {
	source   string
	statuses []int
	server   string   // substring of the lowercased Server header
	headers  []string // any present header triggers
	markers  []string // any body marker triggers
}

var signatures = []signature{
	{
		source:   "Cloudflare",
		statuses: []int{http.StatusForbidden, http.StatusServiceUnavailable},
		server:   "cloudflare",
		markers:  []string{"cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare"},
	},
	{
		source:   "Akamai",
		statuses: []int{http.StatusForbidden},
		server:   "akamai",
	},
	{
		source:   "DataDome",
		statuses: []int{http.StatusForbidden},
		server:   "datadome",
		headers:  []string{"X-Datadome", "X-Datadome-Response"},
		markers:  []string{"geo.captcha-delivery.com", "datadome"},
	},
	{
		source:   "PerimeterX",
		statuses: []int{http.StatusForbidden},
		headers:  []string{"X-Px-Captcha"},
		markers:  []string{"client.perimeterx.net", "px-captcha", "_pxBlock"},
	},
	{
		// DuckDuckGo answers scripted traffic with a 200/202 anomaly page.
		source:   "DuckDuckGo",
		statuses: []int{http.StatusOK, http.StatusAccepted},
		markers:  []string{"anomaly-modal", "bots use DuckDuckGo too"},
	},
}

func (s signature) match(res *storage.FetchResult) bool {
	statusMatch := false
	for _, code := range s.statuses {
		if res.StatusCode == code {
			statusMatch = true
			break
		}
	}
	if !statusMatch {
		return false
	}

	h := http.Header(res.Headers)
	if s.server != "" && strings.Contains(strings.ToLower(h.Get("Server")), s.server) {
		return true
	}
	for _, name := range s.headers {
		if h.Get(name) != "" || headerFold(res.Headers, name) {
			return true
		}
	}
	for _, m := range s.markers {
		if bytes.Contains(res.Body, []byte(m)) {
			return true
		}
	}
	return false
}

// headerFold catches header maps that were not canonicalized.
func headerFold(headers map[string][]string, name string) bool {
	for k, v := range headers {
		if strings.EqualFold(k, name) && len(v) > 0 && v[0] != "" {
			return true
		}
	}
	return false
}

func detector(s signature) Detector {
	return func(res *storage.FetchResult) (bool, string) {
		if s.match(res) {
			return true, s.source
		}
		return false, ""
	}
}

// detectAkamaiReference catches the generic Akamai "Reference #" block page,
// which needs both markers present.
func detectAkamaiReference(res *storage.FetchResult) (bool, string) {
	if res.StatusCode == http.StatusForbidden &&
		bytes.Contains(res.Body, []byte("Reference #")) &&
		bytes.Contains(res.Body, []byte("Access Denied")) {
		return true, "Akamai"
	}
	return false, ""
}

// DefaultDetectors returns the standard list of bot wall detectors.
func DefaultDetectors() []Detector {
	ds := make([]Detector, 0, len(signatures)+1)
	for _, s := range signatures {
		ds = append(ds, detector(s))
	}
	return append(ds, detectAkamaiReference)
}

// Analyze runs res through detectors, records the first hit on res and
// reports whether anything matched.
func Analyze(res *storage.FetchResult, detectors []Detector) bool {
	if res == nil {
		return false
	}
	res.DetectedBot = false
	res.DetectionSrc = ""
	for _, d := range detectors {
		if detected, source := d(res); detected {
			res.DetectedBot = true
			res.DetectionSrc = source
			return true
		}
	}
	return false
}
