package discovery

import (
	"net/url"
	"strings"
)

// Check decides whether a raw hit URL may become a candidate. Rules apply in
// order and the first match rejects: empty URL, tracking or ad-click URL,
// no hostname, blocked host, and (unless allowPaywall) paywalled host.
// Malformed URLs are rejections, never errors.
func (t *Tables) Check(rawURL string, allowPaywall bool) (host string, reason Rejection) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", RejectEmptyURL
	}

	lower := strings.ToLower(raw)
	for _, s := range t.tracking {
		if strings.Contains(lower, s) {
			return "", RejectTracking
		}
	}

	host = hostname(raw)
	if host == "" {
		return "", RejectEmptyHost
	}
	if t.Blocked(host) {
		return host, RejectBlocked
	}
	if !allowPaywall && t.Paywalled(host) {
		return host, RejectPaywall
	}
	return host, Accepted
}

// parseLoose parses raw, treating a scheme-less "host/path" as https.
func parseLoose(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" && u.Host == "" && u.Path != "" && !strings.HasPrefix(u.Path, "/") {
		return url.Parse("https://" + raw)
	}
	return u, nil
}

// hostname returns the lowercased hostname of raw without port, or "".
func hostname(raw string) string {
	u, err := parseLoose(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
