package discovery

import (
	"net/url"
	"strings"
)

var trackingParams = map[string]struct{}{
	"gclid":   {},
	"fbclid":  {},
	"msclkid": {},
	"yclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	_, ok := trackingParams[key]
	return ok
}

// Canonicalize normalizes a URL so equivalent forms compare equal: https
// when the scheme is missing, lowercase host (port kept), no fragment, no
// tracking parameters, no trailing slash except for the root path. Remaining
// query parameters keep their order and encoding. Input that does not parse
// as a hierarchical URL is returned unchanged. Canonicalize is idempotent.
func Canonicalize(raw string) string {
	u, err := parseLoose(strings.TrimSpace(raw))
	if err != nil || u.Opaque != "" {
		return raw
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "https"
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteByte('@')
	}
	b.WriteString(strings.ToLower(u.Host))
	b.WriteString(canonicalPath(u.EscapedPath(), u.Host != ""))
	if q := canonicalQuery(u.RawQuery); q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	return b.String()
}

// canonicalPath strips trailing slashes. The root path is kept as "/", and a
// missing path on a URL with a host becomes "/" so "a.com" and "a.com/"
// collapse.
func canonicalPath(p string, hasHost bool) string {
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" && (p != "" || hasHost) {
		return "/"
	}
	return trimmed
}

// canonicalQuery drops tracking parameters from a raw query string without
// re-encoding the parameters it keeps.
func canonicalQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	kept := parts[:0]
	for _, part := range parts {
		if part == "" {
			continue
		}
		key, _, _ := strings.Cut(part, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if isTrackingParam(key) {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "&")
}
