package gate

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PaywallHints are phrases that publishers put in front of subscriber-only
// articles. Matched against the page's visible text, lowercased.
var PaywallHints = []string{
	"this post is for paid subscribers",
	"subscribe to continue",
	"sign in to read",
	"become a member",
	"already a paid subscriber",
	"members-only story",
}

// PageText returns the visible text of an HTML document with scripts,
// styles and templates removed. Non-HTML bodies come back as-is.
func PageText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return string(body)
	}
	doc.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Paywalled reports whether the page text carries a paywall hint.
func Paywalled(body []byte) bool {
	text := strings.ToLower(PageText(body))
	for _, h := range PaywallHints {
		if strings.Contains(text, h) {
			return true
		}
	}
	return false
}
