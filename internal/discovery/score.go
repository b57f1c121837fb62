package discovery

import (
	"regexp"
	"strings"
)

var (
	tokenRe   = regexp.MustCompile(`[a-z0-9]+`)
	acronymRe = regexp.MustCompile(`^[A-Z]{2,6}$`)
)

// TopicSignals derives the strings that mark a page as being about topic:
// its lowercase word tokens of three or more characters (all tokens if none
// are that long), the whole phrase for multi-word topics, and for a short
// all-caps acronym both the lowercase form and its spelled-out letters
// ("DNS" gives "dns" and "d n s"). Order is stable and entries are unique.
func TopicSignals(topic string) []string {
	topic = strings.TrimSpace(topic)
	lower := strings.ToLower(topic)

	var signals []string
	seen := make(map[string]struct{})
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		signals = append(signals, s)
	}

	tokens := tokenRe.FindAllString(lower, -1)
	for _, tok := range tokens {
		if len(tok) >= 3 {
			add(tok)
		}
	}
	if len(signals) == 0 {
		for _, tok := range tokens {
			add(tok)
		}
	}

	if fields := strings.Fields(lower); len(fields) > 1 {
		add(strings.Join(fields, " "))
	}

	if acronymRe.MatchString(topic) {
		add(lower)
		add(strings.Join(strings.Split(lower, ""), " "))
	}
	return signals
}

// Score computes the heuristic relevance of c for the given topic signals
// and level. It is a pure function of its inputs; the result may be negative.
func (t *Tables) Score(c *Candidate, signals []string, level Level) int {
	u := strings.ToLower(c.CanonicalURL)
	urlTitle := u + " " + strings.ToLower(c.Title)
	snippet := strings.ToLower(c.Snippet)
	text := strings.ToLower(c.Title + " " + c.Snippet)

	score := 0

	for _, s := range signals {
		switch {
		case strings.Contains(urlTitle, s):
			score += t.signalHit
		case strings.Contains(snippet, s):
			score += t.signalSnippet
		}
	}

	for _, w := range t.relevance {
		if strings.Contains(text, w.phrase) {
			score += w.points
		}
	}

	if containsAny(text, t.levelPhrases[level]) {
		score += t.levelMatch
	}
	if containsAny(text, t.levelPhrases[level.Other()]) {
		score += t.levelMismatch
	}

	for _, kw := range t.keywords {
		if strings.Contains(text, kw) {
			score += t.keywordWeight
		}
	}

	for _, s := range t.articleShapes {
		if strings.Contains(u, s) {
			score += t.articleWeight
		}
	}
	for _, s := range t.toolShapes {
		if strings.Contains(u, s) {
			score += t.toolWeight
		}
	}

	return score
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
