// Package analyzer scores fetched page bodies for system-design content.
package analyzer

import (
	"bytes"
	"strings"
)

// SignalPhrases are the phrases a system-design write-up tends to contain.
// Each one present in a body is worth one point.
var SignalPhrases = []string{
	"system design",
	"architecture",
	"high level design",
	"low level design",
	"components",
	"data flow",
	"request flow",
	"sequence diagram",
	"load balancer",
	"api gateway",
	"cache",
	"database",
	"message queue",
	"microservice",
	"scalability",
	"consistency",
	"latency",
	"throughput",
}

var diagramWords = []string{"diagram", "architecture"}

// BodySignals is what Analyze found in one body.
type BodySignals struct {
	Phrases []string // signal phrases present, in SignalPhrases order
	Image   bool     // an <img tag is present
	Diagram bool     // "diagram" or "architecture" appears
}

// Score is one point per phrase, plus two for an image and two for diagram
// wording.
func (s BodySignals) Score() int {
	score := len(s.Phrases)
	if s.Image {
		score += 2
	}
	if s.Diagram {
		score += 2
	}
	return score
}

// Analyze scans body case-insensitively. Each phrase counts once no matter
// how often it repeats.
func Analyze(body []byte) BodySignals {
	lower := string(bytes.ToLower(body))
	return BodySignals{
		Phrases: Present(lower, SignalPhrases),
		Image:   strings.Contains(lower, "<img"),
		Diagram: len(Present(lower, diagramWords)) > 0,
	}
}

// Present returns the terms found in text, which must already be lowercased.
// Terms are matched as given.
func Present(text string, terms []string) []string {
	var found []string
	for _, t := range terms {
		if t != "" && strings.Contains(text, t) {
			found = append(found, t)
		}
	}
	return found
}
