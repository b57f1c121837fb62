package discovery

import (
	"cmp"
	"slices"
)

// SortByScore orders candidates by descending score, breaking ties by
// discovery order.
func SortByScore(cands []Candidate) {
	slices.SortStableFunc(cands, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Order, b.Order)
	})
}

// Dedupe keeps the first candidate for each canonical URL. Input is
// expected in rank order, so the best-scored instance survives in place.
func Dedupe(cands []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if _, ok := seen[c.CanonicalURL]; ok {
			continue
		}
		seen[c.CanonicalURL] = struct{}{}
		out = append(out, c)
	}
	return out
}

// LimitPerHost admits candidates in order while their host has fewer than
// perHost entries. perHost <= 0 disables the cap.
func LimitPerHost(cands []Candidate, perHost int) []Candidate {
	if perHost <= 0 {
		return slices.Clone(cands)
	}
	counts := make(map[string]int)
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if counts[c.Host] >= perHost {
			continue
		}
		counts[c.Host]++
		out = append(out, c)
	}
	return out
}

// Select returns at most maxLinks candidates from the front of cands. It
// never pads.
func Select(cands []Candidate, maxLinks int) []Candidate {
	if maxLinks < 0 {
		maxLinks = 0
	}
	if len(cands) > maxLinks {
		cands = cands[:maxLinks]
	}
	return slices.Clone(cands)
}
