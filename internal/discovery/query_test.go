package discovery

import (
	"strings"
	"testing"
)

func TestBuildQueries(t *testing.T) {
	queries := BuildQueries("Uber", HLD)
	if len(queries) != 4 {
		t.Fatalf("expected 4 queries, got %d", len(queries))
	}
	for i, q := range queries {
		if !strings.HasSuffix(q, negativeClause) {
			t.Errorf("query %d missing negative clause: %q", i, q)
		}
		if !strings.HasPrefix(q, "Uber ") {
			t.Errorf("query %d should start with the bare topic: %q", i, q)
		}
	}
	for i, q := range queries[:3] {
		if !strings.Contains(q, "high level design HLD") {
			t.Errorf("query %d missing level phrase: %q", i, q)
		}
	}
	if !strings.Contains(queries[3], `"how it works" architecture diagram components`) {
		t.Errorf("last query should be the permissive fallback: %q", queries[3])
	}
}

func TestBuildQueries_QuotesMultiWordTopic(t *testing.T) {
	queries := BuildQueries(`  url   "shortener" `, LLD)
	for i, q := range queries {
		if !strings.HasPrefix(q, `"url shortener" `) {
			t.Errorf("query %d should quote the collapsed topic: %q", i, q)
		}
	}
	if !strings.Contains(queries[0], "low level design LLD") {
		t.Errorf("expected LLD phrase, got %q", queries[0])
	}
}

func TestBuildQueries_Deterministic(t *testing.T) {
	a := BuildQueries("Netflix", LLD)
	b := BuildQueries("Netflix", LLD)
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("query %d differs between calls: %q vs %q", i, a[i], b[i])
		}
	}
}
