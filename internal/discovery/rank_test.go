package discovery

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func urlsOf(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.CanonicalURL)
	}
	return out
}

func TestSortByScore_TiesKeepDiscoveryOrder(t *testing.T) {
	cands := []Candidate{
		{CanonicalURL: "c", Score: 5, Order: 3},
		{CanonicalURL: "a", Score: 5, Order: 1},
		{CanonicalURL: "d", Score: 9, Order: 4},
		{CanonicalURL: "b", Score: 5, Order: 2},
		{CanonicalURL: "e", Score: -1, Order: 0},
	}
	SortByScore(cands)

	want := []string{"d", "a", "b", "c", "e"}
	if diff := cmp.Diff(want, urlsOf(cands)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDedupe(t *testing.T) {
	cands := []Candidate{
		{CanonicalURL: "https://a.com/x", Score: 10, Order: 2},
		{CanonicalURL: "https://b.com/y", Score: 8, Order: 1},
		{CanonicalURL: "https://a.com/x", Score: 8, Order: 5},
		{CanonicalURL: "https://c.com/z", Score: 1, Order: 3},
		{CanonicalURL: "https://b.com/y", Score: 0, Order: 4},
	}
	got := Dedupe(cands)

	want := []Candidate{cands[0], cands[1], cands[3]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Dedupe mismatch (-want +got):\n%s", diff)
	}
}

func TestLimitPerHost(t *testing.T) {
	cands := []Candidate{
		{CanonicalURL: "1", Host: "a.com"},
		{CanonicalURL: "2", Host: "a.com"},
		{CanonicalURL: "3", Host: "b.com"},
		{CanonicalURL: "4", Host: "a.com"},
		{CanonicalURL: "5", Host: "b.com"},
		{CanonicalURL: "6", Host: "c.com"},
	}

	tests := []struct {
		cap  int
		want []string
	}{
		{1, []string{"1", "3", "6"}},
		{2, []string{"1", "2", "3", "5", "6"}},
		{0, []string{"1", "2", "3", "4", "5", "6"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("cap=%d", tt.cap), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, urlsOf(LimitPerHost(cands, tt.cap))); diff != "" {
				t.Errorf("LimitPerHost mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	cands := []Candidate{{CanonicalURL: "1"}, {CanonicalURL: "2"}, {CanonicalURL: "3"}}

	if got := Select(cands, 2); len(got) != 2 || got[1].CanonicalURL != "2" {
		t.Errorf("expected first two, got %v", urlsOf(got))
	}
	if got := Select(cands, 10); len(got) != 3 {
		t.Errorf("expected all 3 without padding, got %d", len(got))
	}
	if got := Select(cands, 0); len(got) != 0 {
		t.Errorf("expected none, got %d", len(got))
	}

	got := Select(cands, 1)
	got[0].CanonicalURL = "changed"
	if cands[0].CanonicalURL != "1" {
		t.Error("Select must not alias its input")
	}
}

func TestRanking_Invariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	hosts := []string{"a.com", "b.com", "c.com", "d.com"}

	for round := range 50 {
		var cands []Candidate
		for i := range 40 {
			host := hosts[rng.IntN(len(hosts))]
			cands = append(cands, Candidate{
				CanonicalURL: fmt.Sprintf("https://%s/%d", host, rng.IntN(8)),
				Host:         host,
				Score:        rng.IntN(20) - 5,
				Order:        i,
			})
		}
		perHost := 1 + round%3

		SortByScore(cands)
		out := LimitPerHost(Dedupe(cands), perHost)

		seenURL := make(map[string]bool)
		perHostCount := make(map[string]int)
		for i, c := range out {
			if seenURL[c.CanonicalURL] {
				t.Fatalf("round %d: duplicate canonical url %s", round, c.CanonicalURL)
			}
			seenURL[c.CanonicalURL] = true

			perHostCount[c.Host]++
			if perHostCount[c.Host] > perHost {
				t.Fatalf("round %d: host %s exceeds cap %d", round, c.Host, perHost)
			}

			if i > 0 && out[i-1].Score < c.Score {
				t.Fatalf("round %d: not sorted by score at %d", round, i)
			}
		}
	}
}
