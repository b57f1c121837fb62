package analyzer

import (
	"strings"
	"testing"
)

// benchmarkBody builds an article-like page of roughly size bytes.
func benchmarkBody(size int) []byte {
	sb := strings.Builder{}
	sb.Grow(size)

	paragraphs := []string{
		"<p>The rider app talks to an API gateway that fans requests out to the dispatch service.</p>",
		"<p>Location updates land in a message queue and are consumed by the matching workers.</p>",
		"<p>A write-through cache sits in front of the trip database to keep read latency low.</p>",
		`<figure><img src="/img/hld.png" alt="high level design"></figure>`,
		"<p>Scalability comes from sharding drivers by geohash cell.</p>",
	}

	for sb.Len() < size {
		for _, p := range paragraphs {
			sb.WriteString(p)
		}
	}
	return []byte(sb.String())
}

func BenchmarkAnalyze_Small(b *testing.B) {
	body := benchmarkBody(1024)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Analyze(body)
	}
}

func BenchmarkAnalyze_Large(b *testing.B) {
	body := benchmarkBody(512 * 1024)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Analyze(body)
	}
}
