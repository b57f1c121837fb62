package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/FranksOps/linkscout/internal/storage"
	"github.com/segmentio/ksuid"
)

func TestPostgresBackend(t *testing.T) {
	// Only run this test if LINKSCOUT_TEST_PG_DSN is set
	dsn := os.Getenv("LINKSCOUT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres backend test: LINKSCOUT_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	b, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create Postgres backend: %v", err)
	}
	defer b.Close()

	now := time.Now().UTC()
	topic := "pg-" + ksuid.New().String()

	rec := &storage.RunRecord{
		ID:         ksuid.New().String(),
		Topic:      topic,
		Level:      "LLD",
		Queries:    []storage.QueryOutcome{{Query: topic, Hits: 3}},
		Rejected:   map[string]int{"paywall": 1},
		Candidates: 3,
		Links: []storage.RankedLink{
			{URL: "https://example-pg.com/design", Host: "example-pg.com", Score: 9, Phase: "rerank"},
		},
		Reranked:  true,
		Duration:  50 * time.Millisecond,
		CreatedAt: now,
	}

	if err := b.Save(ctx, rec); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	results, err := b.Query(ctx, storage.Filter{Topic: topic, Level: "LLD"})
	if err != nil {
		t.Fatalf("Failed to query records: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(results))
	}

	got := results[0]
	if got.ID != rec.ID {
		t.Errorf("Expected ID %s, got %s", rec.ID, got.ID)
	}
	if !got.Reranked {
		t.Errorf("Expected Reranked to round trip")
	}
	if len(got.Links) != 1 || got.Links[0].Phase != "rerank" {
		t.Errorf("Expected rerank link, got %+v", got.Links)
	}
	if got.Rejected["paywall"] != 1 {
		t.Errorf("Expected 1 paywall rejection, got %v", got.Rejected)
	}
}
