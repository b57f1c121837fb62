package jsonbackend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/linkscout/internal/storage"
)

func TestJSONBackend(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "runs.jsonl")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond).UTC()

	older := &storage.RunRecord{
		ID:         "json1",
		Topic:      "uber",
		Level:      "HLD",
		Queries:    []storage.QueryOutcome{{Query: "uber", Hits: 4}},
		Candidates: 4,
		Links:      []storage.RankedLink{{URL: "https://a.example.com/uber", Host: "a.example.com", Score: 20, Phase: "heuristic"}},
		CreatedAt:  now.Add(-2 * time.Hour),
	}
	newer := &storage.RunRecord{
		ID:         "json2",
		Topic:      "dns",
		Level:      "LLD",
		Candidates: 2,
		Reranked:   true,
		Excluded:   []storage.RankedLink{{URL: "https://b.example.com/x", Host: "b.example.com", Excluded: "timeout"}},
		CreatedAt:  now.Add(-1 * time.Hour),
	}

	// Written out of chronological order on purpose.
	if err := b.Save(ctx, newer); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}
	if err := b.Save(ctx, older); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	byTopic, err := b.Query(ctx, storage.Filter{Topic: "uber"})
	if err != nil {
		t.Fatalf("Failed to query by topic: %v", err)
	}
	if len(byTopic) != 1 || byTopic[0].ID != "json1" {
		t.Fatalf("Expected json1 for topic filter, got %+v", byTopic)
	}
	if byTopic[0].Links[0].Score != 20 {
		t.Errorf("Expected link score 20, got %d", byTopic[0].Links[0].Score)
	}

	byLevel, err := b.Query(ctx, storage.Filter{Level: "LLD"})
	if err != nil {
		t.Fatalf("Failed to query by level: %v", err)
	}
	if len(byLevel) != 1 || !byLevel[0].Reranked {
		t.Fatalf("Expected one reranked LLD record, got %+v", byLevel)
	}

	past := now.Add(-90 * time.Minute)
	since, err := b.Query(ctx, storage.Filter{Since: &past})
	if err != nil {
		t.Fatalf("Failed to query by since: %v", err)
	}
	if len(since) != 1 || since[0].ID != "json2" {
		t.Fatalf("Expected json2 for since filter, got %+v", since)
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(all))
	}
	if all[0].ID != "json2" {
		t.Errorf("Expected newest record first, got %s", all[0].ID)
	}

	limited, err := b.Query(ctx, storage.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(limited))
	}

	offset, err := b.Query(ctx, storage.Filter{Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query offset: %v", err)
	}
	if len(offset) != 1 || offset[0].ID != "json1" {
		t.Fatalf("Expected json1 at offset 1, got %+v", offset)
	}

	beyond, err := b.Query(ctx, storage.Filter{Offset: 5})
	if err != nil {
		t.Fatalf("Failed to query past end: %v", err)
	}
	if len(beyond) != 0 {
		t.Errorf("Expected no records past end, got %d", len(beyond))
	}
}
