package csvbackend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/linkscout/internal/storage"
)

func sampleRecord(id, topic string, created time.Time) *storage.RunRecord {
	return &storage.RunRecord{
		ID:    id,
		Topic: topic,
		Level: "LLD",
		Queries: []storage.QueryOutcome{
			{Query: topic + ` "system design"`, Hits: 4},
		},
		Rejected:   map[string]int{"paywall_host": 1},
		Candidates: 3,
		Links: []storage.RankedLink{
			{URL: "https://a.example.com/x", Host: "a.example.com", Score: 9, Phase: "rerank"},
			{URL: "https://b.example.com/y,z", Host: "b.example.com", Score: 4, Phase: "rerank"},
		},
		Reranked:  true,
		Duration:  2 * time.Second,
		CreatedAt: created,
	}
}

func TestCSVBackend(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "runs.csv")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create CSV backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	if err := b.Save(ctx, sampleRecord("csv1", "dns", now.Add(-2*time.Hour))); err != nil {
		t.Fatalf("Failed to save record 1: %v", err)
	}
	if err := b.Save(ctx, sampleRecord("csv2", "uber", now.Add(-1*time.Hour))); err != nil {
		t.Fatalf("Failed to save record 2: %v", err)
	}

	byTopic, err := b.Query(ctx, storage.Filter{Topic: "uber"})
	if err != nil {
		t.Fatalf("Failed to query by topic: %v", err)
	}
	if len(byTopic) != 1 || byTopic[0].ID != "csv2" {
		t.Fatalf("Expected csv2 for topic filter, got %+v", byTopic)
	}

	got := byTopic[0]
	if !got.Reranked || got.Candidates != 3 || got.Level != "LLD" {
		t.Errorf("Unexpected record header: %+v", got)
	}
	if len(got.Links) != 2 || got.Links[1].URL != "https://b.example.com/y,z" {
		t.Errorf("Expected links to round trip, got %+v", got.Links)
	}
	if got.Rejected["paywall_host"] != 1 {
		t.Errorf("Expected rejections to round trip, got %+v", got.Rejected)
	}
	if got.Duration != 2*time.Second {
		t.Errorf("Expected 2s duration, got %v", got.Duration)
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all: %v", err)
	}
	if len(all) != 2 || all[0].ID != "csv2" {
		t.Fatalf("Expected newest first, got %+v", all)
	}

	since := now.Add(-90 * time.Minute)
	recent, err := b.Query(ctx, storage.Filter{Since: &since})
	if err != nil {
		t.Fatalf("Failed to query with Since: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("Expected 1 recent record, got %d", len(recent))
	}

	paged, err := b.Query(ctx, storage.Filter{Offset: 1, Limit: 5})
	if err != nil {
		t.Fatalf("Failed to query with Offset: %v", err)
	}
	if len(paged) != 1 || paged[0].ID != "csv1" {
		t.Errorf("Expected offset to skip the newest record, got %+v", paged)
	}

	none, err := b.Query(ctx, storage.Filter{Offset: 10})
	if err != nil || len(none) != 0 {
		t.Errorf("Expected empty page past the end, got %v, %v", none, err)
	}
}

func TestCSVBackend_HeaderWrittenOnce(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "runs.csv")

	for i := 0; i < 2; i++ {
		b, err := New(filePath)
		if err != nil {
			t.Fatalf("Failed to create CSV backend: %v", err)
		}
		if err := b.Save(context.Background(), sampleRecord("r", "uber", time.Now())); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
		b.Close()
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if n := strings.Count(string(data), "id,topic,level"); n != 1 {
		t.Errorf("Expected one header row, got %d", n)
	}
}
