package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/linkscout/internal/config"
	"github.com/FranksOps/linkscout/internal/discovery"
	"github.com/FranksOps/linkscout/internal/serp"
	"github.com/FranksOps/linkscout/internal/storage"
	"github.com/FranksOps/linkscout/internal/storage/jsonbackend"
	"github.com/google/go-cmp/cmp"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c, err := config.Load("")
	if err != nil {
		t.Fatalf("failed to load default config: %v", err)
	}
	return c
}

func sampleRun() *discovery.Run {
	return &discovery.Run{
		ID:      "2bQrun",
		Request: discovery.Request{Topic: "Uber", Level: discovery.HLD},
		Links: []discovery.Candidate{
			{CanonicalURL: "https://a.example.com/uber", Host: "a.example.com", Score: 20},
			{CanonicalURL: "https://b.example.com/uber", Host: "b.example.com", Score: 12},
		},
		StartedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWriteRun(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"urls", "https://a.example.com/uber\nhttps://b.example.com/uber\n"},
		{"text", "1. [20] https://a.example.com/uber"},
		{"json", `"Topic": "Uber"`},
		{"html", "<title>Link Discovery Report</title>"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeRun(&buf, sampleRun(), tt.format); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected output to contain %q, got:\n%s", tt.want, buf.String())
			}
		})
	}

	if err := writeRun(&bytes.Buffer{}, sampleRun(), "yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNewProvider(t *testing.T) {
	c := testConfig(t)

	p, err := newProvider(c, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*serp.DuckDuckGo); !ok {
		t.Errorf("expected a single DuckDuckGo provider, got %T", p)
	}

	c.Search.Providers = []string{"searxng", "duckduckgo"}
	c.Search.SearXNGURL = "http://127.0.0.1:8888"
	p, err = newProvider(c, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "searxng,duckduckgo" {
		t.Errorf("expected a chain in configured order, got %q", p.Name())
	}

	c.Search.Providers = []string{"altavista"}
	if _, err := newProvider(c, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestOpenStore(t *testing.T) {
	c := testConfig(t)
	ctx := context.Background()

	store, err := openStore(ctx, c)
	if err != nil || store != nil {
		t.Fatalf("expected no store by default, got %v, %v", store, err)
	}

	for _, backend := range []string{"json", "csv", "sqlite"} {
		c.Storage.Backend = backend
		c.Storage.DSN = filepath.Join(t.TempDir(), "runs."+backend)
		store, err := openStore(ctx, c)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", backend, err)
		}
		if err := store.Save(ctx, sampleRun().Record()); err != nil {
			t.Errorf("%s: save failed: %v", backend, err)
		}
		store.Close()
	}

	c.Storage.Backend = "mongo"
	if _, err := openStore(ctx, c); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestDefaultRequest(t *testing.T) {
	c := testConfig(t)
	c.Rerank.Enabled = true
	c.Discovery.MaxLinks = 7

	want := discovery.Request{
		Level:              discovery.HLD,
		MaxLinks:           7,
		MaxResultsPerQuery: 12,
		PerHostCap:         1,
		EnableRerank:       true,
		Deadline:           60 * time.Second,
	}
	if diff := cmp.Diff(want, defaultRequest(c)); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildApp(t *testing.T) {
	c := testConfig(t)
	c.Fetch.Proxies = []string{"127.0.0.1:3128"}

	a, err := buildApp(context.Background(), c, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()
	if a.discoverer == nil {
		t.Fatal("expected a discoverer")
	}

	c.Fetch.Proxies = []string{"http://"}
	if _, err := buildApp(context.Background(), c, slog.Default()); err == nil {
		t.Error("expected error for a proxy without host")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, slog.LevelInfo, "json").Info("hello", "k", "v")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "hello" || line["k"] != "v" {
		t.Errorf("unexpected log line: %v", line)
	}

	buf.Reset()
	newLogger(&buf, slog.LevelWarn, "text").Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}
}

func TestRunsCommand(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "runs.ndjson")

	store, err := jsonbackend.New(dsn)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	rec := sampleRun().Record()
	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	store.Close()

	cfgPath := filepath.Join(dir, "linkscout.yaml")
	content := "storage:\n  backend: json\n  dsn: " + dsn + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--config", cfgPath, "--log-level", "error", "runs", "--format", "json"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("runs command failed: %v", err)
	}

	var records []*storage.RunRecord
	if err := json.Unmarshal(out.Bytes(), &records); err != nil {
		t.Fatalf("failed to decode output %q: %v", out.String(), err)
	}
	if len(records) != 1 || records[0].ID != rec.ID || len(records[0].Links) != 2 {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestWriteRuns_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := writeRuns(&buf, []*storage.RunRecord{sampleRun().Record()}, "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "2bQrun") || !strings.Contains(out, "Uber") {
		t.Errorf("unexpected table:\n%s", out)
	}
}
