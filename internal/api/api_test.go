package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/FranksOps/linkscout/internal/discovery"
	"github.com/FranksOps/linkscout/internal/serp"
	"github.com/FranksOps/linkscout/internal/storage"
	"github.com/google/go-cmp/cmp"
)

type staticProvider struct {
	hits []serp.Hit
}

func (p staticProvider) Name() string { return "static" }

func (p staticProvider) Search(ctx context.Context, query string, limit int) ([]serp.Hit, error) {
	return p.hits, nil
}

type recordingStore struct {
	records []*storage.RunRecord
	filter  storage.Filter
}

func (s *recordingStore) Save(ctx context.Context, rec *storage.RunRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingStore) Query(ctx context.Context, f storage.Filter) ([]*storage.RunRecord, error) {
	s.filter = f
	return s.records, nil
}

func (s *recordingStore) Close() error { return nil }

func newTestServer(t *testing.T, store storage.Backend) *httptest.Server {
	t.Helper()
	provider := staticProvider{hits: []serp.Hit{
		{URL: "https://blog.example.com/p/uber-system-design/", Title: "Uber system design"},
		{URL: "https://www.youtube.com/watch?v=1", Title: "Uber video"},
		{URL: "https://other.example.com/uber", Title: "Uber notes"},
	}}
	opts := []discovery.Option{}
	if store != nil {
		opts = append(opts, discovery.WithStore(store))
	}
	d := discovery.New(provider, opts...)
	srv := NewServer(d, store, discovery.Request{MaxLinks: 5}, nil)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestDiscover(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/discover", `{"topic":"Uber"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out DiscoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if out.RunID == "" {
		t.Error("expected a run id")
	}
	if out.Level != "HLD" {
		t.Errorf("expected level to default to HLD, got %q", out.Level)
	}
	want := []string{"https://blog.example.com/p/uber-system-design", "https://other.example.com/uber"}
	if diff := cmp.Diff(want, out.Links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
	if len(out.Candidates) != 2 || out.Excluded == nil {
		t.Errorf("unexpected candidates/excluded: %+v / %+v", out.Candidates, out.Excluded)
	}
}

func TestDiscover_MaxLinks(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/discover", `{"topic":"Uber","level":"lld","max_links":1}`)
	defer resp.Body.Close()

	var out DiscoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(out.Links) != 1 || out.Level != "LLD" {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestDiscover_BadRequests(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty topic", `{"topic":"  "}`},
		{"bad level", `{"topic":"Uber","level":"MLD"}`},
		{"malformed json", `{"topic":`},
		{"unknown field", `{"topic":"Uber","make_gif":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/discover", tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
			var out errorResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Error == "" {
				t.Errorf("expected an error body, got %+v (%v)", out, err)
			}
		})
	}
}

func TestDiscover_WrongMethod(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/discover")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/discover", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected allow-origin *, got %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("expected POST in allowed methods, got %q", got)
	}

	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected allow-origin on plain responses, got %q", got)
	}
}

func TestRuns_NoStore(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRuns(t *testing.T) {
	store := &recordingStore{}
	ts := newTestServer(t, store)

	resp := postJSON(t, ts.URL+"/api/discover", `{"topic":"Uber"}`)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/runs?topic=Uber&limit=3&offset=1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var records []*storage.RunRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("failed to decode runs: %v", err)
	}
	if len(records) != 1 || records[0].Topic != "Uber" {
		t.Errorf("unexpected records: %+v", records)
	}
	if diff := cmp.Diff(storage.Filter{Topic: "Uber", Limit: 3, Offset: 1}, store.filter); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}

	bad, err := http.Get(ts.URL + "/api/runs?limit=-1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", bad.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from healthz, got %d", resp.StatusCode)
	}

	// run something so the discovery metrics have samples
	postJSON(t, ts.URL+"/api/discover", `{"topic":"Uber"}`).Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	if !strings.Contains(buf.String(), "linkscout_discover_duration_seconds") {
		t.Error("expected discovery metrics to be exposed")
	}
}

func TestDiscover_RunnerFailure(t *testing.T) {
	srv := NewServer(failingRunner{}, nil, discovery.Request{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/discover", strings.NewReader(`{"topic":"x"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for a non-input failure, got %d", rec.Code)
	}
}

type failingRunner struct{}

func (failingRunner) Run(ctx context.Context, req discovery.Request) (*discovery.Run, error) {
	return nil, errors.New("boom")
}
