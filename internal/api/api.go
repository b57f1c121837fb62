// Package api serves discovery over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/FranksOps/linkscout/internal/discovery"
	"github.com/FranksOps/linkscout/internal/metrics"
	"github.com/FranksOps/linkscout/internal/storage"
)

const maxRequestBody = 1 << 20

// Runner runs one discovery. *discovery.Discoverer satisfies it.
type Runner interface {
	Run(ctx context.Context, req discovery.Request) (*discovery.Run, error)
}

// Server routes the HTTP API.
type Server struct {
	runner   Runner
	store    storage.Backend
	defaults discovery.Request
	logger   *slog.Logger
}

// NewServer builds a Server. defaults fill the request fields a client
// leaves out. store may be nil, in which case run listing is unavailable.
func NewServer(runner Runner, store storage.Backend, defaults discovery.Request, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if defaults.Level == "" {
		defaults.Level = discovery.HLD
	}
	return &Server{
		runner:   runner,
		store:    store,
		defaults: defaults,
		logger:   logger,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/discover", s.handleDiscover)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	return withCORS(mux)
}

// withCORS lets browser frontends on any origin call the API. Preflight
// requests are answered here since the routes only match their own method.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DiscoverRequest is the POST /api/discover body. Omitted fields take the
// server defaults.
type DiscoverRequest struct {
	Topic              string `json:"topic"`
	Level              string `json:"level"`
	MaxLinks           int    `json:"max_links"`
	MaxResultsPerQuery int    `json:"max_results_per_query"`
	AllowPaywall       *bool  `json:"allow_paywall"`
	EnableRerank       *bool  `json:"enable_rerank"`
}

// DiscoverResponse is the POST /api/discover result.
type DiscoverResponse struct {
	RunID      string                `json:"run_id"`
	Topic      string                `json:"topic"`
	Level      string                `json:"level"`
	Links      []string              `json:"links"`
	Candidates []discovery.Candidate `json:"candidates"`
	Excluded   []discovery.Exclusion `json:"excluded"`
	Reranked   bool                  `json:"reranked"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) request(body DiscoverRequest) discovery.Request {
	req := s.defaults
	req.Topic = body.Topic
	if body.Level != "" {
		req.Level = discovery.Level(body.Level)
	}
	if body.MaxLinks > 0 {
		req.MaxLinks = body.MaxLinks
	}
	if body.MaxResultsPerQuery > 0 {
		req.MaxResultsPerQuery = body.MaxResultsPerQuery
	}
	if body.AllowPaywall != nil {
		req.AllowPaywall = *body.AllowPaywall
	}
	if body.EnableRerank != nil {
		req.EnableRerank = *body.EnableRerank
	}
	return req
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var body DiscoverRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	run, err := s.runner.Run(r.Context(), s.request(body))
	if err != nil {
		if discovery.IsInputError(err) {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("discovery failed", "topic", body.Topic, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "discovery failed"})
		return
	}

	resp := DiscoverResponse{
		RunID:      run.ID,
		Topic:      run.Request.Topic,
		Level:      string(run.Request.Level),
		Links:      run.URLs(),
		Candidates: run.Ranked,
		Excluded:   run.Excluded,
		Reranked:   run.Reranked,
	}
	if resp.Candidates == nil {
		resp.Candidates = []discovery.Candidate{}
	}
	if resp.Excluded == nil {
		resp.Excluded = []discovery.Exclusion{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "run storage is not configured"})
		return
	}

	q := r.URL.Query()
	filter := storage.Filter{
		Topic: q.Get("topic"),
		Level: q.Get("level"),
		Limit: 20,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "offset must be a non-negative integer"})
			return
		}
		filter.Offset = n
	}

	records, err := s.store.Query(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to query runs", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to query runs"})
		return
	}
	if records == nil {
		records = []*storage.RunRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}
