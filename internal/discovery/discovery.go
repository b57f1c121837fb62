// Package discovery finds and ranks web pages that explain how a system is
// designed. A run builds search queries for a topic, filters and
// canonicalizes the hits, scores them heuristically, removes duplicates,
// caps results per host, optionally reranks by page content and selects the
// best links.
package discovery

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/FranksOps/linkscout/internal/metrics"
	"github.com/FranksOps/linkscout/internal/serp"
	"github.com/FranksOps/linkscout/internal/storage"
	"github.com/FranksOps/linkscout/pkg/workpool"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultQueryTimeout = 20 * time.Second
	saveTimeout         = 5 * time.Second
)

// Discoverer runs discovery requests. It holds no per-run state and is safe
// for concurrent use.
type Discoverer struct {
	provider     serp.Provider
	reranker     Reranker
	tables       *Tables
	width        int
	queryTimeout time.Duration
	store        storage.Backend
	logger       *slog.Logger
	tracer       trace.Tracer
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithReranker sets the reranker used when a request enables reranking.
func WithReranker(r Reranker) Option {
	return func(d *Discoverer) { d.reranker = r }
}

// WithTables replaces the default lookup tables.
func WithTables(t *Tables) Option {
	return func(d *Discoverer) { d.tables = t }
}

// WithWidth bounds how many search queries run at once.
func WithWidth(n int) Option {
	return func(d *Discoverer) { d.width = n }
}

// WithQueryTimeout bounds each search query.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(d *Discoverer) { d.queryTimeout = timeout }
}

// WithStore records every run in b.
func WithStore(b storage.Backend) Option {
	return func(d *Discoverer) { d.store = b }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Discoverer) { d.logger = l }
}

// New creates a Discoverer that searches through provider.
func New(provider serp.Provider, opts ...Option) *Discoverer {
	d := &Discoverer{
		provider:     provider,
		tables:       DefaultTables(),
		width:        workpool.DefaultWidth,
		queryTimeout: defaultQueryTimeout,
		tracer:       otel.Tracer("linkscout-discovery"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.tables == nil {
		d.tables = DefaultTables()
	}
	return d
}

// Run is everything one discovery call produced.
type Run struct {
	ID       string
	Request  Request
	Queries  []storage.QueryOutcome
	Rejected map[Rejection]int
	// Ranked is the heuristic ranking after dedupe and the per-host cap.
	Ranked    []Candidate
	Links     []Candidate
	Excluded  []Exclusion
	Reranked  bool
	StartedAt time.Time
	Duration  time.Duration
}

// URLs returns the selected canonical URLs in rank order.
func (r *Run) URLs() []string {
	urls := make([]string, 0, len(r.Links))
	for _, c := range r.Links {
		urls = append(urls, c.CanonicalURL)
	}
	return urls
}

// Record converts the run into its storage form.
func (r *Run) Record() *storage.RunRecord {
	phase := "heuristic"
	if r.Reranked {
		phase = "rerank"
	}
	rec := &storage.RunRecord{
		ID:         r.ID,
		Topic:      r.Request.Topic,
		Level:      string(r.Request.Level),
		Queries:    r.Queries,
		Rejected:   make(map[string]int, len(r.Rejected)),
		Candidates: len(r.Ranked),
		Links:      make([]storage.RankedLink, 0, len(r.Links)),
		Reranked:   r.Reranked,
		Duration:   r.Duration,
		CreatedAt:  r.StartedAt,
	}
	for reason, n := range r.Rejected {
		rec.Rejected[string(reason)] = n
	}
	for _, c := range r.Links {
		rec.Links = append(rec.Links, storage.RankedLink{URL: c.CanonicalURL, Host: c.Host, Score: c.Score, Phase: phase})
	}
	for _, e := range r.Excluded {
		rec.Excluded = append(rec.Excluded, storage.RankedLink{
			URL:      e.Candidate.CanonicalURL,
			Host:     e.Candidate.Host,
			Score:    e.Candidate.Score,
			Phase:    "rerank",
			Excluded: e.Reason,
		})
	}
	return rec
}

// Discover returns up to req.MaxLinks canonical URLs ranked best first. It
// fails only for a bad request; search and fetch failures shrink the result.
func (d *Discoverer) Discover(ctx context.Context, req Request) ([]string, error) {
	run, err := d.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return run.URLs(), nil
}

type queryResult struct {
	hits []serp.Hit
	err  error
}

// Run performs one discovery and returns the full record of it.
func (d *Discoverer) Run(ctx context.Context, req Request) (*Run, error) {
	req, err := req.normalize()
	if err != nil {
		return nil, err
	}

	if req.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Deadline)
		defer cancel()
	}

	run := &Run{
		ID:        ksuid.New().String(),
		Request:   req,
		Rejected:  make(map[Rejection]int),
		StartedAt: time.Now(),
	}

	ctx, span := d.tracer.Start(ctx, "discovery.run", trace.WithAttributes(
		attribute.String("run_id", run.ID),
		attribute.String("topic", req.Topic),
		attribute.String("level", string(req.Level)),
		attribute.Int("max_links", req.MaxLinks),
		attribute.Bool("rerank", req.EnableRerank),
	))
	defer span.End()

	logger := d.logger.With("run_id", run.ID, "topic", req.Topic, "level", req.Level)

	queries := BuildQueries(req.Topic, req.Level)
	results, done := workpool.Gather(ctx, d.width, len(queries), func(ctx context.Context, i int) queryResult {
		return d.search(ctx, queries[i], req.MaxResultsPerQuery)
	})

	signals := TopicSignals(req.Topic)
	var cands []Candidate
	order := 0
	for i, q := range queries {
		outcome := storage.QueryOutcome{Query: q}
		switch {
		case !done[i]:
			outcome.Error = ReasonDeadline
		case results[i].err != nil:
			outcome.Error = results[i].err.Error()
			logger.Warn("search query failed", "query", q, "error", results[i].err)
		default:
			outcome.Hits = len(results[i].hits)
		}
		run.Queries = append(run.Queries, outcome)
		if !done[i] {
			continue
		}

		for _, hit := range results[i].hits {
			order++
			host, reason := d.tables.Check(hit.URL, req.AllowPaywall)
			if reason != Accepted {
				run.Rejected[reason]++
				continue
			}
			c := Candidate{
				RawURL:       hit.URL,
				CanonicalURL: Canonicalize(hit.URL),
				Host:         host,
				Title:        hit.Title,
				Snippet:      hit.Snippet,
				Order:        order,
				Query:        i,
			}
			c.Score = d.tables.Score(&c, signals, req.Level)
			cands = append(cands, c)
		}
	}

	metrics.RecordCandidates("filter", "accepted", len(cands))
	for reason, n := range run.Rejected {
		metrics.RecordCandidates("filter", string(reason), n)
	}

	SortByScore(cands)
	deduped := Dedupe(cands)
	metrics.RecordCandidates("dedupe", "dropped", len(cands)-len(deduped))
	run.Ranked = LimitPerHost(deduped, req.PerHostCap)
	metrics.RecordCandidates("host_cap", "dropped", len(deduped)-len(run.Ranked))

	final := run.Ranked
	if req.EnableRerank && d.reranker != nil {
		if ctx.Err() != nil {
			logger.Warn("deadline reached before rerank, keeping heuristic order")
		} else {
			final, run.Excluded = d.reranker.Rerank(ctx, run.Ranked, req.AllowPaywall)
			run.Reranked = true
			metrics.RecordCandidates("rerank", "excluded", len(run.Excluded))
		}
	}

	run.Links = Select(final, req.MaxLinks)
	run.Duration = time.Since(run.StartedAt)

	metrics.RecordCandidates("select", "selected", len(run.Links))
	metrics.DiscoverDuration.WithLabelValues(strconv.FormatBool(run.Reranked)).Observe(run.Duration.Seconds())

	span.SetAttributes(attribute.Int("links", len(run.Links)), attribute.Int("candidates", len(run.Ranked)))
	if len(run.Links) == 0 {
		span.SetStatus(codes.Error, "no links found")
	} else {
		span.SetStatus(codes.Ok, "links found")
	}

	logger.Info("discovery finished",
		"links", len(run.Links),
		"candidates", len(run.Ranked),
		"reranked", run.Reranked,
		"duration", run.Duration,
	)

	d.save(ctx, run, logger)
	return run, nil
}

func (d *Discoverer) search(ctx context.Context, query string, limit int) queryResult {
	if d.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.queryTimeout)
		defer cancel()
	}

	ctx, span := d.tracer.Start(ctx, "discovery.search", trace.WithAttributes(
		attribute.String("provider", d.provider.Name()),
		attribute.String("query", query),
		attribute.Int("limit", limit),
	))
	defer span.End()

	hits, err := d.provider.Search(ctx, query, limit)
	metrics.RecordQuery(d.provider.Name(), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return queryResult{err: err}
	}
	span.SetAttributes(attribute.Int("hits", len(hits)))
	span.SetStatus(codes.Ok, "search succeeded")
	return queryResult{hits: hits}
}

// save writes the run record. The run's own deadline does not apply, so a
// run that used its whole budget is still recorded.
func (d *Discoverer) save(ctx context.Context, run *Run, logger *slog.Logger) {
	if d.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := d.store.Save(ctx, run.Record()); err != nil {
		logger.Warn("failed to save run record", "error", err)
	}
}
