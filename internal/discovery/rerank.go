package discovery

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/FranksOps/linkscout/internal/analyzer"
	"github.com/FranksOps/linkscout/internal/gate"
	"github.com/FranksOps/linkscout/internal/storage"
	"github.com/FranksOps/linkscout/pkg/workpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Reranker rescores ranked candidates with a more expensive signal. It
// returns the survivors in their new order and the candidates it excluded.
type Reranker interface {
	Rerank(ctx context.Context, cands []Candidate, allowPaywall bool) ([]Candidate, []Exclusion)
}

// Exclusion is a candidate dropped by the reranker and the reason.
type Exclusion struct {
	Candidate Candidate `json:"candidate"`
	Reason    string    `json:"reason"`
}

// PageFetcher performs a single GET. Failures are reported on the result.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*storage.FetchResult, error)
}

// RobotsChecker answers robots.txt questions.
type RobotsChecker interface {
	IsAllowed(ctx context.Context, url string, userAgent string) (bool, error)
}

const (
	DefaultRerankTopN    = 10
	DefaultRerankTimeout = 10 * time.Second
	defaultRobotsAgent   = "linkscout"
)

// Reasons recorded on rerank exclusions besides fetch failures.
const (
	ReasonDeadline  = "deadline exceeded"
	ReasonRobots    = "disallowed by robots.txt"
	ReasonPaywalled = "paywalled page"
	ReasonNotRanked = "below rerank cutoff"
)

// LightScrape fetches the top candidates and scores them by the system
// design signals in their markup. A candidate whose fetch fails or returns
// an error status is excluded outright.
type LightScrape struct {
	Fetcher PageFetcher
	// TopN candidates are fetched; the rest are excluded. Zero means 10.
	TopN int
	// Width bounds concurrent fetches. Zero means workpool.DefaultWidth.
	Width int
	// Timeout bounds each fetch. Zero means 10s.
	Timeout time.Duration
	// NewRobots, when set, builds a robots.txt checker for one Rerank call.
	NewRobots   func() RobotsChecker
	RobotsAgent string
	Logger      *slog.Logger
}

type rerankOutcome struct {
	score  int
	reason string
}

// Rerank implements Reranker.
func (l *LightScrape) Rerank(ctx context.Context, cands []Candidate, allowPaywall bool) ([]Candidate, []Exclusion) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topN := l.TopN
	if topN <= 0 {
		topN = DefaultRerankTopN
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultRerankTimeout
	}
	agent := l.RobotsAgent
	if agent == "" {
		agent = defaultRobotsAgent
	}

	n := min(topN, len(cands))
	tracer := otel.Tracer("linkscout-discovery")
	ctx, span := tracer.Start(ctx, "discovery.rerank", trace.WithAttributes(
		attribute.Int("candidates", n),
		attribute.Bool("allow_paywall", allowPaywall),
	))
	defer span.End()

	var robots RobotsChecker
	if l.NewRobots != nil {
		robots = l.NewRobots()
	}

	outcomes, done := workpool.Gather(ctx, l.Width, n, func(ctx context.Context, i int) rerankOutcome {
		return l.score(ctx, cands[i], allowPaywall, timeout, robots, agent)
	})

	var (
		kept     = make([]Candidate, 0, n)
		excluded []Exclusion
	)
	for i := range n {
		c := cands[i]
		reason := ReasonDeadline
		if done[i] {
			reason = outcomes[i].reason
		}
		if reason != "" {
			logger.Debug("rerank excluded candidate", "url", c.CanonicalURL, "reason", reason)
			excluded = append(excluded, Exclusion{Candidate: c, Reason: reason})
			continue
		}
		c.Score = outcomes[i].score
		kept = append(kept, c)
	}
	for _, c := range cands[n:] {
		excluded = append(excluded, Exclusion{Candidate: c, Reason: ReasonNotRanked})
	}

	// Equal body scores keep their heuristic order.
	slices.SortStableFunc(kept, func(a, b Candidate) int {
		return b.Score - a.Score
	})

	span.SetAttributes(attribute.Int("kept", len(kept)), attribute.Int("excluded", len(excluded)))
	span.SetStatus(codes.Ok, "reranked")
	return kept, excluded
}

func (l *LightScrape) score(ctx context.Context, c Candidate, allowPaywall bool, timeout time.Duration, robots RobotsChecker, agent string) rerankOutcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if robots != nil {
		allowed, err := robots.IsAllowed(ctx, c.CanonicalURL, agent)
		if err == nil && !allowed {
			return rerankOutcome{reason: ReasonRobots}
		}
	}

	res, err := l.Fetcher.Fetch(ctx, c.CanonicalURL)
	if err != nil {
		return rerankOutcome{reason: err.Error()}
	}
	if res.Failed() {
		return rerankOutcome{reason: res.Reason()}
	}
	if !allowPaywall && gate.Paywalled(res.Body) {
		return rerankOutcome{reason: ReasonPaywalled}
	}
	return rerankOutcome{score: analyzer.Analyze(res.Body).Score()}
}
