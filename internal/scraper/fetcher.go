package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/linkscout/internal/fingerprint"
	"github.com/FranksOps/linkscout/internal/gate"
	"github.com/FranksOps/linkscout/internal/metrics"
	"github.com/FranksOps/linkscout/internal/storage"
	"github.com/FranksOps/linkscout/pkg/httpclient"
	"github.com/FranksOps/linkscout/pkg/proxy"
	"github.com/FranksOps/linkscout/pkg/ratelimit"
	"github.com/FranksOps/linkscout/pkg/useragent"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

const defaultMaxBody = 4 << 20

const defaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"

// FetchConfig configures a Fetcher.
type FetchConfig struct {
	// Kind labels this fetcher's traffic in metrics, e.g. "search" or "page".
	Kind         string
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	Retries      int
	// MaxBodyBytes caps how much of a response body is kept. Zero means 4 MiB.
	MaxBodyBytes int64
	ProxyPool    *proxy.Pool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	// Limiter spaces every request this fetcher makes.
	Limiter *ratelimit.Limiter
	// HostLimiter spaces requests per target host.
	HostLimiter *ratelimit.PerHost
	Logger      *slog.Logger
}

// Fetcher performs single GET requests with UA rotation, fingerprinted TLS,
// proxy rotation and rate limiting. Per-request failures are reported on the
// returned FetchResult, never as a Go error.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
	tracer trace.Tracer
	logger *slog.Logger
}

// NewFetcher builds a Fetcher. One client is shared by all requests so
// connections and cookies (if enabled) are reused.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Kind == "" {
		cfg.Kind = "page"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// The proxy for a request rides in its context so the shared transport
	// can rotate proxies per request.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, fingerprint.Options{Proxy: proxyFunc})
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Retries:      cfg.Retries,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Fetcher{
		config: cfg,
		client: client,
		tracer: otel.Tracer("linkscout-scraper"),
		logger: logger,
	}, nil
}

// UserAgent returns the next User-Agent this fetcher would send.
func (f *Fetcher) UserAgent() string {
	return f.config.UAPool.Next()
}

// Fetch issues a GET for targetURL with browser-like headers.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*storage.FetchResult, error) {
	return f.FetchWithHeader(ctx, targetURL, nil)
}

// FetchWithHeader is Fetch with extra request headers; they override the
// defaults.
func (f *Fetcher) FetchWithHeader(ctx context.Context, targetURL string, header http.Header) (*storage.FetchResult, error) {
	ctx, span := f.tracer.Start(ctx, "scraper.fetch",
		trace.WithAttributes(
			attribute.String("fetch.kind", f.config.Kind),
			attribute.String("fetch.url", targetURL),
		),
	)
	defer span.End()

	res := f.fetch(ctx, targetURL, header)
	metrics.RecordFetch(f.config.Kind, res)

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
	if res.DetectedBot {
		span.SetAttributes(attribute.String("fetch.detection_src", res.DetectionSrc))
	}
	if res.Failed() {
		span.SetStatus(codes.Error, res.Reason())
	} else {
		span.SetStatus(codes.Ok, "fetched")
	}
	return res, nil
}

func (f *Fetcher) fetch(ctx context.Context, targetURL string, header http.Header) *storage.FetchResult {
	start := time.Now()
	res := &storage.FetchResult{
		ID:        uuid.New().String(),
		URL:       targetURL,
		Method:    http.MethodGet,
		CreatedAt: start.UTC(),
	}
	fail := func(format string, args ...any) *storage.FetchResult {
		res.Error = fmt.Sprintf(format, args...)
		res.Duration = time.Since(start)
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return fail("failed to create request: %v", err)
	}

	if err := f.config.Limiter.Wait(ctx); err != nil {
		return fail("rate limiter failed: %v", err)
	}
	if err := f.config.HostLimiter.Wait(ctx, req.URL.Host); err != nil {
		return fail("rate limiter failed: %v", err)
	}

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		activeProxy = f.config.ProxyPool.Next()
		if activeProxy != nil {
			req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
		}
	}

	req.Header.Set("User-Agent", f.config.UAPool.Next())
	req.Header.Set("Accept", defaultAccept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
			metrics.ProxyFailures.WithLabelValues(activeProxy.Redacted()).Inc()
		}
		f.logger.Debug("fetch failed", "url", targetURL, "err", err)
		return fail("request failed: %v", err)
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.config.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	if err != nil {
		res.Error = fmt.Sprintf("failed to read body: %v", err)
	}

	res.StatusCode = resp.StatusCode
	res.Headers = resp.Header
	res.Body = body
	res.Duration = time.Since(start)

	if gate.Analyze(res, gate.DefaultDetectors()) {
		f.logger.Debug("bot wall detected", "url", targetURL, "source", res.DetectionSrc)
	}

	return res
}
