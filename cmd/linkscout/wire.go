package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FranksOps/linkscout/internal/config"
	"github.com/FranksOps/linkscout/internal/discovery"
	"github.com/FranksOps/linkscout/internal/fingerprint"
	"github.com/FranksOps/linkscout/internal/scraper"
	"github.com/FranksOps/linkscout/internal/serp"
	"github.com/FranksOps/linkscout/internal/storage"
	"github.com/FranksOps/linkscout/internal/storage/csvbackend"
	"github.com/FranksOps/linkscout/internal/storage/jsonbackend"
	"github.com/FranksOps/linkscout/internal/storage/postgres"
	"github.com/FranksOps/linkscout/internal/storage/sqlite"
	"github.com/FranksOps/linkscout/pkg/proxy"
	"github.com/FranksOps/linkscout/pkg/ratelimit"
	"github.com/FranksOps/linkscout/pkg/useragent"
)

// app is the wired discovery stack for one process.
type app struct {
	discoverer *discovery.Discoverer
	store      storage.Backend
	logger     *slog.Logger
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close run storage", "error", err)
		}
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	uas, err := newUAPool(cfg)
	if err != nil {
		return nil, err
	}
	proxies, err := newProxyPool(cfg)
	if err != nil {
		return nil, err
	}

	searchFetcher, err := newFetcher(cfg, "search", uas, proxies, logger)
	if err != nil {
		return nil, err
	}
	provider, err := newProvider(cfg, searchFetcher)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []discovery.Option{
		discovery.WithLogger(logger),
		discovery.WithTables(discovery.NewTables(cfg.Discovery.ExtraBlocked, cfg.Discovery.ExtraPaywall)),
		discovery.WithWidth(cfg.Search.Width),
		discovery.WithQueryTimeout(cfg.Search.QueryTimeout),
	}
	if store != nil {
		opts = append(opts, discovery.WithStore(store))
	}

	pageFetcher, err := newFetcher(cfg, "page", uas, proxies, logger)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	opts = append(opts, discovery.WithReranker(newReranker(cfg, pageFetcher, logger)))

	return &app{
		discoverer: discovery.New(provider, opts...),
		store:      store,
		logger:     logger,
	}, nil
}

func newUAPool(cfg *config.Config) (*useragent.Pool, error) {
	strategy, err := useragent.ParseStrategy(cfg.Fetch.UAStrategy)
	if err != nil {
		return nil, err
	}
	return useragent.NewPoolWithStrategy(cfg.Fetch.UserAgents, strategy), nil
}

// newProxyPool returns nil when no proxies are configured.
func newProxyPool(cfg *config.Config) (*proxy.Pool, error) {
	if len(cfg.Fetch.Proxies) == 0 && cfg.Fetch.ProxyFile == "" {
		return nil, nil
	}
	pool := proxy.NewPool(proxy.Config{})
	if err := pool.Add(cfg.Fetch.Proxies...); err != nil {
		return nil, err
	}
	if cfg.Fetch.ProxyFile != "" {
		if err := pool.LoadFile(cfg.Fetch.ProxyFile); err != nil {
			return nil, err
		}
	}
	return pool, nil
}

// newFetcher builds the fetcher for kind. Search traffic is spaced globally
// since it all goes to one engine; page fetches are spaced per host.
func newFetcher(cfg *config.Config, kind string, uas *useragent.Pool, proxies *proxy.Pool, logger *slog.Logger) (*scraper.Fetcher, error) {
	profile, err := fingerprint.ParseProfile(cfg.Fetch.Fingerprint)
	if err != nil {
		return nil, err
	}

	fc := scraper.FetchConfig{
		Kind:         kind,
		Timeout:      cfg.Fetch.Timeout,
		MaxRedirects: cfg.Fetch.MaxRedirects,
		Retries:      cfg.Fetch.Retries,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		ProxyPool:    proxies,
		UAPool:       uas,
		Fingerprint:  profile,
		Logger:       logger,
	}
	if kind == "search" {
		fc.Limiter = ratelimit.NewLimiter(cfg.Search.RPS, cfg.Search.Jitter)
	} else {
		fc.HostLimiter = ratelimit.NewPerHost(cfg.Fetch.HostRPS, cfg.Fetch.Jitter)
	}
	return scraper.NewFetcher(fc)
}

func newProvider(cfg *config.Config, getter serp.Getter) (serp.Provider, error) {
	var chain serp.Chain
	for _, name := range cfg.Search.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "duckduckgo":
			chain = append(chain, serp.NewDuckDuckGo(getter, cfg.Search.DuckDuckGoURL))
		case "searxng":
			chain = append(chain, serp.NewSearXNG(getter, cfg.Search.SearXNGURL))
		default:
			return nil, fmt.Errorf("context: unknown search provider %q", name)
		}
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}

func newReranker(cfg *config.Config, fetcher *scraper.Fetcher, logger *slog.Logger) *discovery.LightScrape {
	rr := &discovery.LightScrape{
		Fetcher:     fetcher,
		TopN:        cfg.Rerank.TopN,
		Width:       cfg.Rerank.Width,
		Timeout:     cfg.Rerank.Timeout,
		RobotsAgent: cfg.Rerank.RobotsAgent,
		Logger:      logger,
	}
	if cfg.Rerank.RespectRobots {
		rr.NewRobots = func() discovery.RobotsChecker {
			return scraper.NewRobotsTxtAuditor(fetcher, logger)
		}
	}
	return rr
}

// openStore returns nil when run storage is disabled.
func openStore(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case "", "none":
		return nil, nil
	case "sqlite":
		return sqlite.New(cfg.Storage.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.Storage.DSN)
	case "json":
		return jsonbackend.New(cfg.Storage.DSN)
	case "csv":
		return csvbackend.New(cfg.Storage.DSN)
	default:
		return nil, fmt.Errorf("context: unknown storage backend %q", cfg.Storage.Backend)
	}
}

// defaultRequest turns configured defaults into a request template.
func defaultRequest(cfg *config.Config) discovery.Request {
	return discovery.Request{
		Level:              discovery.HLD,
		MaxLinks:           cfg.Discovery.MaxLinks,
		MaxResultsPerQuery: cfg.Discovery.MaxResultsPerQuery,
		PerHostCap:         cfg.Discovery.PerHostCap,
		AllowPaywall:       cfg.Discovery.AllowPaywall,
		EnableRerank:       cfg.Rerank.Enabled,
		Deadline:           cfg.Discovery.Deadline,
	}
}
