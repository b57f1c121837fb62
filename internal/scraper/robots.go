package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsTxtAuditor answers robots.txt questions for the hosts it is asked
// about, fetching each host's file at most once. An auditor is meant to live
// for one discovery run.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger

	mu    sync.Mutex
	hosts map[string]*robotsEntry
}

type robotsEntry struct {
	once sync.Once
	data *robotstxt.RobotsData
}

// NewRobotsTxtAuditor creates an auditor that fetches through fetcher.
func NewRobotsTxtAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		logger:  logger,
		hosts:   make(map[string]*robotsEntry),
	}
}

// IsAllowed reports whether userAgent may fetch targetURL. A missing or
// unreadable robots.txt allows everything.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL string, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}
	if u.Host == "" {
		return false, fmt.Errorf("invalid url: missing host in %q", targetURL)
	}

	data := r.load(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	// TestAgent honors the allow-all and disallow-all status results
	return data.TestAgent(path, userAgent), nil
}

func (r *RobotsTxtAuditor) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	r.mu.Lock()
	e, ok := r.hosts[origin]
	if !ok {
		e = &robotsEntry{}
		r.hosts[origin] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		e.data = r.fetch(ctx, origin)
	})
	return e.data
}

func (r *RobotsTxtAuditor) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	res, _ := r.fetcher.Fetch(ctx, origin+"/robots.txt")
	if res.Error != "" {
		r.logger.Debug("robots.txt fetch failed, defaulting to allow", "origin", origin, "err", res.Error)
		return nil
	}

	// FromStatusAndBytes maps 4xx to allow-all and 5xx to disallow-all.
	data, err := robotstxt.FromStatusAndBytes(res.StatusCode, res.Body)
	if err != nil {
		r.logger.Debug("robots.txt parse failed, defaulting to allow", "origin", origin, "err", err)
		return nil
	}
	return data
}
