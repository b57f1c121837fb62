package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// Proxy is one upstream proxy endpoint and its health counters.
type Proxy struct {
	URL           *url.URL
	Failures      int
	Successes     int
	LastUsed      time.Time
	DisabledUntil time.Time
}

func (p *Proxy) coolingDown(now time.Time) bool {
	return !p.DisabledUntil.IsZero() && now.Before(p.DisabledUntil)
}

// Config defines settings for the Proxy Pool.
type Config struct {
	// MaxFailures before a proxy is benched.
	MaxFailures int
	// Cooldown is how long a benched proxy sits out.
	Cooldown time.Duration
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Total   int
	Healthy int
}

// Pool rotates through proxies round-robin, skipping those that are cooling
// down after repeated failures. It is safe for concurrent use.
type Pool struct {
	mu          sync.Mutex
	proxies     []*Proxy
	index       map[string]int
	next        int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// NewPool creates an empty pool. Zero config values get defaults.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		index:       make(map[string]int),
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		now:         time.Now,
	}
}

// LoadFile reads proxies from a file, one URL per line. Blank lines and
// lines starting with '#' are skipped.
func (p *Pool) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return p.Add(urls...)
}

// Add parses raw proxy URLs and appends them. A missing scheme means http.
// Duplicates are ignored.
func (p *Pool) Add(rawURLs ...string) error {
	parsed := make([]*url.URL, 0, len(rawURLs))
	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("context: %w", err)
		}
		if u.Host == "" {
			return fmt.Errorf("context: proxy %q has no host", raw)
		}
		parsed = append(parsed, u)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range parsed {
		key := u.String()
		if _, ok := p.index[key]; ok {
			continue
		}
		p.index[key] = len(p.proxies)
		p.proxies = append(p.proxies, &Proxy{URL: u})
	}
	return nil
}

// Next returns the next healthy proxy, or nil when the pool is empty or
// every proxy is cooling down.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.proxies)
	now := p.now()
	for i := 0; i < n; i++ {
		prx := p.proxies[p.next]
		p.next = (p.next + 1) % n

		if prx.coolingDown(now) {
			continue
		}
		if !prx.DisabledUntil.IsZero() {
			// cooldown elapsed; start over with a clean slate
			prx.DisabledUntil = time.Time{}
			prx.Failures = 0
		}
		prx.LastUsed = now
		return prx.URL
	}
	return nil
}

// MarkSuccess records a successful request through proxyURL.
func (p *Pool) MarkSuccess(proxyURL *url.URL) error {
	return p.update(proxyURL, func(prx *Proxy) {
		prx.Successes++
		if prx.Failures > 0 {
			prx.Failures--
		}
	})
}

// MarkFailure records a failed request through proxyURL and benches the
// proxy for the cooldown once it reaches MaxFailures.
func (p *Pool) MarkFailure(proxyURL *url.URL) error {
	return p.update(proxyURL, func(prx *Proxy) {
		prx.Failures++
		if prx.Failures >= p.maxFailures {
			prx.DisabledUntil = p.now().Add(p.cooldown)
		}
	})
}

// Stats reports how many proxies are registered and how many are usable now.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	s := Stats{Total: len(p.proxies)}
	for _, prx := range p.proxies {
		if !prx.coolingDown(now) {
			s.Healthy++
		}
	}
	return s
}

func (p *Pool) update(proxyURL *url.URL, fn func(*Proxy)) error {
	if proxyURL == nil {
		return errors.New("context: proxyURL cannot be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	i, ok := p.index[proxyURL.String()]
	if !ok {
		return errors.New("context: proxy not found in pool")
	}
	fn(p.proxies[i])
	return nil
}
