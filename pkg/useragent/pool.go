package useragent

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
)

// DefaultPool is a set of current desktop browser User-Agents. Search
// providers and article hosts both serve reduced markup to unknown agents.
var DefaultPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
}

// Strategy selects how Next picks a User-Agent.
type Strategy string

const (
	Sequential Strategy = "sequential"
	Random     Strategy = "random"
)

// ParseStrategy maps a config value to a Strategy. Empty means Sequential.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Sequential:
		return Sequential, nil
	case Random:
		return Random, nil
	default:
		return "", fmt.Errorf("unknown user-agent strategy %q", s)
	}
}

// Pool represents a collection of User-Agents that can be retrieved sequentially or randomly.
type Pool struct {
	uas      []string
	strategy Strategy
	counter  atomic.Uint64
}

// NewPool creates a sequential User-Agent pool. If the provided slice is
// empty, it falls back to DefaultPool.
func NewPool(uas []string) *Pool {
	return NewPoolWithStrategy(uas, Sequential)
}

// NewPoolWithStrategy creates a pool whose Next follows the given strategy.
func NewPoolWithStrategy(uas []string, strategy Strategy) *Pool {
	cleaned := make([]string, 0, len(uas))
	for _, ua := range uas {
		if ua = strings.TrimSpace(ua); ua != "" {
			cleaned = append(cleaned, ua)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, DefaultPool...)
	}
	if strategy == "" {
		strategy = Sequential
	}
	return &Pool{
		uas:      cleaned,
		strategy: strategy,
	}
}

// Next returns a User-Agent according to the pool's strategy.
func (p *Pool) Next() string {
	if p.strategy == Random {
		return p.GetRandom()
	}
	return p.GetSequential()
}

// GetSequential returns the next User-Agent in the pool in a round-robin fashion.
// It is safe for concurrent use.
func (p *Pool) GetSequential() string {
	if len(p.uas) == 0 {
		return ""
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// GetRandom returns a random User-Agent from the pool using crypto/rand.
// It is safe for concurrent use.
func (p *Pool) GetRandom() string {
	if len(p.uas) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		return p.GetSequential()
	}
	return p.uas[n.Int64()]
}

// GetAll returns a copy of all User-Agents currently in the pool.
func (p *Pool) GetAll() []string {
	copied := make([]string, len(p.uas))
	copy(copied, p.uas)
	return copied
}
