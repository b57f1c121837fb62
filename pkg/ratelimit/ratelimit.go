package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Limiter spaces operations at a fixed interval with optional jitter. Each
// Wait reserves the next free slot, so concurrent callers are serialized
// without a background ticker. It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	jitter   float64 // 0.0 to 1.0
	next     time.Time
}

// NewLimiter creates a limiter for rps operations per second. jitter is
// clamped to [0, 1] and adds up to jitter*interval of random extra delay.
// A limiter with rps <= 0 never blocks.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	l := &Limiter{jitter: jitter}
	if rps > 0 {
		l.interval = time.Duration(float64(time.Second) / rps)
	}
	return l
}

// Wait blocks until the caller's slot comes up or ctx is done. A caller that
// gives up keeps its slot consumed.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.interval <= 0 {
		return nil
	}

	delay := l.reserve(time.Now())
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Limiter) reserve(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	l.next = slot.Add(l.interval)

	delay := slot.Sub(now)
	if l.jitter > 0 && delay > 0 {
		delay += time.Duration(rand.Float64() * l.jitter * float64(l.interval))
	}
	return delay
}

// Stop is a no-op kept so callers can defer it regardless of implementation.
func (l *Limiter) Stop() {}

// PerHost hands out one Limiter per host so that politeness toward one site
// does not slow fetches to another.
type PerHost struct {
	rps    float64
	jitter float64

	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewPerHost creates a PerHost limiter set. rps <= 0 disables limiting.
func NewPerHost(rps, jitter float64) *PerHost {
	return &PerHost{
		rps:      rps,
		jitter:   jitter,
		limiters: make(map[string]*Limiter),
	}
}

// Wait blocks until host's next slot comes up or ctx is done.
func (p *PerHost) Wait(ctx context.Context, host string) error {
	if p == nil || p.rps <= 0 {
		return nil
	}

	p.mu.Lock()
	l, ok := p.limiters[host]
	if !ok {
		l = NewLimiter(p.rps, p.jitter)
		p.limiters[host] = l
	}
	p.mu.Unlock()

	return l.Wait(ctx)
}
