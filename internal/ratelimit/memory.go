package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	resetAt time.Time
	count   int
}

// MemoryLimiter is a fixed-window limiter backed by an in-process map.
// State is per instance; in multi-instance deployments each replica
// enforces its own window, which is acceptable for advisory throttling.
type MemoryLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	buckets map[string]*bucket

	// now is replaceable in tests.
	now func() time.Time
}

// NewMemoryLimiter builds a limiter allowing max attempts per window.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:     max,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow consumes one attempt for key within the current window.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		l.buckets[key] = &bucket{resetAt: now.Add(l.window), count: 1}
		return Decision{Allowed: true, Limit: l.max, Remaining: l.max - 1}
	}
	if b.count >= l.max {
		return Decision{Allowed: false, Limit: l.max, Remaining: 0, RetryAfter: b.resetAt.Sub(now)}
	}
	b.count++
	return Decision{Allowed: true, Limit: l.max, Remaining: l.max - b.count}
}

// pruneLocked drops expired buckets once the map grows past a threshold,
// keeping memory bounded without a background goroutine.
func (l *MemoryLimiter) pruneLocked(now time.Time) {
	if len(l.buckets) < 1024 {
		return
	}
	for k, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, k)
		}
	}
}
