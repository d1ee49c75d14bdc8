package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(3, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		dec := l.Allow(ctx, "k")
		assert.True(t, dec.Allowed, "attempt %d", i+1)
		assert.Equal(t, 3, dec.Limit)
		assert.Equal(t, 2-i, dec.Remaining)
	}

	dec := l.Allow(ctx, "k")
	assert.False(t, dec.Allowed)
	assert.Equal(t, 0, dec.Remaining)
	assert.Equal(t, time.Minute, dec.RetryAfter)

	// Halfway through the window the retry hint shrinks.
	now = now.Add(30 * time.Second)
	dec = l.Allow(ctx, "k")
	assert.False(t, dec.Allowed)
	assert.Equal(t, 30*time.Second, dec.RetryAfter)

	// A fresh window resets the count.
	now = now.Add(30 * time.Second)
	dec = l.Allow(ctx, "k")
	assert.True(t, dec.Allowed)
	assert.Equal(t, 2, dec.Remaining)
}

func TestMemoryLimiterKeysIndependent(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "a").Allowed)
	assert.False(t, l.Allow(ctx, "a").Allowed)
	assert.True(t, l.Allow(ctx, "b").Allowed, "keys must not share windows")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "rl:verify:42:7", Key("rl:verify", "42", "7"))
	assert.Equal(t, "rl:public", Key("rl:public"))
}
