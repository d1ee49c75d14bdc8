package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the window counter and sets its expiry
// atomically on first hit, returning the count and the remaining window
// in milliseconds. Running it as one script closes the INCR/EXPIRE gap.
var fixedWindowScript = redis.NewScript(`
    local key = KEYS[1]
    local window_ms = tonumber(ARGV[1])

    local count = redis.call('INCR', key)
    if count == 1 then
        redis.call('PEXPIRE', key, window_ms)
    end
    local ttl = redis.call('PTTL', key)
    if ttl < 0 then
        redis.call('PEXPIRE', key, window_ms)
        ttl = window_ms
    end
    return { count, ttl }
`)

// RedisLimiter is a fixed-window limiter whose counters live in Redis,
// so the window is shared across all service instances. Errors fail
// open: when Redis is unreachable the attempt is allowed and the error
// is logged once per call site.
type RedisLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

// NewRedisLimiter builds a limiter allowing max attempts per window.
func NewRedisLimiter(rdb *redis.Client, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, max: max, window: window}
}

// Allow consumes one attempt for key within the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) Decision {
	vals, err := fixedWindowScript.Run(ctx, l.rdb, []string{key}, l.window.Milliseconds()).Result()
	if err != nil {
		log.Printf("ratelimit: redis error for key=%s: %v", key, err)
		return Decision{Allowed: true, Limit: l.max, Remaining: l.max - 1}
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 2 {
		log.Printf("ratelimit: unexpected script result for key=%s: %#v", key, vals)
		return Decision{Allowed: true, Limit: l.max, Remaining: l.max - 1}
	}
	count := asInt64(arr[0])
	ttlMs := asInt64(arr[1])

	if count > int64(l.max) {
		return Decision{
			Allowed:    false,
			Limit:      l.max,
			Remaining:  0,
			RetryAfter: time.Duration(ttlMs) * time.Millisecond,
		}
	}
	return Decision{Allowed: true, Limit: l.max, Remaining: l.max - int(count)}
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	}
	return 0
}
