// Package ratelimit bounds attempt rates per identity+resource within a
// fixed window. It is advisory admission control for user experience;
// correctness of redemption never depends on it — the double-award
// guarantees come from the store's constraints alone. Two backings are
// provided: an in-process map for single-instance deployments and a
// Redis counter for shared state across instances.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Allow call, with enough detail to
// populate the X-RateLimit response headers.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter answers whether one more attempt for the key fits in the
// current window. Implementations must be safe for concurrent use and
// should fail open: an unreachable backing is no reason to block a user.
type Limiter interface {
	Allow(ctx context.Context, key string) Decision
}

// Key joins the limit prefix with identity and resource parts, e.g.
// "rl:verify:42:7".
func Key(prefix string, parts ...string) string {
	k := prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}
