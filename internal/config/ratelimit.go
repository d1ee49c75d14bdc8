package config

import (
	"time"
)

// RateLimitConfig describes one fixed-window limit: at most Max attempts
// per Window for a given key. Limits are advisory throttling only; the
// correctness of redemption never depends on them.
type RateLimitConfig struct {
	Enabled bool
	Max     int
	Window  time.Duration
	Prefix  string
}

// LoadRedeemRateLimit returns the per-identity limit applied before a
// redemption attempt touches the store. Keyed by (user, research).
func LoadRedeemRateLimit() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("REDEEM_RATE_LIMIT_ENABLED", true),
		Max:     envInt("REDEEM_RATE_LIMIT_MAX", 10),
		Window:  envDur("REDEEM_RATE_LIMIT_WINDOW", time.Minute),
		Prefix:  envStr("REDEEM_RATE_LIMIT_PREFIX", "rl:verify"),
	}
	return clampRateLimit(cfg)
}

// LoadPublicRateLimit returns the per-IP limit for the public
// leaderboard endpoint, which is reachable without authentication.
func LoadPublicRateLimit() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("PUBLIC_RATE_LIMIT_ENABLED", true),
		Max:     envInt("PUBLIC_RATE_LIMIT_MAX", 60),
		Window:  envDur("PUBLIC_RATE_LIMIT_WINDOW", time.Minute),
		Prefix:  envStr("PUBLIC_RATE_LIMIT_PREFIX", "rl:public"),
	}
	return clampRateLimit(cfg)
}

func clampRateLimit(cfg RateLimitConfig) RateLimitConfig {
	if cfg.Max < 1 {
		cfg.Max = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return cfg
}

func envBool(k string, d bool) bool {
	v := envStr(k, "")
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := envStr(k, "")
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
		return dur
	}
	return d
}
