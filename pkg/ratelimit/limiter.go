// Package ratelimit implements a Redis-backed fixed-window request limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/langsheet/pkg/config"
)

// Result describes the outcome of one Allow call.
type Result struct {
	Allowed     bool
	Limit       int
	Remaining   int
	Window      time.Duration
	RetryAfter  time.Duration
	IdentityKey string
	EndpointKey string
}

// Limiter counts requests per endpoint and identity in Redis.
type Limiter struct {
	client redis.Cmdable
	cfg    config.RateLimitConfig
}

// NewLimiter creates a limiter backed by client.
func NewLimiter(client redis.Cmdable, cfg config.RateLimitConfig) *Limiter {
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = "ratelimit"
	}
	return &Limiter{client: client, cfg: cfg}
}

// Allow counts one request for identity on endpoint. A disabled limiter or a
// non-positive limit allows everything without touching Redis.
func (l *Limiter) Allow(ctx context.Context, endpoint, identity string) (Result, error) {
	window := l.cfg.Window()
	result := Result{
		Allowed:     true,
		Limit:       l.cfg.Limit,
		Remaining:   l.cfg.Limit,
		Window:      window,
		IdentityKey: identity,
		EndpointKey: endpoint,
	}

	if !l.cfg.Enabled || l.cfg.Limit <= 0 {
		return result, nil
	}

	key := l.key(endpoint, identity)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return result, fmt.Errorf("ratelimit: incr %s: %w", key, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			return result, fmt.Errorf("ratelimit: expire %s: %w", key, err)
		}
	}

	remaining := l.cfg.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	result.Remaining = remaining

	if int(count) <= l.cfg.Limit {
		return result, nil
	}

	result.Allowed = false
	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = window
	}
	result.RetryAfter = ttl
	return result, nil
}

func (l *Limiter) key(endpoint, identity string) string {
	return fmt.Sprintf("%s:%s:%s", l.cfg.RedisPrefix, endpoint, identity)
}
