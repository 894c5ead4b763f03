// File: internal/ratelimit/redis.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] counter, KEYS[2] ban marker.
// ARGV[1] window ms, ARGV[2] limit, ARGV[3] ban ms.
// Returns {count, ttl ms}; count is -1 while banned.
var fixedWindowScript = redis.NewScript(`
local banned = redis.call('PTTL', KEYS[2])
if banned > 0 then
	return {-1, banned}
end
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if n > tonumber(ARGV[2]) and tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], '1', 'PX', ARGV[3])
	redis.call('DEL', KEYS[1])
	return {-1, tonumber(ARGV[3])}
end
return {n, ttl}
`)

// RedisRateLimiter shares fixed-window counters across instances through Redis.
type RedisRateLimiter struct {
	client redis.UniversalClient
	config *Config
	prefix string
	now    func() time.Time
}

// NewRedisRateLimiter creates a limiter whose keys start with prefix.
func NewRedisRateLimiter(client redis.UniversalClient, config *Config, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{client: client, config: config, prefix: prefix, now: time.Now}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, identifier string) (*RateLimitInfo, error) {
	keys := []string{
		fmt.Sprintf("%s:%s", rl.prefix, identifier),
		fmt.Sprintf("%s:ban:%s", rl.prefix, identifier),
	}
	raw, err := fixedWindowScript.Run(ctx, rl.client, keys,
		rl.config.WindowSize.Milliseconds(),
		rl.config.MaxAttempts,
		rl.config.BanDuration.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(raw) != 2 {
		return nil, fmt.Errorf("rate limit script returned %d values", len(raw))
	}

	count, ttl := raw[0], time.Duration(raw[1])*time.Millisecond
	if ttl < 0 {
		ttl = rl.config.WindowSize
	}
	now := rl.now()
	info := &RateLimitInfo{
		Limit:     rl.config.MaxAttempts,
		ResetTime: now.Add(ttl),
	}

	switch {
	case count < 0:
		info.Banned = true
		info.RetryAfter = ttl
	case count > int64(rl.config.MaxAttempts):
		info.RetryAfter = ttl
	default:
		info.Allowed = true
		info.Remaining = rl.config.MaxAttempts - int(count)
	}
	return info, nil
}
