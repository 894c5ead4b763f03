package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLimiter(t *testing.T, cfg *Config) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRateLimiter(client, cfg, "test"), mr
}

func TestRedisRateLimiterWindow(t *testing.T) {
	rl, mr := newTestRedisLimiter(t, &Config{WindowSize: time.Minute, MaxAttempts: 2})
	ctx := context.Background()

	info, err := rl.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 1, info.Remaining)

	info, err = rl.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)

	info, err = rl.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.False(t, info.Banned)
	assert.Equal(t, time.Minute, info.RetryAfter)

	assert.True(t, mr.Exists("test:1.2.3.4"))

	mr.FastForward(61 * time.Second)
	info, err = rl.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestRedisRateLimiterBan(t *testing.T) {
	rl, mr := newTestRedisLimiter(t, &Config{WindowSize: time.Minute, MaxAttempts: 1, BanDuration: 10 * time.Minute})
	ctx := context.Background()

	info, err := rl.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = rl.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.True(t, info.Banned)
	assert.Equal(t, 10*time.Minute, info.RetryAfter)

	mr.FastForward(2 * time.Minute)
	info, err = rl.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, info.Banned)

	mr.FastForward(9 * time.Minute)
	info, err = rl.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestRedisRateLimiterUnavailable(t *testing.T) {
	rl, mr := newTestRedisLimiter(t, &Config{WindowSize: time.Minute, MaxAttempts: 1})
	mr.Close()

	_, err := rl.Allow(context.Background(), "ip")
	assert.Error(t, err)
}
