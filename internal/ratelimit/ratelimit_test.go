package ratelimit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryLimiter(cfg *Config, now *time.Time) *MemoryRateLimiter {
	cfg.CleanupPeriod = 0
	rl := NewMemoryRateLimiter(cfg)
	rl.now = func() time.Time { return *now }
	return rl
}

func TestMemoryRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newTestMemoryLimiter(&Config{WindowSize: time.Minute, MaxAttempts: 3}, &now)
	defer rl.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		info, err := rl.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, info.Allowed)
		assert.Equal(t, 2-i, info.Remaining)
		assert.Equal(t, 3, info.Limit)
	}

	now = now.Add(20 * time.Second)
	info, err := rl.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.False(t, info.Banned)
	assert.Equal(t, 40*time.Second, info.RetryAfter)

	other, err := rl.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	now = now.Add(41 * time.Second)
	info, err = rl.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestMemoryRateLimiterBan(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newTestMemoryLimiter(&Config{WindowSize: time.Minute, MaxAttempts: 1, BanDuration: 10 * time.Minute}, &now)
	defer rl.Close()
	ctx := context.Background()

	info, _ := rl.Allow(ctx, "ip")
	assert.True(t, info.Allowed)
	info, _ = rl.Allow(ctx, "ip")
	assert.False(t, info.Allowed)
	assert.True(t, info.Banned)

	now = now.Add(5 * time.Minute)
	info, _ = rl.Allow(ctx, "ip")
	assert.False(t, info.Allowed)
	assert.Equal(t, 5*time.Minute, info.RetryAfter)

	now = now.Add(5 * time.Minute)
	info, _ = rl.Allow(ctx, "ip")
	assert.True(t, info.Allowed)
}

func TestMemoryRateLimiterCleanup(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newTestMemoryLimiter(&Config{WindowSize: time.Minute, MaxAttempts: 5}, &now)
	defer rl.Close()

	_, _ = rl.Allow(context.Background(), "ip")
	now = now.Add(2 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.attempts)
}

func TestClientIPIgnoresHeadersFromUntrustedPeer(t *testing.T) {
	resolver, err := NewClientIPResolver(nil)
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/api/otp/send", nil)
	r.RemoteAddr = "203.0.113.7:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.7")
	r.Header.Set("X-Real-IP", "198.51.100.8")
	assert.Equal(t, "203.0.113.7", resolver.ClientIP(r))
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/api/otp/send", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", resolver.ClientIP(r))

	r.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", resolver.ClientIP(r))

	// the left-most entry is client controlled; the right-most untrusted hop wins
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 198.51.100.7, 192.0.2.1")
	assert.Equal(t, "198.51.100.7", resolver.ClientIP(r))

	r.Header.Set("X-Forwarded-For", "not-an-ip")
	assert.Equal(t, "203.0.113.9", resolver.ClientIP(r))
}

func TestNewClientIPResolverRejectsGarbage(t *testing.T) {
	_, err := NewClientIPResolver([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = NewClientIPResolver([]string{"proxy.local"})
	assert.Error(t, err)
}
