package resilience

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(threshold int, timeout time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := newFakeClock()
	cb := NewCircuitBreaker("sms-gateway", threshold, timeout, nil)
	cb.now = clock.Now
	return cb, clock
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		require.True(t, cb.CanAttempt())
		cb.RecordFailure()
		assert.Equal(t, StateClosed, cb.State())
	}

	require.True(t, cb.CanAttempt())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.CanAttempt())
	assert.Equal(t, 3, cb.Snapshot().ConsecutiveFailures)
}

func TestCircuitBreakerSuccessResetsFailureStreak(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	assert.Equal(t, 0, cb.Snapshot().ConsecutiveFailures)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpenAllowsSingleProbe(t *testing.T) {
	cb, clock := newTestBreaker(1, 30*time.Second)

	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	clock.Advance(29 * time.Second)
	assert.False(t, cb.CanAttempt())

	clock.Advance(time.Second)
	assert.True(t, cb.CanAttempt(), "first call after recovery timeout is the probe")
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.False(t, cb.CanAttempt(), "second call while probe in flight must be refused")
	assert.Equal(t, 1, cb.Snapshot().HalfOpenProbesIssued)
}

func TestCircuitBreakerProbeSuccessCloses(t *testing.T) {
	cb, clock := newTestBreaker(2, time.Minute)
	cb.RecordFailure()
	cb.RecordFailure()

	clock.Advance(time.Minute)
	require.True(t, cb.CanAttempt())
	cb.RecordSuccess()

	snap := cb.Snapshot()
	assert.Equal(t, "CLOSED", snap.State)
	assert.Equal(t, 0, snap.ConsecutiveFailures)
	assert.Equal(t, 0, snap.HalfOpenProbesIssued)
	assert.True(t, cb.CanAttempt())
}

func TestCircuitBreakerProbeFailureReopensImmediately(t *testing.T) {
	cb, clock := newTestBreaker(3, time.Minute)
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}

	clock.Advance(time.Minute)
	require.True(t, cb.CanAttempt())
	cb.RecordFailure()

	snap := cb.Snapshot()
	assert.Equal(t, "OPEN", snap.State)
	assert.Equal(t, 3, snap.ConsecutiveFailures, "probe failure does not add to the streak")
	assert.Equal(t, 0, snap.HalfOpenProbesIssued)
	assert.False(t, cb.CanAttempt(), "recovery timeout restarts from the probe failure")

	clock.Advance(time.Minute)
	assert.True(t, cb.CanAttempt())
}

func TestCircuitBreakerReset(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Hour)
	cb.RecordFailure()
	require.False(t, cb.CanAttempt())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.CanAttempt())
	assert.Equal(t, 0, cb.Snapshot().ConsecutiveFailures)
}

func TestCircuitBreakerThresholdFloor(t *testing.T) {
	cb, _ := newTestBreaker(0, time.Minute)
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreakerConcurrentHalfOpenProbes(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Second)
	cb.RecordFailure()
	clock.Advance(time.Second)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cb.CanAttempt() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, allowed)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "HALF_OPEN", StateHalfOpen.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}
