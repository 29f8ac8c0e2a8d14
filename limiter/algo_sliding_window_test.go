package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slidingWindowConfig(limit int64, window time.Duration) ResourceConfig {
	return ResourceConfig{
		Algorithm: string(AlgorithmSlidingWindow),
		Limit:     limit,
		Window:    window,
	}
}

func TestSlidingWindowAllowsUpToLimit(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	algo := &slidingWindowAlgorithm{}
	cfg := slidingWindowConfig(5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		decision, err := algo.Allow(ctx, store, "ip:127.0.0.1:/api/test", 1, cfg)
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, int64(5-i-1), decision.Remaining)
	}

	decision, err := algo.Allow(ctx, store, "ip:127.0.0.1:/api/test", 1, cfg)
	require.NoError(t, err)
	assert.False(t, decision.Allowed, "request over the limit should be denied")
}

func TestSlidingWindowDeniedRetryAfter(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	algo := &slidingWindowAlgorithm{}
	cfg := slidingWindowConfig(2, 5*time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		decision, err := algo.Allow(ctx, store, "ip:127.0.0.1:/api/test", 1, cfg)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}

	decision, err := algo.Allow(ctx, store, "ip:127.0.0.1:/api/test", 1, cfg)
	require.NoError(t, err)
	require.False(t, decision.Allowed)

	assert.Greater(t, decision.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, decision.RetryAfter, 5*time.Second)
	assert.GreaterOrEqual(t, decision.RetryAfterSeconds(), int64(1))
	assert.LessOrEqual(t, decision.RetryAfterSeconds(), int64(5))
}

func TestSlidingWindowIndependentKeys(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	algo := &slidingWindowAlgorithm{}
	cfg := slidingWindowConfig(1, time.Minute)
	ctx := context.Background()

	first, err := algo.Allow(ctx, store, "ip:10.0.0.1:/api/test", 1, cfg)
	require.NoError(t, err)
	require.True(t, first.Allowed)

	blocked, err := algo.Allow(ctx, store, "ip:10.0.0.1:/api/test", 1, cfg)
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	other, err := algo.Allow(ctx, store, "ip:10.0.0.2:/api/test", 1, cfg)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "a different key must not be throttled")
}

func TestSlidingWindowRecoversAfterWindow(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	algo := &slidingWindowAlgorithm{}
	cfg := slidingWindowConfig(1, 50*time.Millisecond)
	ctx := context.Background()

	first, err := algo.Allow(ctx, store, "key", 1, cfg)
	require.NoError(t, err)
	require.True(t, first.Allowed)

	blocked, err := algo.Allow(ctx, store, "key", 1, cfg)
	require.NoError(t, err)
	require.False(t, blocked.Allowed)

	time.Sleep(60 * time.Millisecond)

	recovered, err := algo.Allow(ctx, store, "key", 1, cfg)
	require.NoError(t, err)
	assert.True(t, recovered.Allowed, "the hit should have aged out of the window")
}

func TestSlidingWindowAllowN(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	algo := &slidingWindowAlgorithm{}
	cfg := slidingWindowConfig(5, time.Minute)
	ctx := context.Background()

	decision, err := algo.Allow(ctx, store, "key", 3, cfg)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	assert.Equal(t, int64(2), decision.Remaining)

	decision, err = algo.Allow(ctx, store, "key", 3, cfg)
	require.NoError(t, err)
	assert.False(t, decision.Allowed, "3 more would exceed the limit of 5")
}

func TestSlidingWindowReset(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	algo := &slidingWindowAlgorithm{}
	cfg := slidingWindowConfig(1, time.Minute)
	ctx := context.Background()

	first, err := algo.Allow(ctx, store, "key", 1, cfg)
	require.NoError(t, err)
	require.True(t, first.Allowed)

	require.NoError(t, algo.Reset(ctx, store, "key"))

	again, err := algo.Allow(ctx, store, "key", 1, cfg)
	require.NoError(t, err)
	assert.True(t, again.Allowed)
}

func TestRetryAfterSecondsFloorsAtOne(t *testing.T) {
	d := &Decision{Allowed: false, RetryAfter: 200 * time.Millisecond}
	assert.Equal(t, int64(1), d.RetryAfterSeconds())

	d = &Decision{Allowed: false, RetryAfter: 1500 * time.Millisecond}
	assert.Equal(t, int64(2), d.RetryAfterSeconds())
}
