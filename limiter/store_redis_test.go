package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test:"), mr
}

func TestRedisStoreGetSet(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	assert.True(t, mr.Exists("test:k"))
}

func TestRedisStoreInt64(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	_, err := store.GetInt64(ctx, "n")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.SetInt64(ctx, "n", 42, 0))
	val, err := store.GetInt64(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, int64(42), val)
}

func TestRedisStoreIncr(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	val, err := store.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)

	val, err = store.IncrBy(ctx, "counter", 9)
	require.NoError(t, err)
	assert.Equal(t, int64(10), val)
}

func TestRedisStoreExpiration(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Second))

	mr.FastForward(2 * time.Second)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStoreZSetOps(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.ZAdd(ctx, "z", 100, "a"))
	require.NoError(t, store.ZAdd(ctx, "z", 200, "b"))
	require.NoError(t, store.ZAdd(ctx, "z", 300, "c"))

	count, err := store.ZCount(ctx, "z", 100, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	min, ok, err := store.ZMinScore(ctx, "z")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(100), min)

	require.NoError(t, store.ZRemRangeByScore(ctx, "z", 0, 150))

	count, err = store.ZCount(ctx, "z", 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRedisStoreZMinScoreEmpty(t *testing.T) {
	store, _ := newTestRedisStore(t)

	_, ok, err := store.ZMinScore(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, "test:")

	mr.Close()

	_, err := store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	err = store.ZAdd(context.Background(), "z", 1, "a")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestSlidingWindowOnRedis(t *testing.T) {
	store, _ := newTestRedisStore(t)

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
	assert.False(t, decision.Allowed)
	assert.GreaterOrEqual(t, decision.RetryAfterSeconds(), int64(1))
	assert.LessOrEqual(t, decision.RetryAfterSeconds(), int64(5))
}
