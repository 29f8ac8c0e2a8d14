package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces limiter keys in a shared Redis instance.
const DefaultKeyPrefix = "limiter:"

// redisStore backs the limiter with Redis so the counters are shared across
// process replicas. All keys carry the configured prefix; transport failures
// come back wrapping ErrStoreUnavailable, missing keys as ErrKeyNotFound.
type redisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an already-connected Redis client. The caller owns the
// client's lifecycle; Close here is a no-op.
func NewRedisStore(client redis.UniversalClient, prefix string) Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) key(key string) string {
	return s.prefix + key
}

func (s *redisStore) wrap(op string, err error) error {
	return fmt.Errorf("redis %s: %w: %w", op, ErrStoreUnavailable, err)
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", s.wrap("get", err)
	}
	return val, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, expiration).Err(); err != nil {
		return s.wrap("set", err)
	}
	return nil
}

func (s *redisStore) GetInt64(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Get(ctx, s.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrKeyNotFound
	}
	if err != nil {
		return 0, s.wrap("get", err)
	}
	return val, nil
}

func (s *redisStore) SetInt64(ctx context.Context, key string, value int64, expiration time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, expiration).Err(); err != nil {
		return s.wrap("set", err)
	}
	return nil
}

func (s *redisStore) Incr(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Incr(ctx, s.key(key)).Result()
	if err != nil {
		return 0, s.wrap("incr", err)
	}
	return val, nil
}

func (s *redisStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	val, err := s.client.IncrBy(ctx, s.key(key), delta).Result()
	if err != nil {
		return 0, s.wrap("incrby", err)
	}
	return val, nil
}

func (s *redisStore) Expire(ctx context.Context, key string, expiration time.Duration) error {
	if err := s.client.Expire(ctx, s.key(key), expiration).Err(); err != nil {
		return s.wrap("expire", err)
	}
	return nil
}

func (s *redisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, s.wrap("ttl", err)
	}
	return ttl, nil
}

func (s *redisStore) Del(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.key(key)
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return s.wrap("del", err)
	}
	return nil
}

func (s *redisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, s.wrap("exists", err)
	}
	return n > 0, nil
}

func (s *redisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if err := s.client.ZAdd(ctx, s.key(key), redis.Z{Score: score, Member: member}).Err(); err != nil {
		return s.wrap("zadd", err)
	}
	return nil
}

func (s *redisStore) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	minStr := fmt.Sprintf("%f", min)
	maxStr := fmt.Sprintf("%f", max)
	if err := s.client.ZRemRangeByScore(ctx, s.key(key), minStr, maxStr).Err(); err != nil {
		return s.wrap("zremrangebyscore", err)
	}
	return nil
}

func (s *redisStore) ZCount(ctx context.Context, key string, min, max float64) (int64, error) {
	minStr := fmt.Sprintf("%f", min)
	maxStr := fmt.Sprintf("%f", max)
	count, err := s.client.ZCount(ctx, s.key(key), minStr, maxStr).Result()
	if err != nil {
		return 0, s.wrap("zcount", err)
	}
	return count, nil
}

func (s *redisStore) ZMinScore(ctx context.Context, key string) (float64, bool, error) {
	entries, err := s.client.ZRangeWithScores(ctx, s.key(key), 0, 0).Result()
	if err != nil {
		return 0, false, s.wrap("zrange", err)
	}
	if len(entries) == 0 {
		return 0, false, nil
	}
	return entries[0].Score, true, nil
}

// Close is a no-op; the Redis client is managed by its own manager.
func (s *redisStore) Close() error {
	return nil
}
