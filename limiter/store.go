package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the counter-state backend shared by all algorithms (strategy
// pattern). Implementations must be safe for concurrent use; Redis-backed
// stores additionally make the counters global across process replicas.
type Store interface {
	// Get returns the string value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes a string value with an optional expiration (0 keeps it).
	Set(ctx context.Context, key, value string, expiration time.Duration) error

	// GetInt64 returns the integer value for key, or ErrKeyNotFound.
	GetInt64(ctx context.Context, key string) (int64, error)

	// SetInt64 writes an integer value with an optional expiration.
	SetInt64(ctx context.Context, key string, value int64, expiration time.Duration) error

	// Incr atomically increments key by one and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// IncrBy atomically increments key by delta and returns the new value.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// Expire sets the time to live for key.
	Expire(ctx context.Context, key string, expiration time.Duration) error

	// TTL returns the remaining time to live for key.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Del removes the given keys.
	Del(ctx context.Context, keys ...string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// ZAdd inserts a member with a score into the sorted set at key.
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRemRangeByScore removes members whose score lies in [min, max].
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error

	// ZCount counts members whose score lies in [min, max].
	ZCount(ctx context.Context, key string, min, max float64) (int64, error)

	// ZMinScore returns the lowest score in the sorted set at key. The bool
	// is false when the set is empty or missing.
	ZMinScore(ctx context.Context, key string) (float64, bool, error)

	// Close releases the store's resources.
	Close() error
}

// StoreType enumerates the supported store backends.
type StoreType string

const (
	// StoreMemory keeps counters in process memory.
	StoreMemory StoreType = "memory"

	// StoreRedis keeps counters in Redis, shared across replicas.
	StoreRedis StoreType = "redis"
)

// NewStore builds a store for the configured backend. A redis store needs a
// connected client; passing nil fails here rather than on the first request.
func NewStore(cfg Config, client redis.UniversalClient) (Store, error) {
	switch StoreType(cfg.StoreType) {
	case StoreMemory, "":
		return NewMemoryStore(), nil
	case StoreRedis:
		if client == nil {
			return nil, fmt.Errorf("%w: redis store requires a redis client", ErrInvalidConfig)
		}
		return NewRedisStore(client, cfg.Redis.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("%w: unsupported store type %q", ErrStoreNotSupported, cfg.StoreType)
	}
}
