package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// tokenBucketAlgorithm refills cfg.Rate tokens per second up to
// cfg.Capacity; each request consumes one token. Unlike the sliding window
// it tolerates bursts up to the capacity while enforcing the average rate.
type tokenBucketAlgorithm struct{}

func (a *tokenBucketAlgorithm) Name() string {
	return string(AlgorithmTokenBucket)
}

func (a *tokenBucketAlgorithm) Allow(ctx context.Context, store Store, key string, n int64, cfg ResourceConfig) (*Decision, error) {
	if n <= 0 {
		n = 1
	}

	now := time.Now()
	tokensKey := a.tokensKey(key)
	refillKey := a.refillKey(key)

	tokens, tokensErr := store.GetInt64(ctx, tokensKey)
	if tokensErr != nil && !errors.Is(tokensErr, ErrKeyNotFound) {
		return nil, fmt.Errorf("get tokens: %w", tokensErr)
	}

	lastRefillNano, refillErr := store.GetInt64(ctx, refillKey)
	if refillErr != nil && !errors.Is(refillErr, ErrKeyNotFound) {
		return nil, fmt.Errorf("get last refill: %w", refillErr)
	}

	if errors.Is(tokensErr, ErrKeyNotFound) && errors.Is(refillErr, ErrKeyNotFound) {
		tokens = cfg.InitTokens
		if cfg.InitTokens == 0 {
			tokens = cfg.Capacity // full bucket on first sight
		}
		lastRefillNano = now.UnixNano()
	} else {
		elapsed := now.Sub(time.Unix(0, lastRefillNano))
		refilled := int64(float64(cfg.Rate) * elapsed.Seconds())
		tokens = minInt64(tokens+refilled, cfg.Capacity)
	}

	if tokens >= n {
		tokens -= n
		if err := a.persist(ctx, store, tokensKey, refillKey, tokens, now); err != nil {
			return nil, err
		}
		return &Decision{
			Allowed:   true,
			Remaining: tokens,
			Limit:     cfg.Capacity,
			ResetAt:   a.fullAt(now, tokens, cfg),
		}, nil
	}

	if err := a.persist(ctx, store, tokensKey, refillKey, tokens, now); err != nil {
		return nil, err
	}

	needed := n - tokens
	retryAfter := time.Duration(float64(needed) / float64(cfg.Rate) * float64(time.Second))

	return &Decision{
		Allowed:    false,
		RetryAfter: retryAfter,
		Remaining:  tokens,
		Limit:      cfg.Capacity,
		ResetAt:    a.fullAt(now, tokens, cfg),
	}, nil
}

func (a *tokenBucketAlgorithm) persist(ctx context.Context, store Store, tokensKey, refillKey string, tokens int64, now time.Time) error {
	if err := store.SetInt64(ctx, tokensKey, tokens, 0); err != nil {
		return fmt.Errorf("set tokens: %w", err)
	}
	if err := store.SetInt64(ctx, refillKey, now.UnixNano(), 0); err != nil {
		return fmt.Errorf("set last refill: %w", err)
	}
	return nil
}

func (a *tokenBucketAlgorithm) fullAt(now time.Time, tokens int64, cfg ResourceConfig) time.Time {
	missing := cfg.Capacity - tokens
	return now.Add(time.Duration(float64(missing) / float64(cfg.Rate) * float64(time.Second)))
}

func (a *tokenBucketAlgorithm) Reset(ctx context.Context, store Store, key string) error {
	return store.Del(ctx, a.tokensKey(key), a.refillKey(key))
}

func (a *tokenBucketAlgorithm) tokensKey(key string) string {
	return "token:" + key + ":tokens"
}

func (a *tokenBucketAlgorithm) refillKey(key string) string {
	return "token:" + key + ":last_refill"
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
