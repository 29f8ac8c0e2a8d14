package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// slidingWindowAlgorithm tracks one timestamped entry per hit in a sorted
// set and admits a request while the trailing window holds fewer than
// cfg.Limit hits.
type slidingWindowAlgorithm struct{}

func (a *slidingWindowAlgorithm) Name() string {
	return string(AlgorithmSlidingWindow)
}

// Allow prunes hits that left the window, counts the rest, and either
// records the new hit or computes when the oldest surviving hit will age
// out so the caller knows how long to back off.
func (a *slidingWindowAlgorithm) Allow(ctx context.Context, store Store, key string, n int64, cfg ResourceConfig) (*Decision, error) {
	if n <= 0 {
		n = 1
	}

	now := time.Now()
	windowKey := a.windowKey(key)
	windowStart := now.Add(-cfg.Window)
	minScore := float64(windowStart.UnixNano())
	maxScore := float64(now.UnixNano())

	// Entries strictly before the window start no longer count.
	if err := store.ZRemRangeByScore(ctx, windowKey, 0, minScore-1); err != nil {
		return nil, fmt.Errorf("remove aged hits: %w", err)
	}

	count, err := store.ZCount(ctx, windowKey, minScore, maxScore)
	if err != nil {
		return nil, fmt.Errorf("count window hits: %w", err)
	}

	if count+n <= cfg.Limit {
		for i := int64(0); i < n; i++ {
			// Nudge the score per hit and use a UUID member so two hits in
			// the same nanosecond stay distinct entries.
			score := float64(now.Add(time.Duration(i) * time.Nanosecond).UnixNano())
			if err := store.ZAdd(ctx, windowKey, score, uuid.New().String()); err != nil {
				return nil, fmt.Errorf("record hit: %w", err)
			}
		}
		// Keep the set around slightly longer than the window so a quiet
		// key eventually disappears from the store.
		if err := store.Expire(ctx, windowKey, cfg.Window+time.Second); err != nil {
			return nil, fmt.Errorf("expire window: %w", err)
		}

		return &Decision{
			Allowed:   true,
			Remaining: cfg.Limit - count - n,
			Limit:     cfg.Limit,
			ResetAt:   now.Add(cfg.Window),
		}, nil
	}

	retryAfter, err := a.retryAfter(ctx, store, windowKey, now, cfg.Window)
	if err != nil {
		return nil, err
	}

	return &Decision{
		Allowed:    false,
		RetryAfter: retryAfter,
		Remaining:  maxInt64(0, cfg.Limit-count),
		Limit:      cfg.Limit,
		ResetAt:    now.Add(cfg.Window),
	}, nil
}

// retryAfter is the time until the oldest in-window hit falls outside the
// window. Never negative; a denial in the same instant the window fills
// still reports a positive wait.
func (a *slidingWindowAlgorithm) retryAfter(ctx context.Context, store Store, windowKey string, now time.Time, window time.Duration) (time.Duration, error) {
	oldest, ok, err := store.ZMinScore(ctx, windowKey)
	if err != nil {
		return 0, fmt.Errorf("oldest window hit: %w", err)
	}
	if !ok {
		return window, nil
	}

	expiresAt := time.Unix(0, int64(oldest)).Add(window)
	retryAfter := expiresAt.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return retryAfter, nil
}

func (a *slidingWindowAlgorithm) Reset(ctx context.Context, store Store, key string) error {
	return store.Del(ctx, a.windowKey(key))
}

func (a *slidingWindowAlgorithm) windowKey(key string) string {
	return "window:" + key
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
