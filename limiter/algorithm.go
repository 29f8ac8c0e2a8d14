package limiter

import (
	"context"
	"fmt"
)

// Algorithm decides allow/deny for a key in terms of Store primitives
// (strategy pattern).
type Algorithm interface {
	// Allow checks whether n requests for key are permitted under cfg.
	Allow(ctx context.Context, store Store, key string, n int64, cfg ResourceConfig) (*Decision, error)

	// Reset drops the algorithm's state for key.
	Reset(ctx context.Context, store Store, key string) error

	// Name returns the algorithm tag.
	Name() string
}

// AlgorithmType enumerates the supported algorithms.
type AlgorithmType string

const (
	// AlgorithmSlidingWindow counts timestamped hits in a trailing window.
	AlgorithmSlidingWindow AlgorithmType = "sliding_window"

	// AlgorithmTokenBucket refills tokens at a fixed rate up to a capacity.
	AlgorithmTokenBucket AlgorithmType = "token_bucket"
)

// NewAlgorithm resolves an algorithm tag to its implementation. Unknown tags
// fail here, at construction time, never during a request.
func NewAlgorithm(tag string) (Algorithm, error) {
	switch AlgorithmType(tag) {
	case AlgorithmSlidingWindow:
		return &slidingWindowAlgorithm{}, nil
	case AlgorithmTokenBucket:
		return &tokenBucketAlgorithm{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidConfig, tag)
	}
}
