// Package limiter implements the throttling core of the request admission
// gate.
//
// Design:
//   - Algorithm and Store are strategy interfaces. Algorithms express policy
//     purely in terms of the store's atomic primitives; they never talk to
//     Redis directly.
//   - Storage is in-process memory or Redis. Only the Redis store makes a
//     limit global across replicas; the store, not this package, supplies
//     the atomicity concurrent checks rely on.
//   - Limiting is opt-in infrastructure: a Manager built from a disabled
//     config admits every request.
//   - Store failures surface as errors wrapping ErrStoreUnavailable and are
//     never swallowed here; the caller owns the fail-open/fail-closed choice.
package limiter

import (
	"context"
	"math"
	"time"
)

// Limiter is the decision surface consumed by the admission gate.
type Limiter interface {
	// Allow checks a single request for key under the configured rules.
	Allow(ctx context.Context, key string) (*Decision, error)

	// AllowN checks n requests at once.
	AllowN(ctx context.Context, key string, n int64) (*Decision, error)

	// AllowWith checks a request under an explicit per-call rule, bypassing
	// the configured resource table. The rule must be validated beforehand.
	AllowWith(ctx context.Context, key string, cfg ResourceConfig) (*Decision, error)

	// Metrics returns a snapshot of the counters for key.
	Metrics(key string) *MetricsSnapshot

	// EventBus exposes the decision event stream.
	EventBus() EventBus

	// Reset drops all state for key.
	Reset(key string)

	// IsEnabled reports whether limiting is active.
	IsEnabled() bool

	// Close releases the store and the event bus.
	Close() error
}

// Decision is the outcome of one admission check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// RetryAfter is the suggested wait before retrying. Zero when allowed,
	// positive when denied.
	RetryAfter time.Duration

	// Remaining is the quota left inside the current window.
	Remaining int64

	// Limit is the total quota for the window.
	Limit int64

	// ResetAt is when the current window's quota fully recovers.
	ResetAt time.Time
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds, floored
// at 1. Denied decisions always carry at least one second so a Retry-After
// header is never zero or negative.
func (d *Decision) RetryAfterSeconds() int64 {
	secs := int64(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
