package limiter

import "time"

// EventType tags a decision event.
type EventType string

const (
	// EventAllowed is published when a request is admitted.
	EventAllowed EventType = "allowed"

	// EventDenied is published when a request is throttled.
	EventDenied EventType = "denied"

	// EventStoreError is published when the store could not be reached.
	EventStoreError EventType = "store_error"
)

// Event describes one admission decision for observers.
type Event struct {
	Type       EventType     `json:"type"`
	Key        string        `json:"key"`
	Algorithm  string        `json:"algorithm"`
	Remaining  int64         `json:"remaining"`
	RetryAfter time.Duration `json:"retry_after"`
	Timestamp  time.Time     `json:"timestamp"`
	Err        error         `json:"-"`
}
