package limiter

import "sync"

const defaultEventBusBuffer = 256

// EventBus carries decision events to observers. Publishing never blocks a
// request: when the buffer is full the event is dropped and counted.
type EventBus interface {
	// Publish offers an event to the bus, dropping it if the buffer is full.
	Publish(event Event)

	// Subscribe returns the event channel. It is closed by Close.
	Subscribe() <-chan Event

	// Dropped reports how many events were discarded due to a full buffer.
	Dropped() int64

	// Close shuts the bus down.
	Close()
}

type eventBus struct {
	ch      chan Event
	mu      sync.Mutex
	closed  bool
	dropped int64
}

// NewEventBus builds a buffered bus. A non-positive buffer falls back to the
// default.
func NewEventBus(buffer int) EventBus {
	if buffer <= 0 {
		buffer = defaultEventBusBuffer
	}
	return &eventBus{ch: make(chan Event, buffer)}
}

func (b *eventBus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- event:
	default:
		b.dropped++
	}
}

func (b *eventBus) Subscribe() <-chan Event {
	return b.ch
}

func (b *eventBus) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *eventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}
