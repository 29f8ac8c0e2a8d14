package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventBusPublishSubscribe(t *testing.T) {
	bus := NewEventBus(4)
	defer bus.Close()

	bus.Publish(Event{Type: EventAllowed, Key: "k", Timestamp: time.Now()})

	event := <-bus.Subscribe()
	assert.Equal(t, EventAllowed, event.Type)
	assert.Equal(t, "k", event.Key)
}

func TestEventBusDropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	bus.Publish(Event{Type: EventAllowed, Key: "a"})
	bus.Publish(Event{Type: EventAllowed, Key: "b"})

	assert.Equal(t, int64(1), bus.Dropped())
}

func TestEventBusPublishAfterClose(t *testing.T) {
	bus := NewEventBus(1)
	bus.Close()

	// must not panic
	bus.Publish(Event{Type: EventAllowed, Key: "a"})
	assert.Equal(t, int64(0), bus.Dropped())
}
