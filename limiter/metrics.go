package limiter

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsSnapshot is a point-in-time copy of one key's counters.
type MetricsSnapshot struct {
	Key         string    `json:"key"`
	Allowed     int64     `json:"allowed"`
	Denied      int64     `json:"denied"`
	StoreErrors int64     `json:"store_errors"`
	LastAllowed time.Time `json:"last_allowed"`
	LastDenied  time.Time `json:"last_denied"`
}

type keyMetrics struct {
	allowed     atomic.Int64
	denied      atomic.Int64
	storeErrors atomic.Int64

	mu          sync.Mutex
	lastAllowed time.Time
	lastDenied  time.Time
}

// metricsCollector counts decisions per key with atomics on the hot path.
type metricsCollector struct {
	mu   sync.RWMutex
	keys map[string]*keyMetrics
}

func newMetricsCollector() *metricsCollector {
	return &metricsCollector{keys: make(map[string]*keyMetrics)}
}

func (c *metricsCollector) forKey(key string) *keyMetrics {
	c.mu.RLock()
	m, ok := c.keys[key]
	c.mu.RUnlock()
	if ok {
		return m
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok = c.keys[key]; ok {
		return m
	}
	m = &keyMetrics{}
	c.keys[key] = m
	return m
}

func (c *metricsCollector) recordAllowed(key string) {
	m := c.forKey(key)
	m.allowed.Add(1)
	m.mu.Lock()
	m.lastAllowed = time.Now()
	m.mu.Unlock()
}

func (c *metricsCollector) recordDenied(key string) {
	m := c.forKey(key)
	m.denied.Add(1)
	m.mu.Lock()
	m.lastDenied = time.Now()
	m.mu.Unlock()
}

func (c *metricsCollector) recordStoreError(key string) {
	c.forKey(key).storeErrors.Add(1)
}

func (c *metricsCollector) snapshot(key string) *MetricsSnapshot {
	c.mu.RLock()
	m, ok := c.keys[key]
	c.mu.RUnlock()
	if !ok {
		return &MetricsSnapshot{Key: key}
	}

	m.mu.Lock()
	lastAllowed := m.lastAllowed
	lastDenied := m.lastDenied
	m.mu.Unlock()

	return &MetricsSnapshot{
		Key:         key,
		Allowed:     m.allowed.Load(),
		Denied:      m.denied.Load(),
		StoreErrors: m.storeErrors.Load(),
		LastAllowed: lastAllowed,
		LastDenied:  lastDenied,
	}
}

func (c *metricsCollector) reset(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
}
