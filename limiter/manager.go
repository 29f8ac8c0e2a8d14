package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/reqgate/reqgate/logger"
)

// Manager is the Limiter implementation. It owns the store, resolves
// algorithms once per tag, publishes decision events and keeps per-key
// metrics. Construction validates the whole configuration so misconfigured
// rules fail at startup, not under traffic.
type Manager struct {
	cfg     Config
	store   Store
	log     *logger.CtxZapLogger
	metrics *metricsCollector
	events  EventBus

	mu         sync.RWMutex
	algorithms map[string]Algorithm

	closeOnce sync.Once
}

// NewManager builds a manager from configuration. The redis client may be
// nil for the memory store; the redis store rejects a nil client.
func NewManager(cfg Config, log *logger.CtxZapLogger, client redis.UniversalClient) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := NewStore(cfg, client)
	if err != nil {
		return nil, err
	}

	return newManager(cfg, log, store)
}

// NewManagerWithStore builds a manager around an explicit store. Intended
// for tests that inject a failing or instrumented store.
func NewManagerWithStore(cfg Config, log *logger.CtxZapLogger, store Store) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newManager(cfg, log, store)
}

func newManager(cfg Config, log *logger.CtxZapLogger, store Store) (*Manager, error) {
	m := &Manager{
		cfg:        cfg,
		store:      store,
		log:        log,
		metrics:    newMetricsCollector(),
		events:     NewEventBus(cfg.EventBusBuffer),
		algorithms: make(map[string]Algorithm),
	}

	// Resolve every configured algorithm up front so an unknown tag fails
	// here instead of during a request.
	if _, err := m.algorithm(cfg.Default.Algorithm); err != nil {
		return nil, err
	}
	for resource, rc := range cfg.Resources {
		if _, err := m.algorithm(rc.Algorithm); err != nil {
			return nil, fmt.Errorf("resource %q: %w", resource, err)
		}
	}

	return m, nil
}

func (m *Manager) algorithm(tag string) (Algorithm, error) {
	m.mu.RLock()
	algo, ok := m.algorithms[tag]
	m.mu.RUnlock()
	if ok {
		return algo, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if algo, ok = m.algorithms[tag]; ok {
		return algo, nil
	}
	algo, err := NewAlgorithm(tag)
	if err != nil {
		return nil, err
	}
	m.algorithms[tag] = algo
	return algo, nil
}

// Allow checks a single request for key under the default rule.
func (m *Manager) Allow(ctx context.Context, key string) (*Decision, error) {
	return m.AllowN(ctx, key, 1)
}

// AllowN checks n requests for key under the default rule.
func (m *Manager) AllowN(ctx context.Context, key string, n int64) (*Decision, error) {
	return m.allow(ctx, key, n, m.cfg.Default)
}

// AllowWith checks a request under an explicit rule. The rule must have
// passed Validate; an unknown algorithm tag surfaces as an error.
func (m *Manager) AllowWith(ctx context.Context, key string, cfg ResourceConfig) (*Decision, error) {
	return m.allow(ctx, key, 1, cfg)
}

// AllowResource checks a request for key under the named resource's rule,
// falling back to the default rule.
func (m *Manager) AllowResource(ctx context.Context, resource, key string) (*Decision, error) {
	return m.allow(ctx, key, 1, m.cfg.ResourceConfigFor(resource))
}

func (m *Manager) allow(ctx context.Context, key string, n int64, cfg ResourceConfig) (*Decision, error) {
	if !m.cfg.Enabled {
		return &Decision{Allowed: true, Remaining: -1, Limit: -1}, nil
	}

	algo, err := m.algorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	decision, err := algo.Allow(ctx, m.store, key, n, cfg)
	if err != nil {
		m.metrics.recordStoreError(key)
		m.events.Publish(Event{
			Type:      EventStoreError,
			Key:       key,
			Algorithm: algo.Name(),
			Timestamp: time.Now(),
			Err:       err,
		})
		return nil, err
	}

	if decision.Allowed {
		m.metrics.recordAllowed(key)
		m.events.Publish(Event{
			Type:      EventAllowed,
			Key:       key,
			Algorithm: algo.Name(),
			Remaining: decision.Remaining,
			Timestamp: time.Now(),
		})
	} else {
		m.metrics.recordDenied(key)
		m.events.Publish(Event{
			Type:       EventDenied,
			Key:        key,
			Algorithm:  algo.Name(),
			Remaining:  decision.Remaining,
			RetryAfter: decision.RetryAfter,
			Timestamp:  time.Now(),
		})
		if m.log != nil {
			m.log.InfoCtx(ctx, "request throttled",
				zap.String("key", key),
				zap.String("algorithm", algo.Name()),
				zap.Duration("retry_after", decision.RetryAfter),
			)
		}
	}

	return decision, nil
}

// Metrics returns a snapshot of the counters for key.
func (m *Manager) Metrics(key string) *MetricsSnapshot {
	return m.metrics.snapshot(key)
}

// EventBus exposes the decision event stream.
func (m *Manager) EventBus() EventBus {
	return m.events
}

// Reset drops all limiter state for key, in the store and in the metrics.
func (m *Manager) Reset(key string) {
	ctx := context.Background()

	m.mu.RLock()
	algos := make([]Algorithm, 0, len(m.algorithms))
	for _, algo := range m.algorithms {
		algos = append(algos, algo)
	}
	m.mu.RUnlock()

	for _, algo := range algos {
		if err := algo.Reset(ctx, m.store, key); err != nil && m.log != nil {
			m.log.Warn("failed to reset limiter state",
				zap.String("key", key),
				zap.String("algorithm", algo.Name()),
				zap.Error(err),
			)
		}
	}
	m.metrics.reset(key)
}

// IsEnabled reports whether limiting is active.
func (m *Manager) IsEnabled() bool {
	return m.cfg.Enabled
}

// Close shuts down the event bus and the store. Safe to call twice.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.events.Close()
		err = m.store.Close()
	})
	return err
}

var _ Limiter = (*Manager)(nil)
