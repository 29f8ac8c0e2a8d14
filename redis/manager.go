// Package redis manages named Redis client instances for the rest of the
// application. Every instance is pinged at startup so connectivity problems
// surface before traffic does.
package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/reqgate/reqgate/logger"
)

// DefaultInstance is the instance name used when none is configured.
const DefaultInstance = "default"

// Manager owns the configured Redis clients.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*redis.Client
	log     *logger.CtxZapLogger
}

// NewManager connects and pings every configured instance.
func NewManager(ctx context.Context, cfg Config, log *logger.CtxZapLogger) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		clients: make(map[string]*redis.Client, len(cfg.Instances)),
		log:     log,
	}

	for name, instance := range cfg.Instances {
		client := redis.NewClient(&redis.Options{
			Addr:         instance.Addr(),
			Password:     instance.Password,
			DB:           instance.DB,
			PoolSize:     instance.PoolSize,
			MinIdleConns: instance.MinIdleConns,
			DialTimeout:  instance.DialTimeout,
			ReadTimeout:  instance.ReadTimeout,
			WriteTimeout: instance.WriteTimeout,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			_ = m.Close()
			_ = client.Close()
			return nil, fmt.Errorf("ping redis instance '%s' at %s: %w", name, instance.Addr(), err)
		}

		m.clients[name] = client
		if log != nil {
			log.Info("redis instance connected",
				zap.String("instance", name),
				zap.String("addr", instance.Addr()),
				zap.Int("db", instance.DB),
			)
		}
	}

	return m, nil
}

// Client returns the named client, or an error if it was never configured.
func (m *Manager) Client(name string) (*redis.Client, error) {
	if name == "" {
		name = DefaultInstance
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	client, ok := m.clients[name]
	if !ok {
		return nil, fmt.Errorf("redis instance '%s' is not configured", name)
	}
	return client, nil
}

// Close disconnects every client.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for name, client := range m.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close redis instance '%s': %w", name, err)
		}
		delete(m.clients, name)
	}
	return firstErr
}
