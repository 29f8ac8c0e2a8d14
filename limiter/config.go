package limiter

import (
	"time"
)

// RedisConfig tunes the Redis-backed store.
type RedisConfig struct {
	// Instance names the client in the redis manager to use.
	Instance string `mapstructure:"instance" json:"instance" yaml:"instance"`

	// KeyPrefix namespaces limiter keys. Defaults to DefaultKeyPrefix.
	KeyPrefix string `mapstructure:"key_prefix" json:"key_prefix" yaml:"key_prefix"`
}

// ResourceConfig is the throttling rule for one resource (typically a
// route). Which fields matter depends on the algorithm: sliding_window uses
// Limit and Window, token_bucket uses Rate, Capacity and InitTokens.
type ResourceConfig struct {
	// Algorithm selects the throttling algorithm for this resource.
	Algorithm string `mapstructure:"algorithm" json:"algorithm" yaml:"algorithm"`

	// Limit is the maximum number of hits inside Window.
	Limit int64 `mapstructure:"limit" json:"limit" yaml:"limit"`

	// Window is the trailing time window length.
	Window time.Duration `mapstructure:"window" json:"window" yaml:"window"`

	// Rate is the token refill rate per second.
	Rate int64 `mapstructure:"rate" json:"rate" yaml:"rate"`

	// Capacity is the maximum bucket size.
	Capacity int64 `mapstructure:"capacity" json:"capacity" yaml:"capacity"`

	// InitTokens seeds the bucket on first sight; 0 means a full bucket.
	InitTokens int64 `mapstructure:"init_tokens" json:"init_tokens" yaml:"init_tokens"`
}

// Validate checks the rule for the named resource. Bad rules are rejected at
// construction time so a request never trips over them.
func (c ResourceConfig) Validate(resource string) error {
	switch AlgorithmType(c.Algorithm) {
	case AlgorithmSlidingWindow:
		if c.Limit <= 0 {
			return &ValidationError{Resource: resource, Field: "limit", Message: "must be positive"}
		}
		if c.Window <= 0 {
			return &ValidationError{Resource: resource, Field: "window", Message: "must be positive"}
		}
	case AlgorithmTokenBucket:
		if c.Rate <= 0 {
			return &ValidationError{Resource: resource, Field: "rate", Message: "must be positive"}
		}
		if c.Capacity <= 0 {
			return &ValidationError{Resource: resource, Field: "capacity", Message: "must be positive"}
		}
		if c.InitTokens < 0 || c.InitTokens > c.Capacity {
			return &ValidationError{Resource: resource, Field: "init_tokens", Message: "must be between 0 and capacity"}
		}
	default:
		return &ValidationError{Resource: resource, Field: "algorithm", Message: "unsupported algorithm '" + c.Algorithm + "'"}
	}
	return nil
}

// Config is the limiter section of the application configuration.
type Config struct {
	// Enabled turns limiting on. A disabled limiter admits everything.
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	// StoreType selects the counter backend, "memory" or "redis".
	StoreType string `mapstructure:"store_type" json:"store_type" yaml:"store_type"`

	// Redis configures the redis backend when StoreType is "redis".
	Redis RedisConfig `mapstructure:"redis" json:"redis" yaml:"redis"`

	// EventBusBuffer sizes the decision event channel.
	EventBusBuffer int `mapstructure:"event_bus_buffer" json:"event_bus_buffer" yaml:"event_bus_buffer"`

	// Default is the rule applied to resources without their own entry.
	Default ResourceConfig `mapstructure:"default" json:"default" yaml:"default"`

	// Resources maps resource names to their rules.
	Resources map[string]ResourceConfig `mapstructure:"resources" json:"resources" yaml:"resources"`
}

// DefaultConfig returns a conservative memory-backed configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		StoreType:      string(StoreMemory),
		EventBusBuffer: defaultEventBusBuffer,
		Default: ResourceConfig{
			Algorithm: string(AlgorithmSlidingWindow),
			Limit:     100,
			Window:    time.Minute,
		},
	}
}

// ApplyDefaults fills in unset fields.
func (c *Config) ApplyDefaults() {
	if c.StoreType == "" {
		c.StoreType = string(StoreMemory)
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = DefaultKeyPrefix
	}
	if c.EventBusBuffer <= 0 {
		c.EventBusBuffer = defaultEventBusBuffer
	}
	if c.Default.Algorithm == "" {
		c.Default = DefaultConfig().Default
	}
}

// Validate checks the whole section, including every per-resource rule.
func (c Config) Validate() error {
	switch StoreType(c.StoreType) {
	case StoreMemory, StoreRedis, "":
	default:
		return &ValidationError{Field: "store_type", Message: "unsupported store type '" + c.StoreType + "'"}
	}
	if err := c.Default.Validate("default"); err != nil {
		return err
	}
	for resource, rc := range c.Resources {
		if err := rc.Validate(resource); err != nil {
			return err
		}
	}
	return nil
}

// ResourceConfigFor returns the rule for resource, falling back to Default.
func (c Config) ResourceConfigFor(resource string) ResourceConfig {
	if rc, ok := c.Resources[resource]; ok {
		return rc
	}
	return c.Default
}
