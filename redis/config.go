package redis

import (
	"fmt"
	"time"
)

// InstanceConfig describes one standalone Redis instance.
type InstanceConfig struct {
	Host     string `mapstructure:"host" json:"host" yaml:"host"`
	Port     int    `mapstructure:"port" json:"port" yaml:"port"`
	Password string `mapstructure:"password" json:"password" yaml:"password"`
	DB       int    `mapstructure:"db" json:"db" yaml:"db"`

	PoolSize     int           `mapstructure:"pool_size" json:"pool_size" yaml:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns" json:"min_idle_conns" yaml:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" json:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout" yaml:"write_timeout"`
}

// Addr returns the host:port pair for the instance.
func (c InstanceConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ApplyDefaults fills in unset fields.
func (c *InstanceConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// Validate checks the instance's bounds.
func (c InstanceConfig) Validate(name string) error {
	if c.Host == "" {
		return fmt.Errorf("redis instance '%s': host is required", name)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("redis instance '%s': port %d out of range", name, c.Port)
	}
	if c.DB < 0 || c.DB > 15 {
		return fmt.Errorf("redis instance '%s': db %d out of range", name, c.DB)
	}
	return nil
}

// Config is the redis section of the application configuration: a set of
// named standalone instances.
type Config struct {
	Instances map[string]InstanceConfig `mapstructure:"instances" json:"instances" yaml:"instances"`
}

// ApplyDefaults fills in unset fields of every instance.
func (c *Config) ApplyDefaults() {
	for name, instance := range c.Instances {
		instance.ApplyDefaults()
		c.Instances[name] = instance
	}
}

// Validate checks every configured instance.
func (c Config) Validate() error {
	for name, instance := range c.Instances {
		if err := instance.Validate(name); err != nil {
			return err
		}
	}
	return nil
}
