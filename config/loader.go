// Package config loads application configuration from a file with
// environment-variable overrides.
//
// Sections are addressed by dot-separated keys and unmarshaled into typed
// structs via mapstructure tags; every component validates its own section
// after unmarshaling so bad configuration fails at startup, not at request
// time.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// REQGATE_LIMITER_STORE_TYPE overrides limiter.store_type.
const EnvPrefix = "REQGATE"

// Loader wraps a viper instance bound to one config file.
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader reads the file at path and prepares env overrides.
func NewLoader(path string) (*Loader, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return &Loader{v: v, path: path}, nil
}

// Unmarshal decodes a config section into out. A missing section is an
// error; components that tolerate absence should call Has first.
func (l *Loader) Unmarshal(section string, out interface{}) error {
	if !l.v.IsSet(section) {
		return fmt.Errorf("config section %q not found in %s", section, l.path)
	}
	if err := l.v.UnmarshalKey(section, out); err != nil {
		return fmt.Errorf("unmarshal config section %q: %w", section, err)
	}
	return nil
}

// Has reports whether a section is present.
func (l *Loader) Has(section string) bool {
	return l.v.IsSet(section)
}

// GetString returns a single string value.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Path returns the loaded file path.
func (l *Loader) Path() string {
	return l.path
}
