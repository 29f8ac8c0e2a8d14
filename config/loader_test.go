package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewLoaderMissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoaderUnmarshalSection(t *testing.T) {
	path := writeConfigFile(t, `
limiter:
  enabled: true
  store_type: memory
  default:
    algorithm: sliding_window
    limit: 10
    window: 30s
`)
	loader, err := NewLoader(path)
	require.NoError(t, err)

	var section struct {
		Enabled   bool   `mapstructure:"enabled"`
		StoreType string `mapstructure:"store_type"`
		Default   struct {
			Algorithm string        `mapstructure:"algorithm"`
			Limit     int64         `mapstructure:"limit"`
			Window    time.Duration `mapstructure:"window"`
		} `mapstructure:"default"`
	}
	require.NoError(t, loader.Unmarshal("limiter", &section))

	assert.True(t, section.Enabled)
	assert.Equal(t, "memory", section.StoreType)
	assert.Equal(t, int64(10), section.Default.Limit)
	assert.Equal(t, 30*time.Second, section.Default.Window)
}

func TestLoaderMissingSection(t *testing.T) {
	path := writeConfigFile(t, "limiter:\n  enabled: true\n")
	loader, err := NewLoader(path)
	require.NoError(t, err)

	var out map[string]interface{}
	err = loader.Unmarshal("redis", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")

	assert.True(t, loader.Has("limiter"))
	assert.False(t, loader.Has("redis"))
}

func TestLoaderEnvOverride(t *testing.T) {
	path := writeConfigFile(t, "limiter:\n  store_type: memory\n")
	t.Setenv("REQGATE_LIMITER_STORE_TYPE", "redis")

	loader, err := NewLoader(path)
	require.NoError(t, err)

	assert.Equal(t, "redis", loader.GetString("limiter.store_type"))
}
