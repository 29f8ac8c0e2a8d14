package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, string(StoreMemory), cfg.StoreType)
	assert.Equal(t, DefaultKeyPrefix, cfg.Redis.KeyPrefix)
	assert.Equal(t, defaultEventBusBuffer, cfg.EventBusBuffer)
	assert.Equal(t, string(AlgorithmSlidingWindow), cfg.Default.Algorithm)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfigValidateBadStoreType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StoreType = "cassandra"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store_type")
}

func TestConfigValidateBadResource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resources = map[string]ResourceConfig{
		"/api/test": {Algorithm: string(AlgorithmSlidingWindow), Limit: 0, Window: time.Minute},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/api/test")
	assert.Contains(t, err.Error(), "limit")
}

func TestResourceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ResourceConfig
		wantErr string
	}{
		{
			name: "valid sliding window",
			cfg:  ResourceConfig{Algorithm: "sliding_window", Limit: 10, Window: time.Minute},
		},
		{
			name: "valid token bucket",
			cfg:  ResourceConfig{Algorithm: "token_bucket", Rate: 5, Capacity: 10},
		},
		{
			name:    "sliding window without window",
			cfg:     ResourceConfig{Algorithm: "sliding_window", Limit: 10},
			wantErr: "window",
		},
		{
			name:    "token bucket without rate",
			cfg:     ResourceConfig{Algorithm: "token_bucket", Capacity: 10},
			wantErr: "rate",
		},
		{
			name:    "token bucket init over capacity",
			cfg:     ResourceConfig{Algorithm: "token_bucket", Rate: 5, Capacity: 10, InitTokens: 11},
			wantErr: "init_tokens",
		},
		{
			name:    "unknown algorithm",
			cfg:     ResourceConfig{Algorithm: "leaky_bucket", Limit: 10, Window: time.Minute},
			wantErr: "algorithm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate("r")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResourceConfigFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resources = map[string]ResourceConfig{
		"/api/special": {Algorithm: "sliding_window", Limit: 2, Window: 5 * time.Second},
	}

	special := cfg.ResourceConfigFor("/api/special")
	assert.Equal(t, int64(2), special.Limit)

	fallback := cfg.ResourceConfigFor("/api/other")
	assert.Equal(t, cfg.Default.Limit, fallback.Limit)
}

func TestNewAlgorithmUnknownTag(t *testing.T) {
	_, err := NewAlgorithm("leaky_bucket")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
