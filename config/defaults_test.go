package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotEqual(t, APIConfig{}, cfg.API)
	assert.NotEmpty(t, cfg.Generation.SupportedVariants)
	assert.NotEmpty(t, cfg.Storage.Driver)
	assert.NotEmpty(t, cfg.Log.Level)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
	assert.NotEqual(t, MetricsConfig{}, cfg.Metrics)
	assert.NoError(t, cfg.Validate())
}

// --- Individual Default*Config functions ---

func TestDefaultAPIConfig(t *testing.T) {
	c := DefaultAPIConfig()
	assert.Equal(t, FixedAPIURL, c.BaseURL)
	assert.True(t, strings.HasPrefix(c.BaseURL, "https://"))
	assert.Equal(t, 5*time.Minute, c.Timeout)
	assert.Zero(t, c.RateLimitRPS)
	assert.Equal(t, 1, c.RateLimitBurst)
}

func TestDefaultGenerationConfig(t *testing.T) {
	c := DefaultGenerationConfig()
	assert.Equal(t, []string{"openai"}, c.SupportedVariants)
	assert.Equal(t, "1024x1024", c.DefaultSize)
	assert.Equal(t, "auto", c.DefaultQuality)
	assert.Equal(t, "1:1", c.DefaultAspectRatio)
	assert.Equal(t, 1, c.DefaultCount)
	assert.NotEmpty(t, c.DefaultModel)
}

func TestDefaultStorageConfig(t *testing.T) {
	c := DefaultStorageConfig()
	assert.Equal(t, "sqlite", c.Driver)
	assert.Equal(t, "store.db", filepath.Base(c.DSN))
	assert.Equal(t, 1, c.MaxOpenConns)
	assert.Equal(t, "localhost:6379", c.Redis.Addr)
	assert.False(t, c.Redis.TLS)
}

func TestDefaultLogConfig(t *testing.T) {
	c := DefaultLogConfig()
	assert.Equal(t, "warn", c.Level)
	assert.Equal(t, "console", c.Format)
	assert.Equal(t, []string{"stderr"}, c.OutputPaths)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	c := DefaultTelemetryConfig()
	assert.False(t, c.Enabled)
	assert.Equal(t, "magic-image", c.ServiceName)
	assert.InDelta(t, 0.1, c.SampleRate, 1e-9)
}

func TestDefaultMetricsConfig(t *testing.T) {
	c := DefaultMetricsConfig()
	assert.True(t, c.Enabled)
	assert.Equal(t, "magicimage", c.Namespace)
}
