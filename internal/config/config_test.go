package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"MAX_QUEUE_SIZE", "WORKER_COUNT", "BACKPRESSURE_THRESHOLD", "BATCH_SIZE",
		"BATCH_TIMEOUT", "MAX_INFLIGHT", "CACHE_TTL", "PORT", "LOGGING_LEVEL",
		"LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY",
	}
	for _, v := range vars {
		t.Setenv(v, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20000, cfg.MaxQueueSize)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 0.9, cfg.BackpressureThreshold)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, durationFromSeconds(0.12), cfg.BatchTimeout)
	assert.Equal(t, 2, cfg.MaxInflight)
	assert.Equal(t, 3600*time.Second, cfg.CacheTTL)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "info", cfg.LoggingLevel)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_QUEUE_SIZE", "500")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("BACKPRESSURE_THRESHOLD", "0.5")
	t.Setenv("BATCH_SIZE", "16")
	t.Setenv("BATCH_TIMEOUT", "0.5")
	t.Setenv("MAX_INFLIGHT", "3")
	t.Setenv("CACHE_TTL", "60")
	t.Setenv("PORT", "9090")
	t.Setenv("LOGGING_LEVEL", "debug")
	t.Setenv("LLM_BASE_URL", "https://api.example.com")
	t.Setenv("LLM_MODEL", "gpt-test")
	t.Setenv("LLM_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.MaxQueueSize)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 0.5, cfg.BackpressureThreshold)
	assert.Equal(t, 16, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchTimeout)
	assert.Equal(t, 3, cfg.MaxInflight)
	assert.Equal(t, 60*time.Second, cfg.CacheTTL)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LoggingLevel)
	assert.Equal(t, "https://api.example.com", cfg.LLM.BaseURL)
	assert.Equal(t, "gpt-test", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestLoad_InvalidNumericValueErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKER_COUNT", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsNonPositiveQueueSize(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_QUEUE_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_RejectsBackpressureThresholdOutOfRange(t *testing.T) {
	cfg := &Config{MaxQueueSize: 10, WorkerCount: 1, BackpressureThreshold: 1.5, BatchSize: 1, MaxInflight: 1}
	assert.Error(t, cfg.Validate())

	cfg.BackpressureThreshold = 0
	assert.Error(t, cfg.Validate())

	cfg.BackpressureThreshold = 1
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveBatchSizeAndInflight(t *testing.T) {
	cfg := &Config{MaxQueueSize: 10, WorkerCount: 1, BackpressureThreshold: 0.5, BatchSize: 0, MaxInflight: 1}
	assert.Error(t, cfg.Validate())

	cfg.BatchSize = 1
	cfg.MaxInflight = 0
	assert.Error(t, cfg.Validate())
}

func TestBackpressureLimit_FloorsProduct(t *testing.T) {
	cfg := &Config{MaxQueueSize: 100, BackpressureThreshold: 0.95}
	assert.Equal(t, 95, cfg.BackpressureLimit())

	cfg = &Config{MaxQueueSize: 10, BackpressureThreshold: 0.33}
	assert.Equal(t, 3, cfg.BackpressureLimit())
}
