// Package config loads the gateway's environment-variable configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable named in the Configuration (environment) section.
type Config struct {
	MaxQueueSize          int
	WorkerCount           int
	BackpressureThreshold float64
	BatchSize             int
	BatchTimeout          time.Duration
	MaxInflight           int
	CacheTTL              time.Duration
	Port                  int
	LoggingLevel          string
	LLM                   LLMConfig
}

// LLMConfig describes the single upstream chat-completion endpoint the
// dispatcher calls. Unlike the teacher's multi-credential balancer, this
// gateway fronts exactly one provider.
type LLMConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

// Load builds a Config from the process environment, applying the defaults
// listed in spec.md §6 wherever a variable is unset or empty. A value that
// fails to parse is returned as an error.
func Load() (*Config, error) {
	cfg := &Config{
		MaxQueueSize:          20000,
		WorkerCount:           2,
		BackpressureThreshold: 0.9,
		BatchSize:             8,
		BatchTimeout:          durationFromSeconds(0.12),
		MaxInflight:           2,
		CacheTTL:              3600 * time.Second,
		Port:                  8000,
		LoggingLevel:          "info",
	}

	var err error

	if cfg.MaxQueueSize, err = parseField(os.Getenv("MAX_QUEUE_SIZE"), cfg.MaxQueueSize, strconv.Atoi, "MAX_QUEUE_SIZE"); err != nil {
		return nil, err
	}
	if cfg.WorkerCount, err = parseField(os.Getenv("WORKER_COUNT"), cfg.WorkerCount, strconv.Atoi, "WORKER_COUNT"); err != nil {
		return nil, err
	}
	if cfg.BackpressureThreshold, err = parseField(os.Getenv("BACKPRESSURE_THRESHOLD"), cfg.BackpressureThreshold, parseFloat, "BACKPRESSURE_THRESHOLD"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = parseField(os.Getenv("BATCH_SIZE"), cfg.BatchSize, strconv.Atoi, "BATCH_SIZE"); err != nil {
		return nil, err
	}
	batchTimeoutSeconds, err := parseField(os.Getenv("BATCH_TIMEOUT"), 0.12, parseFloat, "BATCH_TIMEOUT")
	if err != nil {
		return nil, err
	}
	cfg.BatchTimeout = durationFromSeconds(batchTimeoutSeconds)

	if cfg.MaxInflight, err = parseField(os.Getenv("MAX_INFLIGHT"), cfg.MaxInflight, strconv.Atoi, "MAX_INFLIGHT"); err != nil {
		return nil, err
	}
	cacheTTLSeconds, err := parseField(os.Getenv("CACHE_TTL"), 3600, strconv.Atoi, "CACHE_TTL")
	if err != nil {
		return nil, err
	}
	cfg.CacheTTL = time.Duration(cacheTTLSeconds) * time.Second

	if cfg.Port, err = parseField(os.Getenv("PORT"), cfg.Port, strconv.Atoi, "PORT"); err != nil {
		return nil, err
	}
	if level := os.Getenv("LOGGING_LEVEL"); level != "" {
		cfg.LoggingLevel = level
	}

	cfg.LLM = LLMConfig{
		BaseURL: os.Getenv("LLM_BASE_URL"),
		Model:   os.Getenv("LLM_MODEL"),
		APIKey:  os.Getenv("LLM_API_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations that would make the pipeline's invariants
// impossible to hold (§3 invariants 3 and 5 need positive capacities).
func (c *Config) Validate() error {
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("MAX_QUEUE_SIZE must be positive, got %d", c.MaxQueueSize)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	if c.BackpressureThreshold <= 0 || c.BackpressureThreshold > 1 {
		return fmt.Errorf("BACKPRESSURE_THRESHOLD must be in (0,1], got %f", c.BackpressureThreshold)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.MaxInflight <= 0 {
		return fmt.Errorf("MAX_INFLIGHT must be positive, got %d", c.MaxInflight)
	}
	return nil
}

// BackpressureLimit is floor(MAX_QUEUE_SIZE * BACKPRESSURE_THRESHOLD), the
// admission cutoff from §4.D step 4.
func (c *Config) BackpressureLimit() int {
	return int(float64(c.MaxQueueSize) * c.BackpressureThreshold)
}

func durationFromSeconds(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
