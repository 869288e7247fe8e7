package testhelpers

import (
	"time"

	"github.com/arborly/paperqueue/internal/config"
)

// NewTestConfig creates a small, fast-cycling Config suitable for unit and
// integration tests: short batch window, tiny queue, two workers unless
// overridden by the caller after construction.
func NewTestConfig() *config.Config {
	return &config.Config{
		MaxQueueSize:          100,
		WorkerCount:           2,
		BackpressureThreshold: 0.9,
		BatchSize:             8,
		BatchTimeout:          50 * time.Millisecond,
		MaxInflight:           2,
		CacheTTL:              time.Hour,
		Port:                  0,
		LoggingLevel:          "error",
		LLM: config.LLMConfig{
			BaseURL: "http://127.0.0.1:0",
			Model:   "test-model",
			APIKey:  "test-key",
		},
	}
}
