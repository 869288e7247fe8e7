package config

import (
	"fmt"
	"log/slog"

	"github.com/arborly/paperqueue/internal/security"
)

// parseFunc is a function type that parses a string value into the desired type.
type parseFunc[T any] func(string) (T, error)

// parseField parses a raw environment value with proper error context,
// falling back to defaultValue when the raw value is empty.
func parseField[T any](raw string, defaultValue T, parser parseFunc[T], fieldName string) (T, error) {
	if raw == "" {
		return defaultValue, nil
	}

	parsed, err := parser(raw)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", fieldName, err)
	}
	return parsed, nil
}

// PrintConfig logs the effective configuration at startup, redacting the
// LLM API key the way the teacher's PrintConfig redacts the master key.
func PrintConfig(logger *slog.Logger, cfg *Config) {
	logger.Info("=== Configuration Loaded ===")
	logger.Info("pipeline",
		"max_queue_size", cfg.MaxQueueSize,
		"worker_count", cfg.WorkerCount,
		"backpressure_threshold", cfg.BackpressureThreshold,
		"backpressure_limit", cfg.BackpressureLimit(),
		"batch_size", cfg.BatchSize,
		"batch_timeout", cfg.BatchTimeout.String(),
		"max_inflight", cfg.MaxInflight,
		"cache_ttl", cfg.CacheTTL.String(),
	)
	logger.Info("server",
		"port", cfg.Port,
		"logging_level", cfg.LoggingLevel,
	)
	logger.Info("llm",
		"base_url", cfg.LLM.BaseURL,
		"model", cfg.LLM.Model,
		"api_key", security.MaskAPIKey(cfg.LLM.APIKey),
	)
	logger.Info("=== Configuration Ready ===")
}
