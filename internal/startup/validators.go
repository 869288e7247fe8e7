// Package startup performs non-fatal pre-flight checks before the gateway
// starts serving traffic.
package startup

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/arborly/paperqueue/internal/config"
	"github.com/arborly/paperqueue/internal/security"
)

// ValidateAtStartup checks that the configured LLM endpoint is well-formed
// and, best-effort, reachable. Problems are logged as WARN and never block
// startup — the dispatcher will surface real failures as upstream_error on
// the first request, the same "warn, don't block" policy the teacher
// applies to proxy credential checks.
func ValidateAtStartup(cfg *config.Config, log *slog.Logger) {
	if cfg.LLM.BaseURL == "" {
		log.Warn("LLM_BASE_URL is not set; every dispatch will fail with upstream_error")
		return
	}

	parsed, err := url.Parse(cfg.LLM.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		log.Warn("LLM_BASE_URL does not look like a valid http(s) URL",
			"llm_base_url", cfg.LLM.BaseURL,
		)
		return
	}

	if cfg.LLM.APIKey == "" {
		log.Warn("LLM_API_KEY is not set; upstream calls will be unauthenticated")
	} else {
		log.Debug("LLM API key configured", "api_key", security.MaskAPIKey(cfg.LLM.APIKey))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, cfg.LLM.BaseURL, nil)
	if err != nil {
		return
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Warn("LLM endpoint unreachable at startup",
			"llm_base_url", cfg.LLM.BaseURL,
			"error", err.Error(),
			"recommendation", "verify the endpoint is running and network-accessible; dispatch calls fail with upstream_error until it is",
		)
		return
	}
	_ = resp.Body.Close()

	log.Debug("LLM endpoint reachable at startup", "llm_base_url", cfg.LLM.BaseURL)
}
