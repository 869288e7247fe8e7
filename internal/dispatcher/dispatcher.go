// Package dispatcher implements the LLM Dispatcher: the sole component
// that makes outbound calls to the configured chat-completion endpoint,
// bounded by a process-wide permit semaphore.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/arborly/paperqueue/internal/config"
)

const (
	singleCallTimeout = 60 * time.Second
	batchCallTimeout  = 120 * time.Second

	singleCallMaxTokens = 1200
	batchCallMaxTokens  = 1600

	maxResponseSizeBytes = 10 * 1024 * 1024

	systemPromptSingle = "You analyze a single piece of text and respond with a single " +
		"JSON object only, no surrounding prose. The object must contain the keys " +
		"\"summary\" (string), \"key_points\" (array of strings), and " +
		"\"recommendation\" (string)."

	systemPromptBatch = "You analyze a numbered set of inputs, each prefixed with its own " +
		"\"ID:<id>\" line. Respond with a single JSON array only, no surrounding prose, " +
		"containing exactly one object per input, in the same order you received them. " +
		"Each object must contain the keys \"id\" (copied verbatim from that input's " +
		"ID: prefix), \"summary\" (string), \"key_points\" (array of strings), and " +
		"\"recommendation\" (string)."
)

// Dispatcher owns the permit semaphore bounding MAX_INFLIGHT concurrent
// outbound calls and issues both the single-item and batch chat-completion
// requests. It never retries; classifying a failure as transient is the
// Worker's decision.
type Dispatcher struct {
	cfg        config.LLMConfig
	httpClient *http.Client
	permits    chan struct{}
	logger     *slog.Logger
}

// New creates a Dispatcher bounded to maxInflight concurrent outbound
// calls, with a connection pool capped the way §4.H's Lifecycle describes
// (at most 10 keep-alive, at most 20 total per host).
func New(cfg config.LLMConfig, maxInflight int, logger *slog.Logger) *Dispatcher {
	if maxInflight <= 0 {
		maxInflight = 1
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
	}
	return &Dispatcher{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
		permits:    make(chan struct{}, maxInflight),
		logger:     logger,
	}
}

// Single issues a one-item chat-completion call and returns the raw
// response content string. Any transport error, non-success status, or
// malformed envelope surfaces as an upstream_error.
func (d *Dispatcher) Single(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, singleCallTimeout)
	defer cancel()

	if err := d.acquire(ctx); err != nil {
		return "", err
	}
	defer d.release()

	req := ChatRequest{
		Model: d.cfg.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPromptSingle},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.0,
		MaxTokens:   singleCallMaxTokens,
	}

	return d.send(ctx, req)
}

// Batch issues a multi-item chat-completion call. prompts and ids must be
// the same non-zero length; each prompt is anchored to its id with an
// "ID:<id>" prefix so the Worker can demultiplex the response without
// relying on array position. Returns the raw, unparsed response content —
// parsing and validation are the Worker's responsibility.
func (d *Dispatcher) Batch(ctx context.Context, prompts, ids []string) (string, error) {
	if len(prompts) != len(ids) || len(prompts) == 0 {
		return "", fmt.Errorf("dispatcher: batch call requires len(prompts) == len(ids) > 0, got %d/%d", len(prompts), len(ids))
	}

	ctx, cancel := context.WithTimeout(ctx, batchCallTimeout)
	defer cancel()

	if err := d.acquire(ctx); err != nil {
		return "", err
	}
	defer d.release()

	messages := make([]ChatMessage, 0, len(prompts)+1)
	messages = append(messages, ChatMessage{Role: "system", Content: systemPromptBatch})
	for i, prompt := range prompts {
		messages = append(messages, ChatMessage{
			Role:    "user",
			Content: fmt.Sprintf("ID:%s\n%s", ids[i], prompt),
		})
	}

	req := ChatRequest{
		Model:       d.cfg.Model,
		Messages:    messages,
		Temperature: 0.0,
		MaxTokens:   batchCallMaxTokens,
	}

	return d.send(ctx, req)
}

// acquire blocks until a permit is available or ctx is cancelled.
func (d *Dispatcher) acquire(ctx context.Context) error {
	select {
	case d.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher: upstream_error: %w", ctx.Err())
	}
}

func (d *Dispatcher) release() {
	<-d.permits
}

// Close closes the outbound client's idle keep-alive connections, per
// §4.H's shutdown step. Safe to call once the worker pool has stopped
// issuing new calls.
func (d *Dispatcher) Close() {
	d.httpClient.Transport.(*http.Transport).CloseIdleConnections()
}

func (d *Dispatcher) send(ctx context.Context, chatReq ChatRequest) (string, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("dispatcher: upstream_error: failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("dispatcher: upstream_error: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("dispatcher: upstream_error: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return "", fmt.Errorf("dispatcher: upstream_error: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		d.logger.Error("llm endpoint returned non-success status",
			"status", resp.StatusCode,
			"response_preview", previewBytes(respBody, 200),
		)
		return "", fmt.Errorf("dispatcher: upstream_error: status %d", resp.StatusCode)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil || len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("dispatcher: upstream_error: malformed response envelope")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func previewBytes(data []byte, maxLen int) string {
	if len(data) > maxLen {
		data = data[:maxLen]
	}
	return string(data)
}
