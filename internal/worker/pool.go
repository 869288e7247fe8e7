// Package worker implements the Worker: drains the Work Queue, coalesces
// items into batches within a short time window, invokes the Dispatcher,
// and demultiplexes the response into the Request Store and Result Cache.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arborly/paperqueue/internal/cache"
	"github.com/arborly/paperqueue/internal/config"
	"github.com/arborly/paperqueue/internal/dispatcher"
	"github.com/arborly/paperqueue/internal/health"
	"github.com/arborly/paperqueue/internal/jsonextract"
	"github.com/arborly/paperqueue/internal/metrics"
	"github.com/arborly/paperqueue/internal/queue"
	"github.com/arborly/paperqueue/internal/store"
)

// batchElement is one entry of the structured array the batch call is
// expected to return: an id plus whatever analysis fields the model filled
// in alongside it.
type batchElement map[string]any

func (e batchElement) id() string {
	id, _ := e["id"].(string)
	return id
}

// Pool runs WORKER_COUNT symmetric, stateless worker goroutines.
type Pool struct {
	cfg        *config.Config
	queue      *queue.Queue
	store      *store.Store
	cache      *cache.Cache
	dispatcher *dispatcher.Dispatcher
	metrics    *metrics.Metrics
	tracker    *health.Tracker
	logger     *slog.Logger
}

// New creates a worker Pool over the gateway's shared components.
func New(
	cfg *config.Config,
	q *queue.Queue,
	s *store.Store,
	c *cache.Cache,
	d *dispatcher.Dispatcher,
	m *metrics.Metrics,
	tracker *health.Tracker,
	logger *slog.Logger,
) *Pool {
	return &Pool{cfg: cfg, queue: q, store: s, cache: c, dispatcher: d, metrics: m, tracker: tracker, logger: logger}
}

// Spawn starts WORKER_COUNT worker goroutines and returns a WaitGroup that
// resolves once every one of them has exited, mirroring the teacher's
// SpawnWorkerPool shutdown contract.
func (p *Pool) Spawn(ctx context.Context) *sync.WaitGroup {
	wg := &sync.WaitGroup{}

	for i := 0; i < p.cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			defer p.tracker.Exited()
			p.run(ctx, workerID)
		}(i)
	}

	p.logger.Debug("worker pool spawned", "worker_count", p.cfg.WorkerCount)
	return wg
}

func (p *Pool) run(ctx context.Context, workerID int) {
	p.logger.Debug("worker started", "worker_id", workerID)

	for {
		item, ok := p.queue.Take(ctx)
		if !ok {
			p.logger.Debug("worker exiting", "worker_id", workerID, "reason", "context_cancelled")
			return
		}

		batch := p.coalesce(item)
		p.processBatch(ctx, workerID, batch)
	}
}

// coalesce implements §4.F's coalescing algorithm: the first dequeued item
// starts a BATCH_TIMEOUT window that does not reset on subsequent
// arrivals; the batch closes when it reaches BATCH_SIZE or the window
// expires, whichever comes first.
func (p *Pool) coalesce(first queue.Item) []queue.Item {
	batch := make([]queue.Item, 0, p.cfg.BatchSize)
	batch = append(batch, first)

	t0 := time.Now()
	deadline := t0.Add(p.cfg.BatchTimeout)

	for len(batch) < p.cfg.BatchSize {
		item, ok := p.queue.TakeWithDeadline(deadline)
		if !ok {
			break
		}
		batch = append(batch, item)
	}

	return batch
}

func (p *Pool) processBatch(ctx context.Context, workerID int, batch []queue.Item) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker panicked processing batch", "worker_id", workerID, "panic", fmt.Sprintf("%v", r))
			p.finalizeAsError(batch, "internal error")
		}
		for range batch {
			p.queue.Done()
		}
	}()

	if ctx.Err() != nil {
		p.markCancelled(batch)
		return
	}

	start := time.Now()
	for _, item := range batch {
		p.store.MarkProcessing(item.ID)
	}
	p.metrics.SetInflightProcessing(len(batch))
	defer p.metrics.SetInflightProcessing(0)

	ids := make([]string, len(batch))
	prompts := make([]string, len(batch))
	for i, item := range batch {
		ids[i] = item.ID
		prompts[i] = item.Text
	}

	content, err := p.dispatcher.Batch(ctx, prompts, ids)
	if err != nil {
		p.logger.Error("batch dispatch failed", "worker_id", workerID, "batch_size", len(batch), "error", err)
		p.finalizeAsError(batch, err.Error())
		p.observeLatencies(batch, start)
		return
	}

	var elements []batchElement
	resolved := make(map[string]batchElement, len(batch))
	if decodeErr := jsonextract.Decode([]byte(content), &elements); decodeErr == nil {
		for _, el := range elements {
			if id := el.id(); id != "" {
				resolved[id] = el
			}
		}
	}

	var fallback []queue.Item
	for _, item := range batch {
		el, ok := resolved[item.ID]
		if !ok {
			fallback = append(fallback, item)
			continue
		}
		finishedAt := time.Now()
		p.store.MarkDone(item.ID, map[string]any(el), finishedAt)
		p.cache.Put(item.CacheKey, map[string]any(el))
	}

	for _, item := range fallback {
		p.resolveSingle(ctx, workerID, item)
	}

	p.observeLatencies(batch, start)
}

// resolveSingle implements §4.F step 4, the per-item fallback used when a
// batch element couldn't be matched by id.
func (p *Pool) resolveSingle(ctx context.Context, workerID int, item queue.Item) {
	content, err := p.dispatcher.Single(ctx, item.Text)
	if err != nil {
		p.logger.Error("per-item fallback failed", "worker_id", workerID, "request_id", item.ID, "error", err)
		p.store.MarkError(item.ID, err.Error(), time.Now())
		p.metrics.RecordError()
		return
	}

	var parsed map[string]any
	if decodeErr := jsonextract.Decode([]byte(content), &parsed); decodeErr != nil {
		// parse_error per §7: still a done record, never an error, so the
		// model's raw output is preserved instead of discarded.
		parsed = map[string]any{"raw": content}
	}

	finishedAt := time.Now()
	p.store.MarkDone(item.ID, parsed, finishedAt)
	p.cache.Put(item.CacheKey, parsed)
}

func (p *Pool) finalizeAsError(batch []queue.Item, message string) {
	now := time.Now()
	for _, item := range batch {
		p.store.MarkError(item.ID, message, now)
		p.metrics.RecordError()
	}
}

func (p *Pool) markCancelled(batch []queue.Item) {
	now := time.Now()
	for _, item := range batch {
		p.store.MarkError(item.ID, "cancelled", now)
		p.metrics.RecordError()
	}
}

func (p *Pool) observeLatencies(batch []queue.Item, start time.Time) {
	elapsed := time.Since(start)
	for range batch {
		p.metrics.ObserveItemLatency(elapsed)
	}
}
