// Package gateway aggregates the pipeline's shared state into a single
// value constructed once at startup, per spec.md §9's "avoid process-global
// singletons" note: the Cache, Store, Queue, Dispatcher, and Metrics
// registry are fields here instead of package-level globals.
package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/arborly/paperqueue/internal/admission"
	"github.com/arborly/paperqueue/internal/cache"
	"github.com/arborly/paperqueue/internal/config"
	"github.com/arborly/paperqueue/internal/dispatcher"
	"github.com/arborly/paperqueue/internal/health"
	"github.com/arborly/paperqueue/internal/metrics"
	"github.com/arborly/paperqueue/internal/queue"
	"github.com/arborly/paperqueue/internal/store"
	"github.com/arborly/paperqueue/internal/worker"
)

// Server is the constructed aggregate passed explicitly to HTTP handlers
// and to the worker pool. Nothing outside this struct holds pipeline state.
type Server struct {
	Config     *config.Config
	Cache      *cache.Cache
	Store      *store.Store
	Queue      *queue.Queue
	Dispatcher *dispatcher.Dispatcher
	Metrics    *metrics.Metrics
	Tracker    *health.Tracker
	Admission  *admission.Controller
	Logger     *slog.Logger

	pool *worker.Pool
}

// New constructs every §2 component from cfg but does not yet spawn
// workers; call Start for that.
func New(cfg *config.Config, logger *slog.Logger, metricsEnabled bool) (*Server, error) {
	resultCache, err := cache.New(0, cfg.CacheTTL)
	if err != nil {
		return nil, err
	}

	requestStore := store.New()
	workQueue := queue.New(cfg.MaxQueueSize)
	dsp := dispatcher.New(cfg.LLM, cfg.MaxInflight, logger)
	m := metrics.New(metricsEnabled)
	tracker := health.NewTracker(cfg.WorkerCount)
	adm := admission.New(cfg, resultCache, requestStore, workQueue, m)
	pool := worker.New(cfg, workQueue, requestStore, resultCache, dsp, m, tracker, logger)

	return &Server{
		Config:     cfg,
		Cache:      resultCache,
		Store:      requestStore,
		Queue:      workQueue,
		Dispatcher: dsp,
		Metrics:    m,
		Tracker:    tracker,
		Admission:  adm,
		Logger:     logger,
		pool:       pool,
	}, nil
}

// Start spawns WORKER_COUNT worker goroutines bound to ctx, per §4.H.
// Cancelling ctx is Shutdown's cancel-workers step; the returned
// WaitGroup resolves once every worker has exited.
func (s *Server) Start(ctx context.Context) *sync.WaitGroup {
	return s.pool.Spawn(ctx)
}
