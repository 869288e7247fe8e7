// Package health tracks worker-goroutine liveness for the /ready endpoint.
package health

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// MonitorConfig configures the readiness monitor's background logging loop.
type MonitorConfig struct {
	// CheckInterval between liveness log sweeps.
	CheckInterval time.Duration
	// Logger for transition events.
	Logger *slog.Logger
}

// Tracker reports how many of the spawned workers are still running.
// Every worker counts as alive from construction; each calls Exited exactly
// once when its goroutine returns on context cancellation.
// §6's /ready is defined as ready=true iff at least one worker is alive.
type Tracker struct {
	total int32
	alive int32
}

// NewTracker creates a Tracker for a pool of `total` workers, all presumed
// alive until they report otherwise via Exited.
func NewTracker(total int) *Tracker {
	return &Tracker{total: int32(total), alive: int32(total)}
}

// Exited marks one worker goroutine as no longer running. Safe to call
// concurrently; idempotent per worker is the caller's responsibility (each
// worker goroutine calls it at most once, from its own defer).
func (t *Tracker) Exited() {
	atomic.AddInt32(&t.alive, -1)
}

// Stats returns (workersAlive, totalWorkers).
func (t *Tracker) Stats() (alive, total int) {
	return int(atomic.LoadInt32(&t.alive)), int(t.total)
}

// Ready reports whether at least one worker is alive.
func (t *Tracker) Ready() bool {
	return atomic.LoadInt32(&t.alive) > 0
}

// Monitor periodically checks the tracker and logs when the pool goes from
// ready to not ready (no worker alive) or back, mirroring the teacher's
// health.Monitor polling shape.
type Monitor struct {
	config  *MonitorConfig
	tracker *Tracker
}

// NewMonitor creates a readiness monitor for the given tracker.
func NewMonitor(cfg *MonitorConfig, tracker *Tracker) *Monitor {
	if cfg == nil {
		cfg = &MonitorConfig{}
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Monitor{config: cfg, tracker: tracker}
}

// Start runs the logging loop until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	m.config.Logger.Info("Worker readiness monitor started", "check_interval", m.config.CheckInterval)

	wasReady := true
	for {
		select {
		case <-ctx.Done():
			m.config.Logger.Info("Worker readiness monitor stopped")
			return
		case <-ticker.C:
			alive, total := m.tracker.Stats()
			ready := m.tracker.Ready()
			if !ready && wasReady {
				m.config.Logger.Error("Worker pool exhausted (state: ready -> not ready)",
					"workers_alive", alive,
					"total_workers", total,
				)
			} else if ready && !wasReady {
				m.config.Logger.Warn("Worker pool recovered (state: not ready -> ready)",
					"workers_alive", alive,
					"total_workers", total,
				)
			}
			wasReady = ready
		}
	}
}
