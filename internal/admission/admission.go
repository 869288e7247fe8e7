// Package admission implements the Admission Controller: the only
// component invoked directly by an incoming /analyze request.
package admission

import (
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arborly/paperqueue/internal/cache"
	"github.com/arborly/paperqueue/internal/config"
	"github.com/arborly/paperqueue/internal/metrics"
	"github.com/arborly/paperqueue/internal/queue"
	"github.com/arborly/paperqueue/internal/store"
)

// ErrEmptyInput is returned when every field of a Request is empty after
// trimming.
var ErrEmptyInput = errors.New("empty_input")

// ErrOverloaded is returned when the Work Queue is at or past the
// backpressure threshold.
var ErrOverloaded = errors.New("overloaded")

// Request is the body of a POST /analyze call.
type Request struct {
	Title    string
	Abstract string
	Text     string
	URL      string
}

// Outcome is what the Admission Controller reports back to the HTTP layer.
type Outcome struct {
	RequestID string
	Status    store.Status
	Cached    bool
}

// Controller implements §4.D's five-step admission sequence.
type Controller struct {
	cfg     *config.Config
	cache   *cache.Cache
	store   *store.Store
	queue   *queue.Queue
	metrics *metrics.Metrics
}

// New creates an Admission Controller over the gateway's shared state.
func New(cfg *config.Config, c *cache.Cache, s *store.Store, q *queue.Queue, m *metrics.Metrics) *Controller {
	return &Controller{cfg: cfg, cache: c, store: s, queue: q, metrics: m}
}

// Submit runs the admission sequence for one request.
func (c *Controller) Submit(req Request) (Outcome, error) {
	c.metrics.RecordRequest()

	textBlob := buildTextBlob(req)
	if textBlob == "" {
		c.metrics.RecordRejected("empty_input")
		return Outcome{}, ErrEmptyInput
	}

	cacheKey := cache.Fingerprint(textBlob)

	if result, hit := c.cache.Get(cacheKey); hit {
		c.metrics.RecordCacheHit()
		id := newRequestID()
		now := time.Now().UTC()
		c.store.CreateDone(id, now, result)
		return Outcome{RequestID: id, Status: store.StatusDone, Cached: true}, nil
	}

	if c.queue.Size() >= c.cfg.BackpressureLimit() {
		c.metrics.RecordRejected("overloaded")
		return Outcome{}, ErrOverloaded
	}

	id := newRequestID()
	now := time.Now().UTC()
	item := queue.Item{ID: id, Text: textBlob, SubmittedAt: now, CacheKey: cacheKey}

	// The record must exist before the item can possibly reach a worker,
	// so it is created first and, if TryPut then loses the race against
	// concurrent admissions filling the queue's hard capacity, immediately
	// finalized as overloaded rather than left queued forever.
	c.store.Create(id, now)
	if !c.queue.TryPut(item) {
		c.metrics.RecordRejected("overloaded")
		c.store.MarkError(id, "overloaded", now)
		return Outcome{}, ErrOverloaded
	}

	c.metrics.RecordAdmitted()
	c.metrics.SetQueueSize(c.queue.Size())

	return Outcome{RequestID: id, Status: store.StatusQueued}, nil
}

// buildTextBlob concatenates the non-empty fields with blank-line
// separators, per §4.D step 1.
func buildTextBlob(req Request) string {
	fields := []string{req.Title, req.Abstract, req.Text, req.URL}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		trimmed := strings.TrimSpace(f)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func newRequestID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
