package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborly/paperqueue/internal/gateway"
	"github.com/arborly/paperqueue/internal/testhelpers"
)

func newTestServer(t *testing.T) *gateway.Server {
	t.Helper()
	srv, err := gateway.New(testhelpers.NewTestConfig(), testhelpers.NewTestLogger(), false)
	require.NoError(t, err)
	return srv
}

func TestAnalyze_EmptyInputReturns400(t *testing.T) {
	srv := newTestServer(t)
	mux := NewMux(srv, false)

	req := testhelpers.NewTestRequest("POST", "/analyze", map[string]string{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	testhelpers.AssertJSONErrorResponse(t, rec, 400, "empty_input")
}

func TestAnalyze_AcceptsAndQueues(t *testing.T) {
	srv := newTestServer(t)
	mux := NewMux(srv, false)

	req := testhelpers.NewTestRequest("POST", "/analyze", map[string]string{"title": "T"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	var resp analyzeResponse
	require.NoError(t, decodeJSON(rec, &resp))
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, "queued", resp.Status)
	assert.False(t, resp.Cached)
}

func TestAnalyze_CacheHitReturnsCachedTrue(t *testing.T) {
	srv := newTestServer(t)
	mux := NewMux(srv, false)

	key := cacheKeyFor("some text")
	srv.Cache.Put(key, map[string]any{"summary": "cached"})

	req := testhelpers.NewTestRequest("POST", "/analyze", map[string]string{"text": "some text"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp analyzeResponse
	require.NoError(t, decodeJSON(rec, &resp))
	assert.True(t, resp.Cached)
	assert.Equal(t, "done", resp.Status)
}

func TestAnalyze_OverloadedReturns429(t *testing.T) {
	cfg := testhelpers.NewTestConfig()
	cfg.MaxQueueSize = 4
	cfg.BackpressureThreshold = 0.5 // limit = 2

	srv, err := gateway.New(cfg, testhelpers.NewTestLogger(), false)
	require.NoError(t, err)
	mux := NewMux(srv, false)

	for i := 0; i < 2; i++ {
		req := testhelpers.NewTestRequest("POST", "/analyze", map[string]string{"text": "distinct " + string(rune('a'+i))})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, 200, rec.Code)
	}

	req := testhelpers.NewTestRequest("POST", "/analyze", map[string]string{"text": "one more"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	testhelpers.AssertJSONErrorResponse(t, rec, 429, "overloaded")
}

func TestResult_UnknownIDReturns404(t *testing.T) {
	srv := newTestServer(t)
	mux := NewMux(srv, false)

	req := testhelpers.NewTestRequest("GET", "/result/does-not-exist", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	testhelpers.AssertJSONErrorResponse(t, rec, 404, "not_found")
}

func TestResult_ReturnsLifecycleRecord(t *testing.T) {
	srv := newTestServer(t)
	mux := NewMux(srv, false)
	srv.Store.Create("r1", time.Now().UTC())

	req := testhelpers.NewTestRequest("GET", "/result/r1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
}

func TestHealth_ReportsQueueSizeAndWorkers(t *testing.T) {
	srv := newTestServer(t)
	mux := NewMux(srv, false)

	req := testhelpers.NewTestRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	var resp healthResponse
	require.NoError(t, decodeJSON(rec, &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, srv.Config.WorkerCount, resp.Workers)
}

func TestReady_TrueWhileWorkersAlive(t *testing.T) {
	srv := newTestServer(t)
	mux := NewMux(srv, false)

	req := testhelpers.NewTestRequest("GET", "/ready", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	var resp readyResponse
	require.NoError(t, decodeJSON(rec, &resp))
	assert.True(t, resp.Ready)
	assert.Equal(t, srv.Config.WorkerCount, resp.WorkersAlive)
}

func TestReady_FalseWhenNoWorkersAlive(t *testing.T) {
	srv := newTestServer(t)
	mux := NewMux(srv, false)

	for i := 0; i < srv.Config.WorkerCount; i++ {
		srv.Tracker.Exited()
	}

	req := testhelpers.NewTestRequest("GET", "/ready", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, 503, rec.Code)
	var resp readyResponse
	require.NoError(t, decodeJSON(rec, &resp))
	assert.False(t, resp.Ready)
}

func TestMetrics_MountedOnlyWhenEnabled(t *testing.T) {
	srv := newTestServer(t)

	muxWithout := NewMux(srv, false)
	req := testhelpers.NewTestRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	muxWithout.ServeHTTP(rec, req)
	assert.Equal(t, 404, rec.Code)

	muxWith := NewMux(srv, true)
	rec = httptest.NewRecorder()
	muxWith.ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
}
