// Package api implements the gateway's HTTP surface: /analyze, /result/{id},
// /health, /ready, and /metrics.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arborly/paperqueue/internal/admission"
	"github.com/arborly/paperqueue/internal/gateway"
)

// NewMux builds the gateway's http.ServeMux wired to srv. metricsEnabled
// controls whether /metrics is mounted, matching the teacher's pattern of
// compiling metrics in always but gating only the export endpoint.
func NewMux(srv *gateway.Server, metricsEnabled bool) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /analyze", handleAnalyze(srv))
	mux.HandleFunc("GET /result/{request_id}", handleResult(srv))
	mux.HandleFunc("GET /health", handleHealth(srv))
	mux.HandleFunc("GET /ready", handleReady(srv))

	if metricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	return mux
}

type analyzeRequest struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Text     string `json:"text"`
	URL      string `json:"url"`
}

type analyzeResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Cached    bool   `json:"cached,omitempty"`
}

func handleAnalyze(srv *gateway.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body analyzeRequest
		if r.Body != nil {
			// A missing or empty body is equivalent to every field being
			// empty, which admission itself rejects as empty_input; a
			// malformed body is the same failure mode from the client's
			// perspective, so both map to the same 400.
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		outcome, err := srv.Admission.Submit(admission.Request{
			Title:    body.Title,
			Abstract: body.Abstract,
			Text:     body.Text,
			URL:      body.URL,
		})
		if err != nil {
			switch {
			case errors.Is(err, admission.ErrEmptyInput):
				writeJSONError(w, http.StatusBadRequest, "empty_input")
			case errors.Is(err, admission.ErrOverloaded):
				writeJSONError(w, http.StatusTooManyRequests, "overloaded")
			default:
				writeJSONError(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}

		writeJSON(w, http.StatusOK, analyzeResponse{
			RequestID: outcome.RequestID,
			Status:    string(outcome.Status),
			Cached:    outcome.Cached,
		})
	}
}

func handleResult(srv *gateway.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.PathValue("request_id")
		rec, ok := srv.Store.Get(requestID)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "not_found")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	QueueSize int    `json:"queue_size"`
	Workers   int    `json:"workers"`
}

func handleHealth(srv *gateway.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, total := srv.Tracker.Stats()
		writeJSON(w, http.StatusOK, healthResponse{
			Status:    "ok",
			QueueSize: srv.Queue.Size(),
			Workers:   total,
		})
	}
}

type readyResponse struct {
	Ready        bool `json:"ready"`
	WorkersAlive int  `json:"workers_alive"`
	TotalWorkers int  `json:"total_workers"`
}

func handleReady(srv *gateway.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alive, total := srv.Tracker.Stats()
		status := http.StatusOK
		if !srv.Tracker.Ready() {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyResponse{
			Ready:        srv.Tracker.Ready(),
			WorkersAlive: alive,
			TotalWorkers: total,
		})
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
