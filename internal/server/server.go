// Package server exposes the error log and process health over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/vietddude/retryfetch/internal/boundary"
	"github.com/vietddude/retryfetch/internal/core/apperror"
	"github.com/vietddude/retryfetch/internal/errlog"
)

// maxReportBytes bounds client-side error reports.
const maxReportBytes = 64 << 10

// Status is the aggregated health state.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

// HealthCheck probes a dependency.
type HealthCheck func(ctx context.Context) error

// Server provides HTTP endpoints for the error log and health monitoring.
type Server struct {
	logger *errlog.Logger
	checks map[string]HealthCheck
	server *http.Server
}

// NewServer creates a new ops server.
func NewServer(logger *errlog.Logger, port int, checks map[string]HealthCheck) *Server {
	s := &Server{
		logger: logger,
		checks: checks,
	}
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the routed handler wrapped in the panic boundary.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/errors", s.handleList)
	mux.HandleFunc("DELETE /api/errors", s.handleClear)
	mux.HandleFunc("GET /api/errors/persisted", s.handlePersisted)
	mux.HandleFunc("GET /api/errors/{id}/status", s.handleStatus)
	mux.HandleFunc("POST /api/errors/report", s.handleReport)
	return boundary.Recover(s.logger)(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := StatusHealthy
	components := make(map[string]string, len(s.checks))

	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			// Persistence is best-effort, so a failing dependency degrades
			// but never fails the service.
			status = StatusDegraded
			components[name] = err.Error()
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"components": components,
		"buffered":   len(s.logger.GetLogs()),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.logger.GetLogs())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.logger.ClearLogs(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePersisted(w http.ResponseWriter, r *http.Request) {
	entries := s.logger.GetPersisted(r.Context())
	if entries == nil {
		entries = []errlog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleStatus renders a logged error as a google.rpc.Status for gRPC
// clients sharing the taxonomy.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entry, ok := s.findEntry(r.Context(), id)
	if !ok {
		boundary.Render(w, apperror.New(http.StatusNotFound, "error entry not found", map[string]any{"id": id}), "")
		return
	}

	data, err := protojson.Marshal(entry.Error.ToStatus().Proto())
	if err != nil {
		boundary.Render(w, apperror.New(http.StatusInternalServerError, fmt.Sprintf("encode status: %v", err), nil), "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) findEntry(ctx context.Context, id string) (errlog.Entry, bool) {
	for _, e := range s.logger.GetLogs() {
		if e.ID == id {
			return e, true
		}
	}
	for _, e := range s.logger.GetPersisted(ctx) {
		if e.ID == id {
			return e, true
		}
	}
	return errlog.Entry{}, false
}

// reportRequest is what a browser-side error boundary posts.
type reportRequest struct {
	StatusCode int            `json:"statusCode"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details"`
	Context    map[string]any `json:"context"`
}

type reportResponse struct {
	ID   string        `json:"id"`
	View boundary.View `json:"view"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxReportBytes))
	if err != nil || json.Unmarshal(body, &req) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid report payload"})
		return
	}

	if req.Context == nil {
		req.Context = map[string]any{}
	}
	if _, ok := req.Context[errlog.ContextUserAgent]; !ok {
		req.Context[errlog.ContextUserAgent] = r.UserAgent()
	}

	appErr, entry := boundary.Report(r.Context(), s.logger, req.StatusCode, req.Message, req.Details, req.Context)

	view := boundary.ViewFor(appErr)
	view.ErrorID = entry.ID
	writeJSON(w, http.StatusCreated, reportResponse{ID: entry.ID, View: view})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
