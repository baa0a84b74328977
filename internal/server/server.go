// Package server exposes the integration tools over HTTP for agent
// frameworks.
//
//	POST /tool        execute a tool call
//	GET  /schema      tool schema for agent registration
//	GET  /health      liveness check
//	GET  /metrics     Prometheus metrics
//	GET  /runs        journaled runs, newest first (?limit=N)
//	GET  /runs/{id}   one run; ?trace=1 adds its samples
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/njchilds90/montecarlo/internal/config"
	"github.com/njchilds90/montecarlo/internal/history"
	"github.com/njchilds90/montecarlo/internal/metrics"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Server serves the tool endpoints.
type Server struct {
	cfg     config.ServerConfig
	tools   *Tools
	store   *history.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
	server  *http.Server
}

// New creates a server. store may be nil, in which case runs are not
// journaled and /runs answers 404.
func New(cfg config.ServerConfig, store *history.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := metrics.New()
	s := &Server{
		cfg: cfg,
		tools: &Tools{
			MaxSamples: cfg.MaxSamples,
			Store:      store,
			Metrics:    m,
			Logger:     logger,
		},
		store:   store,
		metrics: m,
		logger:  logger,
	}
	s.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routing mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tool", s.handleTool)
	mux.HandleFunc("/schema", s.handleSchema)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/runs/", s.handleRun)
	return mux
}

// Start listens on the configured address and blocks until Stop.
func (s *Server) Start() error {
	s.logger.Info("mcint server listening", zap.String("addr", s.cfg.ListenAddr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down. A Start that has not yet begun
// listening returns immediately.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic in /tool",
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req ToolRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "invalid JSON: trailing data")
		return
	}

	writeJSON(w, http.StatusOK, s.tools.Handle(r.Context(), req))
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ToolSpec())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"history": s.store != nil,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/runs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "no such run")
		return
	}
	run, err := s.store.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no such run")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if r.URL.Query().Get("trace") == "" {
		writeJSON(w, http.StatusOK, run)
		return
	}
	trace, err := s.store.Trace(r.Context(), id)
	if err != nil && !errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := struct {
		*history.Run
		Trace [][]float64 `json:"trace,omitempty"`
	}{Run: run}
	if trace != nil {
		out.Trace = trace.Columns
	}
	writeJSON(w, http.StatusOK, out)
}
