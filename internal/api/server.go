// Package api exposes the engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/halcyonops/halcyon/internal/gate"
	"github.com/halcyonops/halcyon/internal/manifest"
	"github.com/halcyonops/halcyon/internal/metrics"
	"github.com/halcyonops/halcyon/internal/scheduler"
	"github.com/halcyonops/halcyon/internal/storage"
)

// Server is the HTTP API server
type Server struct {
	scheduler *scheduler.Scheduler
	repo      storage.Repository // may be nil
	gate      *gate.Gate
	metrics   *metrics.Metrics // may be nil
	log       *slog.Logger
	server    *http.Server
}

// NewServer creates a new API server
func NewServer(sched *scheduler.Scheduler, repo storage.Repository, m *metrics.Metrics, log *slog.Logger, addr string) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		scheduler: sched,
		repo:      repo,
		gate:      gate.NewGate(),
		metrics:   m,
		log:       log,
	}

	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	// Budget endpoints
	mux.HandleFunc("/v1/budgets", s.handleBudgetList)
	mux.HandleFunc("/v1/budgets/", s.handleBudgetGet)

	// Gate decision endpoint
	mux.HandleFunc("/v1/gate/decision", s.handleGateDecision)

	// Alert history endpoint
	mux.HandleFunc("/v1/alerts/recent", s.handleRecentAlerts)

	if m != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.loggingMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("starting API server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleReady handles GET /readyz
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	manifests := s.scheduler.GetManifests()
	cacheSize := s.scheduler.GetCache().Size()

	ready := len(manifests) > 0
	reasons := []string{}

	if len(manifests) == 0 {
		reasons = append(reasons, "no manifests loaded")
	}

	if cacheSize == 0 {
		reasons = append(reasons, "no evaluations cached yet")
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, ReadyResponse{
		Ready:           ready,
		ManifestsLoaded: len(manifests),
		Reasons:         reasons,
	})
}

// handleBudgetList handles GET /v1/budgets
func (s *Server) handleBudgetList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := time.Now()
	states := s.scheduler.GetCache().GetAll()

	services := make([]ServiceBudgets, 0, len(states))
	for name, state := range states {
		services = append(services, ServiceBudgets{
			Service:   name,
			Tier:      state.Result.Tier,
			Budgets:   state.Result.Budgets,
			Errors:    state.Result.Errors,
			UpdatedAt: state.UpdatedAt,
			Stale:     state.IsStale(now),
		})
	}

	respondJSON(w, http.StatusOK, BudgetListResponse{Services: services})
}

// handleBudgetGet handles GET /v1/budgets/{sloID}
func (s *Server) handleBudgetGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/budgets/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "SLO ID required")
		return
	}

	if s.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}

	b, err := s.repo.GetLatestErrorBudget(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("no budget found for SLO: %s", id))
			return
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load budget: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, BudgetResponse{Budget: b})
}

// handleGateDecision handles POST /v1/gate/decision
func (s *Server) handleGateDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	if req.Service == "" {
		respondError(w, http.StatusBadRequest, "service required")
		return
	}

	m := s.findManifest(req.Service)
	if m == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("service not found: %s", req.Service))
		return
	}

	// Force fresh evaluation if requested
	if req.ForceFresh {
		if err := s.scheduler.EvaluateNow(r.Context(), req.Service); err != nil {
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("evaluation failed: %v", err))
			return
		}
	}

	state, ok := s.scheduler.GetCache().Get(req.Service)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no evaluation found for service: %s", req.Service))
		return
	}

	var total, consumed float64
	for _, b := range state.Result.Budgets {
		if req.SLOID != "" && b.SLOID != req.SLOID {
			continue
		}
		total += b.TotalBudgetMinutes
		consumed += b.BurnedMinutes
	}

	team := req.Team
	if team == "" {
		team = m.Metadata.Team
	}

	attrs := map[string]string{"environment": m.Spec.Environment}
	for k, v := range req.Attributes {
		attrs[k] = v
	}

	decision := s.gate.Check(gate.CheckRequest{
		Service:               req.Service,
		Tier:                  m.Metadata.Tier,
		BudgetTotalMinutes:    total,
		BudgetConsumedMinutes: consumed,
		Downstream:            m.Spec.Downstream,
		Team:                  team,
		Attributes:            attrs,
	}, m.Spec.GatePolicy)

	if s.metrics != nil {
		s.metrics.GateDecisionsTotal.WithLabelValues(req.Service, string(decision.Result)).Inc()
	}

	respondJSON(w, http.StatusOK, DecisionResponse{
		Service:   req.Service,
		Decision:  decision,
		Timestamp: time.Now(),
	})
}

// handleRecentAlerts handles GET /v1/alerts/recent
func (s *Server) handleRecentAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := s.repo.RecentAlertEvents(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query alerts: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, AlertsResponse{Events: events, Total: len(events)})
}

func (s *Server) findManifest(service string) *manifest.Manifest {
	for _, wf := range s.scheduler.GetManifests() {
		if wf.Manifest.Metadata.Service == service {
			return wf.Manifest
		}
	}
	return nil
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
