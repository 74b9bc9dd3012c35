package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tasklens/tasklens/internal/domain"
)

// Planner is the pipeline surface the front door calls. Satisfied by
// *pipeline.Coordinator.
type Planner interface {
	GeneratePlan(ctx context.Context, req domain.PlanRequest) ([]domain.Step, error)
	GenerateTaskPlan(ctx context.Context, req domain.PlanRequest) (*domain.TaskPlan, error)
}

// Handlers holds the HTTP handlers for the plan API.
type Handlers struct {
	planner  Planner
	logger   *slog.Logger
	registry *prometheus.Registry
}

// NewHandlers creates the plan API handlers. registry may be nil, in which
// case the /metrics endpoint is not mounted.
func NewHandlers(planner Planner, logger *slog.Logger, registry *prometheus.Registry) *Handlers {
	return &Handlers{
		planner:  planner,
		logger:   logger,
		registry: registry,
	}
}

// Mount attaches the API routes to the router.
func (h *Handlers) Mount(r chi.Router) {
	r.Get("/", h.handleRoot)
	r.Get("/health", h.handleHealth)
	r.Post("/api/v1/plan/generate", h.handleGeneratePlan)
	r.Post("/api/v1/plan/task", h.handleGenerateTaskPlan)
	if h.registry != nil {
		r.Get("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}).ServeHTTP)
	}
}

func (h *Handlers) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "tasklens",
		"status":  "running",
	})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePlanRequest(w, r)
	if !ok {
		return
	}

	steps, err := h.planner.GeneratePlan(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	AddLogField(r.Context(), "steps", strconv.Itoa(len(steps)))
	writeJSON(w, http.StatusOK, map[string]any{"steps": steps})
}

func (h *Handlers) handleGenerateTaskPlan(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePlanRequest(w, r)
	if !ok {
		return
	}

	plan, err := h.planner.GenerateTaskPlan(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

func (h *Handlers) decodePlanRequest(w http.ResponseWriter, r *http.Request) (domain.PlanRequest, bool) {
	var req domain.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrInvalidInput("request body is not valid JSON: "+err.Error()))
		return req, false
	}
	return req, true
}

// errorResponse is the wire shape of every error reply.
type errorResponse struct {
	Error *domain.PipelineError `json:"error"`
}

// writeError maps a pipeline error to its HTTP status and writes the JSON
// error body. This is the only place error types are translated to statuses.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	var perr *domain.PipelineError
	if !errors.As(err, &perr) {
		perr = domain.NewPipelineError("internal", "internal server error")
		h.logger.Error("unclassified handler error", slog.String("error", err.Error()))
	}

	AddLogField(r.Context(), "error_type", string(perr.Type))
	writeJSON(w, perr.HTTPStatusCode(), errorResponse{Error: perr})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
