package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
	"github.com/felixgeelhaar/taskplanner/internal/health"
	"github.com/felixgeelhaar/taskplanner/internal/metrics"
	"github.com/felixgeelhaar/taskplanner/internal/planner"
	"github.com/felixgeelhaar/taskplanner/internal/provider"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/plans", s.handlePlan)
	mux.HandleFunc("GET /v1/providers", s.handleProviders)
	mux.HandleFunc("GET /health/live", s.handleLiveness)
	mux.HandleFunc("GET /health/ready", s.handleReadiness)
	if s.deps.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.HandlerFor(s.deps.Gatherer))
	}
	return s.withRequestID(s.observe(mux))
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code        errors.ErrorCode `json:"code"`
	Message     string           `json:"message"`
	Suggestions []string         `json:"suggestions,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err *errors.PlannerError) {
	s.deps.Metrics.ObserveError(string(err.Code), "server")
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:        err.Code,
		Message:     err.Message,
		Suggestions: err.Suggestions,
	}})
}

// handlePlan handles POST /v1/plans.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.deps.Logger.With("request_id", w.Header().Get(RequestIDHeader))

	if s.limiter != nil && !s.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		s.writeError(w, http.StatusTooManyRequests, errors.NewPlanRateLimitedError())
		return
	}

	var req planner.Request
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		if stderrors.Is(err, io.EOF) {
			err = stderrors.New("empty request body")
		}
		s.writeError(w, status, errors.Wrap(errors.ErrCodePlanBadRequest, "invalid request body", err).
			WithSuggestion(`Send {"goal": "...", "desiredTaskCountHint": 6}`))
		return
	}

	planCtx, cancel := context.WithTimeout(planner.ContextWithRequestID(ctx, w.Header().Get(RequestIDHeader)), s.planTimeout)
	defer cancel()

	res, err := s.deps.Planner.Plan(planCtx, req)
	if err != nil {
		var pe *errors.PlannerError
		switch {
		case ctx.Err() != nil:
			logger.Debug("client went away before the plan was ready")
		case stderrors.Is(err, context.DeadlineExceeded):
			logger.Warn("plan deadline exceeded", "plan_timeout", s.planTimeout)
			s.writeError(w, http.StatusGatewayTimeout, errors.NewPlanTimeoutError(s.planTimeout))
		case stderrors.As(err, &pe) && pe.Code == errors.ErrCodePlanEmptyGoal:
			s.writeError(w, http.StatusBadRequest, pe)
		default:
			logger.WithError(err).Error("planning failed")
			s.writeError(w, http.StatusInternalServerError, errors.Wrap(errors.ErrCodePlanStageFailed, "planning failed", err))
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type providersBody struct {
	Providers []provider.Info `json:"providers"`
	Fallback  bool            `json:"fallbackOnly"`
}

// handleProviders handles GET /v1/providers.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	infos := s.deps.Registry.Describe()
	writeJSON(w, http.StatusOK, providersBody{Providers: infos, Fallback: len(infos) == 0})
}

func (s *Server) writeProbe(w http.ResponseWriter, res *health.ProbeResult) {
	status := http.StatusOK
	if res.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// handleLiveness always answers 200 while the process runs.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Probes.CheckLiveness(r.Context()))
}

// handleReadiness answers 503 while shutting down. Zero providers is still ready.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	s.writeProbe(w, s.deps.Probes.CheckReadiness(r.Context()))
}
