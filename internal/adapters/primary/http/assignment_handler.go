package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/support-gateway/internal/adapters/primary/http/middleware"
	"github.com/lorrc/support-gateway/internal/adapters/primary/validation"
	"github.com/lorrc/support-gateway/internal/core/domain"
	apperrors "github.com/lorrc/support-gateway/internal/core/errors"
	"github.com/lorrc/support-gateway/internal/core/ports"
)

const (
	// SchedulerTokenHeader carries the shared secret from external cron
	// triggers.
	SchedulerTokenHeader = "X-Scheduler-Token"

	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// AssignmentHandler exposes the auto-assignment engine over HTTP. The
// run trigger accepts either the scheduler secret or an admin session;
// the status endpoints are admin-only.
type AssignmentHandler struct {
	assignments     ports.AssignmentService
	schedulerSecret string
	errorHandler    *ErrorHandler
	logger          *slog.Logger
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(
	assignments ports.AssignmentService,
	schedulerSecret string,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		assignments:     assignments,
		schedulerSecret: schedulerSecret,
		errorHandler:    errorHandler,
		logger:          logger.With("handler", "assignment"),
	}
}

// RegisterRoutes sets up the routing for all assignment endpoints.
func (h *AssignmentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/run", h.HandleRunAssignment)
	r.Get("/unassigned", h.HandleUnassignedStatus)
	r.Get("/runs", h.HandleListRuns)
}

// --- Response DTOs ---

// AssignmentRunResponse defines the JSON response for a completed run.
type AssignmentRunResponse struct {
	RunID     string                     `json:"runId"`
	Processed int                        `json:"processed"`
	Succeeded int                        `json:"succeeded"`
	Failed    int                        `json:"failed"`
	Results   []domain.AssignmentOutcome `json:"results"`
}

func toRunResponse(run *domain.AssignmentRun) AssignmentRunResponse {
	return AssignmentRunResponse{
		RunID:     run.ID.String(),
		Processed: run.Processed,
		Succeeded: run.Succeeded,
		Failed:    run.Failed,
		Results:   run.Results,
	}
}

// --- Handlers ---

// HandleRunAssignment handles POST /assignment/run
func (h *AssignmentHandler) HandleRunAssignment(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeTrigger(w, r) {
		return
	}

	run, err := h.assignments.RunAutoAssignment(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBackendError(err))
		return
	}

	WriteJSON(w, http.StatusOK, toRunResponse(run))
}

// HandleUnassignedStatus handles GET /assignment/unassigned
func (h *AssignmentHandler) HandleUnassignedStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	status, err := h.assignments.UnassignedStatus(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBackendError(err))
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// HandleListRuns handles GET /assignment/runs
func (h *AssignmentHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	limit := validation.ParseIntQueryParam(r, "limit", defaultRunsLimit)
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := h.assignments.ListRecentRuns(r.Context(), limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	responses := make([]AssignmentRunResponse, 0, len(runs))
	for _, run := range runs {
		responses = append(responses, toRunResponse(run))
	}

	WriteList(w, responses)
}

// --- Helper methods ---

// authorizeTrigger accepts either the scheduler secret header or an
// admin session. A presented secret is always verified; it is never
// ignored in favor of the session fallback.
func (h *AssignmentHandler) authorizeTrigger(w http.ResponseWriter, r *http.Request) bool {
	if token := r.Header.Get(SchedulerTokenHeader); token != "" {
		if h.schedulerSecret == "" {
			h.errorHandler.Handle(w, r, apperrors.ErrSecretMissing)
			return false
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.schedulerSecret)) != 1 {
			h.logger.Warn("scheduler trigger rejected", "reason", "secret mismatch")
			h.errorHandler.Handle(w, r, apperrors.ErrBadSecret)
			return false
		}
		return true
	}

	return h.requireAdmin(w, r)
}

// requireAdmin verifies an authenticated admin actor on the request.
func (h *AssignmentHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := mw.ActorFromContext(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("Authentication required"))
		return false
	}

	if actor.Role != domain.RoleAdmin {
		h.errorHandler.Handle(w, r, apperrors.NewForbiddenError("admin role required"))
		return false
	}

	return true
}
