package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/support-gateway/internal/adapters/primary/http/middleware"
	"github.com/lorrc/support-gateway/internal/adapters/primary/validation"
	"github.com/lorrc/support-gateway/internal/core/domain"
	apperrors "github.com/lorrc/support-gateway/internal/core/errors"
	"github.com/lorrc/support-gateway/internal/core/ports"
)

const maxTitleLength = 200

// TicketHandler proxies ticket operations to the backend behind the
// access decision engine. Every operation on a specific ticket fetches
// the current ticket state first and evaluates the actor against it.
type TicketHandler struct {
	backend      ports.TicketBackend
	access       ports.AccessService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(
	backend ports.TicketBackend,
	access ports.AccessService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TicketHandler {
	return &TicketHandler{
		backend:      backend,
		access:       access,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "ticket"),
	}
}

// RegisterRoutes sets up the routing for all ticket endpoints.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTickets)

	// Routes for a specific ticket
	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Patch("/", h.HandleUpdateTicket)
		r.Delete("/", h.HandleDeleteTicket)
		r.Post("/close", h.HandleCloseTicket)
		r.Patch("/assignee", h.HandleAssignTicket)
	})
}

// --- Request/Response DTOs ---

// UpdateTicketRequest defines the expected JSON body for ticket updates
type UpdateTicketRequest struct {
	Title   *string `json:"title"`
	GroupID *int64  `json:"groupId"`
	StateID *int64  `json:"stateId"`
}

// Validate validates the update ticket request
func (r *UpdateTicketRequest) Validate() error {
	v := validation.NewValidator()

	if r.Title != nil {
		v.Required("title", *r.Title).
			MaxLength("title", *r.Title, maxTitleLength)
	}
	if r.GroupID != nil {
		v.Custom("groupId", *r.GroupID > 0, "Must be a positive integer")
	}
	if r.StateID != nil {
		v.Custom("stateId", *r.StateID > 0, "Must be a positive integer")
	}
	v.Custom("title", r.Title != nil || r.GroupID != nil || r.StateID != nil,
		"At least one field must be provided")

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// AssignTicketRequest defines the expected JSON body for assigning a ticket
type AssignTicketRequest struct {
	AgentID int64 `json:"agentId"`
}

// Validate validates the assign ticket request
func (r *AssignTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.Custom("agentId", r.AgentID > 0, "Must be a positive integer")

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// TicketDTO defines the JSON response for tickets.
type TicketDTO struct {
	ID         int64  `json:"id"`
	Number     string `json:"number"`
	Title      string `json:"title"`
	CustomerID *int64 `json:"customerId"`
	OwnerID    *int64 `json:"ownerId"`
	GroupID    *int64 `json:"groupId"`
	StateID    int64  `json:"stateId"`
}

func toTicketDTO(ticket *domain.Ticket) TicketDTO {
	return TicketDTO{
		ID:         ticket.ID,
		Number:     ticket.Number,
		Title:      ticket.Title,
		CustomerID: ticket.CustomerID,
		OwnerID:    ticket.OwnerID,
		GroupID:    ticket.GroupID,
		StateID:    ticket.StateID,
	}
}

func toTicketDTOs(tickets []domain.Ticket) []TicketDTO {
	response := make([]TicketDTO, 0, len(tickets))
	for i := range tickets {
		response = append(response, toTicketDTO(&tickets[i]))
	}
	return response
}

// --- Handlers ---

// HandleListTickets handles GET /tickets
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.getActor(w, r)
	if !ok {
		return
	}

	tickets, err := h.backend.ListTickets(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBackendError(err))
		return
	}

	visible := h.access.FilterByPermission(tickets, actor)

	WriteList(w, toTicketDTOs(visible))
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.getActor(w, r)
	if !ok {
		return
	}

	ticket, ok := h.fetchAndAuthorize(w, r, actor, domain.ActionView)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleUpdateTicket handles PATCH /tickets/{ticketID}
func (h *TicketHandler) HandleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.getActor(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[UpdateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, ok := h.fetchAndAuthorize(w, r, actor, domain.ActionEdit)
	if !ok {
		return
	}

	params := ports.UpdateTicketParams{
		Title:   req.Title,
		GroupID: req.GroupID,
		StateID: req.StateID,
	}

	updated, err := h.backend.UpdateTicket(r.Context(), ticket.ID, params)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBackendError(err))
		return
	}

	h.logger.Info("ticket updated",
		"ticket_id", ticket.ID,
		"actor_id", actor.ID,
	)

	WriteJSON(w, http.StatusOK, toTicketDTO(updated))
}

// HandleDeleteTicket handles DELETE /tickets/{ticketID}
func (h *TicketHandler) HandleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.getActor(w, r)
	if !ok {
		return
	}

	ticket, ok := h.fetchAndAuthorize(w, r, actor, domain.ActionDelete)
	if !ok {
		return
	}

	if err := h.backend.DeleteTicket(r.Context(), ticket.ID); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBackendError(err))
		return
	}

	h.logger.Info("ticket deleted",
		"ticket_id", ticket.ID,
		"actor_id", actor.ID,
	)

	WriteNoContent(w)
}

// HandleCloseTicket handles POST /tickets/{ticketID}/close
func (h *TicketHandler) HandleCloseTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.getActor(w, r)
	if !ok {
		return
	}

	ticket, ok := h.fetchAndAuthorize(w, r, actor, domain.ActionClose)
	if !ok {
		return
	}

	closedState := domain.StateClosed
	updated, err := h.backend.UpdateTicket(r.Context(), ticket.ID, ports.UpdateTicketParams{
		StateID: &closedState,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBackendError(err))
		return
	}

	h.logger.Info("ticket closed",
		"ticket_id", ticket.ID,
		"actor_id", actor.ID,
	)

	WriteJSON(w, http.StatusOK, toTicketDTO(updated))
}

// HandleAssignTicket handles PATCH /tickets/{ticketID}/assignee
func (h *TicketHandler) HandleAssignTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.getActor(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[AssignTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, ok := h.fetchAndAuthorize(w, r, actor, domain.ActionAssign)
	if !ok {
		return
	}

	if err := h.backend.AssignTicket(r.Context(), ticket.ID, req.AgentID); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBackendError(err))
		return
	}

	h.logger.Info("ticket assigned",
		"ticket_id", ticket.ID,
		"agent_id", req.AgentID,
		"actor_id", actor.ID,
	)

	WriteNoContent(w)
}

// --- Helper methods ---

// getActor extracts the authenticated actor from the request context
func (h *TicketHandler) getActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := mw.ActorFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return domain.Actor{}, false
	}
	return actor, true
}

// fetchAndAuthorize loads the ticket and evaluates the actor's permission
// for the given action. Writes the error response on failure.
func (h *TicketHandler) fetchAndAuthorize(
	w http.ResponseWriter,
	r *http.Request,
	actor domain.Actor,
	action domain.Action,
) (*domain.Ticket, bool) {
	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return nil, false
	}

	ticket, err := h.backend.GetTicket(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return nil, false
	}

	result := h.access.CheckPermission(actor, ticket, action)
	if !result.Allowed {
		h.logger.Warn("access denied",
			"ticket_id", ticketID,
			"actor_id", actor.ID,
			"action", action,
			"reason", result.Reason,
		)
		h.errorHandler.Handle(w, r, apperrors.NewForbiddenError(result.Reason))
		return nil, false
	}

	return ticket, true
}

// parseTicketID extracts and validates the ticket ID from the URL
func (h *TicketHandler) parseTicketID(r *http.Request) (int64, error) {
	ticketIDStr := chi.URLParam(r, "ticketID")
	ticketID, err := strconv.ParseInt(ticketIDStr, 10, 64)
	if err != nil || ticketID <= 0 {
		v := validation.NewValidator()
		v.Custom("ticketID", false, "Invalid ticket ID")
		return 0, v.Errors()
	}
	return ticketID, nil
}
