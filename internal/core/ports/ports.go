package ports

import (
	"context"

	"github.com/lorrc/support-gateway/internal/core/domain"
)

// UpdateTicketParams carries the editable ticket fields a caller may
// proxy to the backend. Nil fields are left untouched.
type UpdateTicketParams struct {
	Title   *string
	GroupID *int64
	StateID *int64
}

// TicketBackend is the port to the external ticketing system of record.
// Only the load-bearing fields of its responses are mapped; everything
// else stays behind this boundary.
type TicketBackend interface {
	ListTickets(ctx context.Context) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, id int64, params UpdateTicketParams) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, id int64) error

	// AssignTicket sets owner_id on the ticket. The backend treats it as
	// an idempotent set; failures surface as errors, never silent no-ops.
	AssignTicket(ctx context.Context, ticketID, agentID int64) error

	// ListAgents returns the active agent roster.
	ListAgents(ctx context.Context) ([]domain.Agent, error)
}

// SystemAlertParams is a structured operator alert handed to the external
// notification collaborator.
type SystemAlertParams struct {
	Title      string
	Body       string
	Recipients []domain.Agent
	Failures   []domain.AssignmentOutcome
}

// AlertNotifier is the port to the notification collaborator. Delivery
// and dedup semantics belong to it; callers treat send failures as
// best-effort.
type AlertNotifier interface {
	SendSystemAlert(ctx context.Context, params SystemAlertParams) error
}

// RunStore persists assignment-run history for auditing.
type RunStore interface {
	SaveRun(ctx context.Context, run *domain.AssignmentRun) error
	ListRuns(ctx context.Context, limit int) ([]*domain.AssignmentRun, error)
}

// EventBroadcaster pushes real-time events to connected dashboards.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// AccessService is the pure ticket access decision engine. Both methods
// are referentially transparent and safe to call concurrently.
type AccessService interface {
	CheckPermission(actor domain.Actor, ticket *domain.Ticket, action domain.Action) domain.PermissionResult
	FilterByPermission(tickets []domain.Ticket, actor domain.Actor) []domain.Ticket
}

// AssignmentService runs workload-balanced auto-assignment against the
// backend. RunAutoAssignment is not reentrant-safe; the caller ensures at
// most one run executes at a time.
type AssignmentService interface {
	RunAutoAssignment(ctx context.Context) (*domain.AssignmentRun, error)
	UnassignedStatus(ctx context.Context) (*domain.UnassignedStatus, error)
	ListRecentRuns(ctx context.Context, limit int) ([]*domain.AssignmentRun, error)
}
