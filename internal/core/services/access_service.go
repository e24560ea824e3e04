package services

import (
	"github.com/lorrc/support-gateway/internal/core/domain"
	"github.com/lorrc/support-gateway/internal/core/ports"
)

// Denial reasons. Deterministic and machine-checkable; handlers translate
// them into forbidden responses.
const (
	ReasonNoTicket        = "no ticket provided"
	ReasonOtherCustomer   = "cannot access ticket owned by a different customer"
	ReasonCustomerAction  = "customer cannot perform this action"
	ReasonStaffUnassigned = "staff cannot access unassigned tickets"
	ReasonAdminOnlyDelete = "only admin can delete tickets"
	ReasonOutsideReach    = "staff cannot access this ticket"
	ReasonUnknownRole     = "unknown role"
)

// AccessService decides whether an actor may perform an action on a
// ticket. Pure function of actor and ticket attributes; no I/O, no
// shared state, safe for concurrent use without synchronization.
type AccessService struct{}

var _ ports.AccessService = (*AccessService)(nil)

// NewAccessService creates the access decision engine.
func NewAccessService() *AccessService {
	return &AccessService{}
}

// CheckPermission evaluates the decision table top-down; first match
// wins.
func (s *AccessService) CheckPermission(actor domain.Actor, ticket *domain.Ticket, action domain.Action) domain.PermissionResult {
	// Admin is an unconditional override, including for nil tickets and
	// unassigned tickets.
	if actor.Role == domain.RoleAdmin {
		return domain.Allow()
	}

	if ticket == nil {
		return domain.Deny(ReasonNoTicket)
	}

	switch actor.Role {
	case domain.RoleCustomer:
		return checkCustomer(actor, ticket, action)
	case domain.RoleStaff:
		return checkStaff(actor, ticket, action)
	}

	return domain.Deny(ReasonUnknownRole)
}

func checkCustomer(actor domain.Actor, ticket *domain.Ticket, action domain.Action) domain.PermissionResult {
	if ticket.CustomerID == nil || !actor.MatchesBackendID(*ticket.CustomerID) {
		return domain.Deny(ReasonOtherCustomer)
	}

	switch action {
	case domain.ActionView, domain.ActionClose:
		return domain.Allow()
	}
	return domain.Deny(ReasonCustomerAction)
}

func checkStaff(actor domain.Actor, ticket *domain.Ticket, action domain.Action) domain.PermissionResult {
	// A ticket held by the backend's placeholder account is unassigned
	// for visibility purposes regardless of its group. Evaluated before
	// the generic unassigned check because owner_id = 1 is non-nil.
	if ticket.HasPlaceholderOwner() {
		return domain.Deny(ReasonStaffUnassigned)
	}
	if ticket.OwnerID == nil && ticket.GroupID == nil {
		return domain.Deny(ReasonStaffUnassigned)
	}

	assignedToMe := ticket.OwnerID != nil && actor.MatchesBackendID(*ticket.OwnerID)
	inMyRegion := ticket.GroupID != nil && actor.InGroup(*ticket.GroupID)

	if !assignedToMe && !inMyRegion {
		return domain.Deny(ReasonOutsideReach)
	}

	switch action {
	case domain.ActionView, domain.ActionEdit, domain.ActionClose, domain.ActionAssign:
		return domain.Allow()
	case domain.ActionDelete:
		return domain.Deny(ReasonAdminOnlyDelete)
	}
	return domain.Deny(ReasonOutsideReach)
}

// FilterByPermission keeps the tickets the actor may view, applying the
// view branch of the decision table to each ticket independently. Order
// is preserved. Unknown roles get an empty result: fail closed, never
// open.
func (s *AccessService) FilterByPermission(tickets []domain.Ticket, actor domain.Actor) []domain.Ticket {
	switch actor.Role {
	case domain.RoleAdmin:
		return tickets
	case domain.RoleCustomer:
		visible := make([]domain.Ticket, 0, len(tickets))
		for _, ticket := range tickets {
			if ticket.CustomerID != nil && actor.MatchesBackendID(*ticket.CustomerID) {
				visible = append(visible, ticket)
			}
		}
		return visible
	case domain.RoleStaff:
		visible := make([]domain.Ticket, 0, len(tickets))
		for _, ticket := range tickets {
			if staffCanView(actor, ticket) {
				visible = append(visible, ticket)
			}
		}
		return visible
	}

	return []domain.Ticket{}
}

func staffCanView(actor domain.Actor, ticket domain.Ticket) bool {
	if ticket.OwnerID != nil && actor.MatchesBackendID(*ticket.OwnerID) && !ticket.HasPlaceholderOwner() {
		return true
	}
	// The placeholder-owner exclusion applies even when the group
	// matches the actor's region.
	return ticket.GroupID != nil && actor.InGroup(*ticket.GroupID) && !ticket.HasPlaceholderOwner()
}
