package domain

// SystemPlaceholderOwnerID is the backend's built-in "system" account id.
// The backend stores it in owner_id as a stand-in for "nobody"; it is
// semantically equivalent to unassigned and must never be treated as a
// real human assignee.
const SystemPlaceholderOwnerID int64 = 1

// Backend lifecycle state ids. The backend owns the full lifecycle; only
// the ids below are ever branched on here.
const (
	StateNew     int64 = 1
	StateOpen    int64 = 2
	StatePending int64 = 3
	StateOnHold  int64 = 7
	StateClosed  int64 = 4
)

// Ticket is the subset of backend ticket fields that access and
// assignment decisions are computed from. Tickets are read from the
// backend per request and never cached across decisions.
type Ticket struct {
	ID         int64
	Number     string
	Title      string
	CustomerID *int64
	OwnerID    *int64
	GroupID    *int64
	StateID    int64
}

// HasPlaceholderOwner reports whether the backend's system account holds
// the ticket. Checked explicitly everywhere unassignment is tested; a nil
// check alone misses it.
func (t *Ticket) HasPlaceholderOwner() bool {
	return t.OwnerID != nil && *t.OwnerID == SystemPlaceholderOwnerID
}

// IsUnassigned reports whether no real agent holds the ticket.
func (t *Ticket) IsUnassigned() bool {
	return t.OwnerID == nil || *t.OwnerID == SystemPlaceholderOwnerID
}

// OwnedBy reports whether the given backend agent id is the ticket's real
// owner. The placeholder account never owns a ticket in this sense.
func (t *Ticket) OwnedBy(agentID int64) bool {
	return t.OwnerID != nil && *t.OwnerID == agentID && !t.HasPlaceholderOwner()
}

// IsAssignmentCandidate reports whether the ticket is eligible for an
// auto-assignment run: unassigned and still new or open.
func (t *Ticket) IsAssignmentCandidate() bool {
	return t.IsUnassigned() && (t.StateID == StateNew || t.StateID == StateOpen)
}

// CountsTowardLoad reports whether the ticket contributes to its owner's
// workload: a real owner and any non-terminal state, not just new/open.
func (t *Ticket) CountsTowardLoad() bool {
	if t.IsUnassigned() {
		return false
	}
	switch t.StateID {
	case StateNew, StateOpen, StatePending, StateOnHold:
		return true
	}
	return false
}
