package domain

// Role is the authenticated caller's role. It is fixed per request and
// selects the entire access-control decision branch.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// Action is a ticket operation subject to an access check.
type Action string

const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionClose  Action = "close"
	ActionAssign Action = "assign"
)

// Actor is the authenticated party making a request.
type Actor struct {
	ID string

	Role Role

	// BackendID correlates the actor to a backend agent/customer record.
	// Absent only in degenerate contexts; every real session carries one.
	BackendID *int64

	// GroupIDs are the backend groups a staff actor services. Empty for
	// customers. Admins bypass group checks entirely, so the slice does
	// not need to be populated for them.
	GroupIDs []int64

	// Region is a display label only; decisions derive region from
	// GroupIDs via the region map.
	Region string
}

// InGroup reports whether the actor services the given backend group.
func (a Actor) InGroup(groupID int64) bool {
	for _, id := range a.GroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}

// MatchesBackendID reports whether the actor's backend record id equals id.
// False when the actor has no backend id.
func (a Actor) MatchesBackendID(id int64) bool {
	return a.BackendID != nil && *a.BackendID == id
}

// PermissionResult is the outcome of an access check. Denials carry a
// human-readable reason safe for logs.
type PermissionResult struct {
	Allowed bool
	Reason  string
}

// Allow is the positive permission result.
func Allow() PermissionResult {
	return PermissionResult{Allowed: true}
}

// Deny builds a negative permission result with the given reason.
func Deny(reason string) PermissionResult {
	return PermissionResult{Allowed: false, Reason: reason}
}
