package domain

import (
	"fmt"
	"time"
)

// AdminRoleID is the backend's administrative role id. Agents carrying it
// are excluded from auto-assignment.
const AdminRoleID int64 = 1

// Agent is the subset of backend roster fields the assignment engine
// scores against.
type Agent struct {
	ID        int64
	Email     string
	Firstname string
	Lastname  string
	Login     string

	RoleIDs []int64

	// GroupIDs are the backend groups the agent can service.
	GroupIDs map[int64]bool

	// Vacation window as reported by the backend. OutOfOffice is the
	// backend's display flag; the dates are authoritative for scheduling.
	OutOfOffice        bool
	OutOfOfficeStartAt *time.Time
	OutOfOfficeEndAt   *time.Time

	Active bool
}

// DisplayName derives a human label from first/last name, falling back to
// the login, falling back to a generated label.
func (a *Agent) DisplayName() string {
	switch {
	case a.Firstname != "" && a.Lastname != "":
		return a.Firstname + " " + a.Lastname
	case a.Firstname != "":
		return a.Firstname
	case a.Lastname != "":
		return a.Lastname
	case a.Login != "":
		return a.Login
	}
	return fmt.Sprintf("Agent #%d", a.ID)
}

// IsAdministrator reports whether the agent carries the backend's admin
// role.
func (a *Agent) IsAdministrator() bool {
	for _, id := range a.RoleIDs {
		if id == AdminRoleID {
			return true
		}
	}
	return false
}

// ServicesGroup reports whether the agent can take tickets from the given
// backend group.
func (a *Agent) ServicesGroup(groupID int64) bool {
	return a.GroupIDs[groupID]
}

// OnVacation reports whether now falls inside the agent's vacation
// window. A window with only a start is open-ended; a window with only an
// end is assumed to have already started; no dates means never on
// vacation.
func (a *Agent) OnVacation(now time.Time) bool {
	start, end := a.OutOfOfficeStartAt, a.OutOfOfficeEndAt
	switch {
	case start == nil && end == nil:
		return false
	case start != nil && end == nil:
		return !now.Before(*start)
	case start == nil && end != nil:
		return !now.After(*end)
	}
	return !now.Before(*start) && !now.After(*end)
}
