package domain

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentOutcome records what one assignment run decided for one
// candidate ticket: either the chosen agent or an explicit failure
// reason. Outcomes are transient; a failed ticket is simply retried on
// the next run with fresh roster data.
type AssignmentOutcome struct {
	TicketID     int64  `json:"ticketId"`
	TicketNumber string `json:"ticketNumber,omitempty"`
	Assigned     bool   `json:"assigned"`
	AgentID      int64  `json:"agentId,omitempty"`
	AgentName    string `json:"agentName,omitempty"`
	AgentEmail   string `json:"agentEmail,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// AssignmentRun aggregates one full auto-assignment pass.
type AssignmentRun struct {
	ID         uuid.UUID           `json:"id"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
	Processed  int                 `json:"processed"`
	Succeeded  int                 `json:"succeeded"`
	Failed     int                 `json:"failed"`
	Results    []AssignmentOutcome `json:"results"`
}

// Failures returns the failed outcomes, capped at limit (no cap when
// limit <= 0).
func (r *AssignmentRun) Failures(limit int) []AssignmentOutcome {
	failures := make([]AssignmentOutcome, 0, r.Failed)
	for _, outcome := range r.Results {
		if outcome.Assigned {
			continue
		}
		failures = append(failures, outcome)
		if limit > 0 && len(failures) == limit {
			break
		}
	}
	return failures
}

// UnassignedTicket is one entry of the read-only unassigned report.
type UnassignedTicket struct {
	ID      int64  `json:"id"`
	Number  string `json:"number,omitempty"`
	Title   string `json:"title,omitempty"`
	GroupID *int64 `json:"groupId"`
	Region  string `json:"region"`
	StateID int64  `json:"stateId"`
}

// UnassignedStatus is the result of the unassigned-ticket report. It uses
// the same candidate-selection rule as an assignment run but performs no
// writes.
type UnassignedStatus struct {
	TotalUnassigned int                `json:"totalUnassigned"`
	ByRegion        map[string]int     `json:"byRegion"`
	Tickets         []UnassignedTicket `json:"tickets"`
}
