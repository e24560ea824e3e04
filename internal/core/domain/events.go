package domain

// EventType identifies a real-time event pushed to connected dashboards.
type EventType string

const (
	// EventRunCompleted carries an AssignmentRun summary.
	EventRunCompleted EventType = "assignment.run.completed"
	// EventSystemAlert carries an operator-facing alert payload.
	EventSystemAlert EventType = "system.alert"
)

// Event is a broadcastable real-time message.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}
