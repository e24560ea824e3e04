package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/support-gateway/internal/core/domain"
	"github.com/lorrc/support-gateway/internal/core/ports"
)

// DefaultExcludedEmails are the system/dispatcher mailboxes that exist as
// backend agents but must never receive auto-assigned tickets. Matched
// case-insensitively; deployments override the list via configuration.
var DefaultExcludedEmails = []string{
	"support@company.example",
	"dispatch@company.example",
	"noreply@company.example",
}

// maxAlertSamples caps the failure samples attached to the admin alert.
const maxAlertSamples = 5

// AssignmentService implements workload-balanced auto-assignment on top
// of the external ticketing backend. A run reads the full ticket set and
// roster once, scores candidates against an in-memory load table, and
// issues owner updates sequentially so every candidate sees the
// assignments made earlier in the same run.
//
// Runs are not reentrant-safe against each other; the caller ensures a
// single run executes at a time.
type AssignmentService struct {
	backend     ports.TicketBackend
	notifier    ports.AlertNotifier
	runs        ports.RunStore
	broadcaster ports.EventBroadcaster
	regions     domain.RegionMap

	excluded map[string]bool
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.AssignmentService = (*AssignmentService)(nil)

// AssignmentServiceParams bundles the collaborators of the service.
// RunStore and Broadcaster are optional; Now defaults to time.Now.
type AssignmentServiceParams struct {
	Backend        ports.TicketBackend
	Notifier       ports.AlertNotifier
	RunStore       ports.RunStore
	Broadcaster    ports.EventBroadcaster
	Regions        domain.RegionMap
	ExcludedEmails []string
	Logger         *slog.Logger
	Now            func() time.Time
}

// NewAssignmentService creates the auto-assignment engine.
func NewAssignmentService(params AssignmentServiceParams) *AssignmentService {
	excluded := make(map[string]bool, len(params.ExcludedEmails))
	emails := params.ExcludedEmails
	if emails == nil {
		emails = DefaultExcludedEmails
	}
	for _, email := range emails {
		excluded[strings.ToLower(strings.TrimSpace(email))] = true
	}

	regions := params.Regions
	if regions == nil {
		regions = domain.DefaultRegions()
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &AssignmentService{
		backend:     params.Backend,
		notifier:    params.Notifier,
		runs:        params.RunStore,
		broadcaster: params.Broadcaster,
		regions:     regions,
		excluded:    excluded,
		logger:      logger.With("component", "assignment_service"),
		now:         now,
	}
}

// RunAutoAssignment assigns every candidate ticket to the least-loaded
// eligible agent. Per-ticket failures are recorded and do not abort the
// run; a backend read failure before scoring is fatal to the whole run.
func (s *AssignmentService) RunAutoAssignment(ctx context.Context) (*domain.AssignmentRun, error) {
	run := &domain.AssignmentRun{
		ID:        uuid.New(),
		StartedAt: s.now(),
		Results:   []domain.AssignmentOutcome{},
	}

	tickets, err := s.backend.ListTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching tickets: %w", err)
	}

	candidates := make([]domain.Ticket, 0)
	for _, ticket := range tickets {
		if ticket.IsAssignmentCandidate() {
			candidates = append(candidates, ticket)
		}
	}

	// Nothing to do: no roster fetch, no writes, no notifications.
	if len(candidates) == 0 {
		run.FinishedAt = s.now()
		return run, nil
	}

	agents, err := s.backend.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching agent roster: %w", err)
	}

	load := buildLoadTable(tickets)
	now := s.now()

	for _, ticket := range candidates {
		run.Processed++

		outcome := s.assignOne(ctx, &ticket, agents, load, now)
		if outcome.Assigned {
			run.Succeeded++
		} else {
			run.Failed++
		}
		run.Results = append(run.Results, outcome)
	}

	run.FinishedAt = s.now()

	if run.Failed > 0 {
		s.alertAdmins(ctx, run, agents)
	}
	s.recordRun(ctx, run)

	s.logger.Info("auto-assignment run finished",
		"run_id", run.ID,
		"processed", run.Processed,
		"succeeded", run.Succeeded,
		"failed", run.Failed,
	)

	return run, nil
}

// assignOne scores a single candidate against the live load table and
// issues the backend write. The table entry of the chosen agent is
// incremented so the next candidate sees this assignment.
func (s *AssignmentService) assignOne(
	ctx context.Context,
	ticket *domain.Ticket,
	agents []domain.Agent,
	load map[int64]int,
	now time.Time,
) domain.AssignmentOutcome {
	outcome := domain.AssignmentOutcome{
		TicketID:     ticket.ID,
		TicketNumber: ticket.Number,
	}

	eligible := s.eligibleAgents(ticket, agents, now)
	if len(eligible) == 0 {
		outcome.Reason = s.noAgentReason(ticket)
		return outcome
	}

	best := pickLeastLoaded(eligible, load)

	if err := s.backend.AssignTicket(ctx, ticket.ID, best.ID); err != nil {
		outcome.Reason = fmt.Sprintf("backend update failed: %v", err)
		return outcome
	}
	load[best.ID]++

	outcome.Assigned = true
	outcome.AgentID = best.ID
	outcome.AgentName = best.DisplayName()
	outcome.AgentEmail = best.Email
	return outcome
}

// eligibleAgents filters the roster down to agents that service the
// ticket's group, are not excluded mailboxes, carry no admin role, and
// are not on vacation.
func (s *AssignmentService) eligibleAgents(ticket *domain.Ticket, agents []domain.Agent, now time.Time) []domain.Agent {
	if ticket.GroupID == nil {
		return nil
	}

	eligible := make([]domain.Agent, 0, len(agents))
	for _, agent := range agents {
		if !agent.ServicesGroup(*ticket.GroupID) {
			continue
		}
		if s.excluded[strings.ToLower(agent.Email)] {
			continue
		}
		if agent.IsAdministrator() {
			continue
		}
		if agent.OnVacation(now) {
			continue
		}
		eligible = append(eligible, agent)
	}
	return eligible
}

func (s *AssignmentService) noAgentReason(ticket *domain.Ticket) string {
	if ticket.GroupID == nil {
		return "ticket has no group"
	}
	return fmt.Sprintf("no eligible agent in group %d (%s)",
		*ticket.GroupID, s.regions.RegionForGroup(*ticket.GroupID))
}

// buildLoadTable counts each real agent's non-terminal tickets. The
// table is mutated in place while the run progresses; that mutation is
// what spreads same-run candidates across agents instead of piling them
// onto the initially least-loaded one.
func buildLoadTable(tickets []domain.Ticket) map[int64]int {
	load := make(map[int64]int)
	for _, ticket := range tickets {
		if ticket.CountsTowardLoad() {
			load[*ticket.OwnerID]++
		}
	}
	return load
}

// pickLeastLoaded returns the eligible agent with the lowest current
// count. Ties keep the roster's input order.
func pickLeastLoaded(eligible []domain.Agent, load map[int64]int) domain.Agent {
	best := eligible[0]
	bestLoad := load[best.ID]
	for _, agent := range eligible[1:] {
		if load[agent.ID] < bestLoad {
			best = agent
			bestLoad = load[agent.ID]
		}
	}
	return best
}

// alertAdmins dispatches a system alert summarizing the run's failures
// to every administrative agent on the roster. Send failures are logged
// and never promoted to a run failure.
func (s *AssignmentService) alertAdmins(ctx context.Context, run *domain.AssignmentRun, agents []domain.Agent) {
	if s.notifier == nil {
		return
	}

	recipients := make([]domain.Agent, 0)
	for _, agent := range agents {
		if agent.IsAdministrator() {
			recipients = append(recipients, agent)
		}
	}
	if len(recipients) == 0 {
		s.logger.Warn("no admin recipients for assignment failure alert", "run_id", run.ID)
		return
	}

	params := ports.SystemAlertParams{
		Title: "Auto-assignment failures",
		Body: fmt.Sprintf("%d of %d candidate tickets could not be assigned.",
			run.Failed, run.Processed),
		Recipients: recipients,
		Failures:   run.Failures(maxAlertSamples),
	}

	if err := s.notifier.SendSystemAlert(ctx, params); err != nil {
		s.logger.Error("failed to send assignment failure alert",
			"run_id", run.ID,
			"error", err,
		)
	}
}

// recordRun persists and broadcasts the run summary, best effort.
func (s *AssignmentService) recordRun(ctx context.Context, run *domain.AssignmentRun) {
	if s.runs != nil {
		if err := s.runs.SaveRun(ctx, run); err != nil {
			s.logger.Error("failed to persist assignment run", "run_id", run.ID, "error", err)
		}
	}
	if s.broadcaster != nil {
		_ = s.broadcaster.Broadcast(domain.Event{
			Type:    domain.EventRunCompleted,
			Payload: run,
		})
	}
}

// UnassignedStatus reports the current candidate set grouped by region.
// Read-only; safe to call at any time, including while a run executes.
func (s *AssignmentService) UnassignedStatus(ctx context.Context) (*domain.UnassignedStatus, error) {
	tickets, err := s.backend.ListTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching tickets: %w", err)
	}

	status := &domain.UnassignedStatus{
		ByRegion: make(map[string]int),
		Tickets:  []domain.UnassignedTicket{},
	}

	for _, ticket := range tickets {
		if !ticket.IsAssignmentCandidate() {
			continue
		}
		region := s.regions.RegionForTicket(&ticket)
		status.TotalUnassigned++
		status.ByRegion[region]++
		status.Tickets = append(status.Tickets, domain.UnassignedTicket{
			ID:      ticket.ID,
			Number:  ticket.Number,
			Title:   ticket.Title,
			GroupID: ticket.GroupID,
			Region:  region,
			StateID: ticket.StateID,
		})
	}

	return status, nil
}

// ListRecentRuns returns persisted run history, newest first. Empty when
// no run store is configured.
func (s *AssignmentService) ListRecentRuns(ctx context.Context, limit int) ([]*domain.AssignmentRun, error) {
	if s.runs == nil {
		return []*domain.AssignmentRun{}, nil
	}
	return s.runs.ListRuns(ctx, limit)
}
