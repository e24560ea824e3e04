package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/lorrc/support-gateway/internal/core/domain"
	"github.com/lorrc/support-gateway/internal/core/mocks"
	"github.com/lorrc/support-gateway/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time {
	return &t
}

func testAgent(id int64, email string, groups ...int64) domain.Agent {
	groupMap := make(map[int64]bool, len(groups))
	for _, g := range groups {
		groupMap[g] = true
	}
	return domain.Agent{
		ID:       id,
		Email:    email,
		Login:    email,
		RoleIDs:  []int64{2},
		GroupIDs: groupMap,
		Active:   true,
	}
}

func candidateTicket(id int64, groupID int64) domain.Ticket {
	return domain.Ticket{
		ID:      id,
		Number:  fmt.Sprintf("2026%04d", id),
		GroupID: int64Ptr(groupID),
		StateID: domain.StateNew,
	}
}

func ownedTicket(id, ownerID, stateID int64) domain.Ticket {
	return domain.Ticket{ID: id, OwnerID: int64Ptr(ownerID), StateID: stateID}
}

func newTestService(backend ports.TicketBackend, notifier ports.AlertNotifier) *AssignmentService {
	return NewAssignmentService(AssignmentServiceParams{
		Backend:  backend,
		Notifier: notifier,
		Logger:   slog.New(slog.DiscardHandler),
		Now:      func() time.Time { return fixedNow },
	})
}

func TestRunAutoAssignment_NoCandidates(t *testing.T) {
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{
		ownedTicket(1, 200, domain.StateOpen),
		{ID: 2, GroupID: int64Ptr(2), StateID: domain.StateClosed},
	}, nil)

	svc := newTestService(backend, nil)
	run, err := svc.RunAutoAssignment(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, run.Processed)
	assert.Equal(t, 0, run.Succeeded)
	assert.Equal(t, 0, run.Failed)
	assert.Empty(t, run.Results)

	// No candidates means the roster is never fetched and nothing is written.
	backend.AssertNotCalled(t, "ListAgents", mock.Anything)
	backend.AssertNotCalled(t, "AssignTicket", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunAutoAssignment_TicketFetchError(t *testing.T) {
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return(nil, errors.New("backend down"))

	svc := newTestService(backend, nil)
	run, err := svc.RunAutoAssignment(context.Background())

	require.Error(t, err)
	assert.Nil(t, run)
	assert.Contains(t, err.Error(), "fetching tickets")
}

func TestRunAutoAssignment_RosterFetchError(t *testing.T) {
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{candidateTicket(1, 2)}, nil)
	backend.On("ListAgents", mock.Anything).Return(nil, errors.New("roster unavailable"))

	svc := newTestService(backend, nil)
	run, err := svc.RunAutoAssignment(context.Background())

	require.Error(t, err)
	assert.Nil(t, run)
	assert.Contains(t, err.Error(), "agent roster")
	backend.AssertNotCalled(t, "AssignTicket", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunAutoAssignment_SpreadsLoadWithinRun(t *testing.T) {
	// Two idle agents in the same group, three candidates. The in-run load
	// table must spread them 2/1 instead of piling all three on agent 10.
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{
		candidateTicket(1, 2),
		candidateTicket(2, 2),
		candidateTicket(3, 2),
	}, nil)
	backend.On("ListAgents", mock.Anything).Return([]domain.Agent{
		testAgent(10, "anna@company.example", 2),
		testAgent(11, "ben@company.example", 2),
	}, nil)
	backend.On("AssignTicket", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(backend, nil)
	run, err := svc.RunAutoAssignment(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, run.Processed)
	assert.Equal(t, 3, run.Succeeded)
	assert.Equal(t, 0, run.Failed)

	require.Len(t, run.Results, 3)
	assert.Equal(t, int64(10), run.Results[0].AgentID)
	assert.Equal(t, int64(11), run.Results[1].AgentID)
	assert.Equal(t, int64(10), run.Results[2].AgentID)

	backend.AssertCalled(t, "AssignTicket", mock.Anything, int64(1), int64(10))
	backend.AssertCalled(t, "AssignTicket", mock.Anything, int64(2), int64(11))
	backend.AssertCalled(t, "AssignTicket", mock.Anything, int64(3), int64(10))
}

func TestRunAutoAssignment_SingleAgentAbsorbsAll(t *testing.T) {
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{
		candidateTicket(1, 2),
		candidateTicket(2, 2),
		candidateTicket(3, 2),
		candidateTicket(4, 2),
	}, nil)
	backend.On("ListAgents", mock.Anything).Return([]domain.Agent{
		testAgent(10, "anna@company.example", 2),
	}, nil)
	backend.On("AssignTicket", mock.Anything, mock.Anything, int64(10)).Return(nil)

	svc := newTestService(backend, nil)
	run, err := svc.RunAutoAssignment(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, run.Succeeded)
	for _, outcome := range run.Results {
		assert.Equal(t, int64(10), outcome.AgentID)
	}
}

func TestRunAutoAssignment_SeedsLoadFromExistingTickets(t *testing.T) {
	// Agent 10 already owns two open tickets, one pending and one on hold.
	// Agent 11 owns only a closed ticket, which must not count. The single
	// candidate therefore goes to agent 11.
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{
		ownedTicket(100, 10, domain.StateNew),
		ownedTicket(101, 10, domain.StateOpen),
		ownedTicket(102, 10, domain.StatePending),
		ownedTicket(103, 10, domain.StateOnHold),
		ownedTicket(104, 11, domain.StateClosed),
		candidateTicket(1, 2),
	}, nil)
	backend.On("ListAgents", mock.Anything).Return([]domain.Agent{
		testAgent(10, "anna@company.example", 2),
		testAgent(11, "ben@company.example", 2),
	}, nil)
	backend.On("AssignTicket", mock.Anything, int64(1), int64(11)).Return(nil)

	svc := newTestService(backend, nil)
	run, err := svc.RunAutoAssignment(context.Background())

	require.NoError(t, err)
	require.Len(t, run.Results, 1)
	assert.Equal(t, int64(11), run.Results[0].AgentID)
}

func TestRunAutoAssignment_TieKeepsRosterOrder(t *testing.T) {
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{
		candidateTicket(1, 2),
	}, nil)
	backend.On("ListAgents", mock.Anything).Return([]domain.Agent{
		testAgent(30, "carol@company.example", 2),
		testAgent(10, "anna@company.example", 2),
		testAgent(20, "ben@company.example", 2),
	}, nil)
	backend.On("AssignTicket", mock.Anything, int64(1), int64(30)).Return(nil)

	svc := newTestService(backend, nil)
	run, err := svc.RunAutoAssignment(context.Background())

	require.NoError(t, err)
	require.Len(t, run.Results, 1)
	assert.Equal(t, int64(30), run.Results[0].AgentID)
}

func TestRunAutoAssignment_IneligibleAgents(t *testing.T) {
	t.Run("vacation with open-ended start", func(t *testing.T) {
		agent := testAgent(10, "anna@company.example", 2)
		agent.OutOfOfficeStartAt = timePtr(fixedNow.Add(-24 * time.Hour))

		backend := mocks.NewMockTicketBackend()
		backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{candidateTicket(1, 2)}, nil)
		backend.On("ListAgents", mock.Anything).Return([]domain.Agent{agent}, nil)

		svc := newTestService(backend, nil)
		run, err := svc.RunAutoAssignment(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, run.Failed)
		require.Len(t, run.Results, 1)
		assert.False(t, run.Results[0].Assigned)
		assert.Contains(t, run.Results[0].Reason, "no eligible agent")
		backend.AssertNotCalled(t, "AssignTicket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("vacation ended yesterday makes agent eligible", func(t *testing.T) {
		agent := testAgent(10, "anna@company.example", 2)
		agent.OutOfOfficeStartAt = timePtr(fixedNow.Add(-72 * time.Hour))
		agent.OutOfOfficeEndAt = timePtr(fixedNow.Add(-24 * time.Hour))

		backend := mocks.NewMockTicketBackend()
		backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{candidateTicket(1, 2)}, nil)
		backend.On("ListAgents", mock.Anything).Return([]domain.Agent{agent}, nil)
		backend.On("AssignTicket", mock.Anything, int64(1), int64(10)).Return(nil)

		svc := newTestService(backend, nil)
		run, err := svc.RunAutoAssignment(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, run.Succeeded)
	})

	t.Run("excluded mailbox skipped case-insensitively", func(t *testing.T) {
		backend := mocks.NewMockTicketBackend()
		backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{candidateTicket(1, 2)}, nil)
		backend.On("ListAgents", mock.Anything).Return([]domain.Agent{
			testAgent(10, "Support@Company.Example", 2),
			testAgent(11, "ben@company.example", 2),
		}, nil)
		backend.On("AssignTicket", mock.Anything, int64(1), int64(11)).Return(nil)

		svc := newTestService(backend, nil)
		run, err := svc.RunAutoAssignment(context.Background())

		require.NoError(t, err)
		require.Len(t, run.Results, 1)
		assert.Equal(t, int64(11), run.Results[0].AgentID)
	})

	t.Run("admins never receive tickets", func(t *testing.T) {
		admin := testAgent(10, "root@company.example", 2)
		admin.RoleIDs = []int64{domain.AdminRoleID, 2}

		backend := mocks.NewMockTicketBackend()
		backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{candidateTicket(1, 2)}, nil)
		backend.On("ListAgents", mock.Anything).Return([]domain.Agent{
			admin,
			testAgent(11, "ben@company.example", 2),
		}, nil)
		backend.On("AssignTicket", mock.Anything, int64(1), int64(11)).Return(nil)

		svc := newTestService(backend, nil)
		run, err := svc.RunAutoAssignment(context.Background())

		require.NoError(t, err)
		require.Len(t, run.Results, 1)
		assert.Equal(t, int64(11), run.Results[0].AgentID)
	})

	t.Run("agent outside the ticket group skipped", func(t *testing.T) {
		backend := mocks.NewMockTicketBackend()
		backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{candidateTicket(1, 2)}, nil)
		backend.On("ListAgents", mock.Anything).Return([]domain.Agent{
			testAgent(10, "anna@company.example", 3),
		}, nil)

		svc := newTestService(backend, nil)
		run, err := svc.RunAutoAssignment(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, run.Failed)
	})
}

func TestRunAutoAssignment_PartialWriteFailure(t *testing.T) {
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{
		candidateTicket(1, 2),
		candidateTicket(2, 2),
	}, nil)
	backend.On("ListAgents", mock.Anything).Return([]domain.Agent{
		testAgent(10, "anna@company.example", 2),
		testAgent(11, "ben@company.example", 2),
	}, nil)
	backend.On("AssignTicket", mock.Anything, int64(1), int64(10)).Return(errors.New("409 conflict"))
	backend.On("AssignTicket", mock.Anything, int64(2), mock.Anything).Return(nil)

	notifier := mocks.NewMockAlertNotifier()
	notifier.On("SendSystemAlert", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(backend, notifier)
	run, err := svc.RunAutoAssignment(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, run.Processed)
	assert.Equal(t, 1, run.Succeeded)
	assert.Equal(t, 1, run.Failed)

	require.Len(t, run.Results, 2)
	assert.False(t, run.Results[0].Assigned)
	assert.Contains(t, run.Results[0].Reason, "backend update failed")
	assert.True(t, run.Results[1].Assigned)

	// The failed write must not count toward agent 10's load, so ticket 2
	// still goes to agent 10 on the tie.
	assert.Equal(t, int64(10), run.Results[1].AgentID)
}

func TestRunAutoAssignment_AlertsAdminsOnFailures(t *testing.T) {
	admin := testAgent(1, "root@company.example")
	admin.RoleIDs = []int64{domain.AdminRoleID}

	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{
		candidateTicket(1, 9), // no agent services group 9
	}, nil)
	backend.On("ListAgents", mock.Anything).Return([]domain.Agent{
		admin,
		testAgent(10, "anna@company.example", 2),
	}, nil)

	notifier := mocks.NewMockAlertNotifier()
	notifier.On("SendSystemAlert", mock.Anything, mock.MatchedBy(func(params ports.SystemAlertParams) bool {
		return len(params.Recipients) == 1 &&
			params.Recipients[0].ID == admin.ID &&
			len(params.Failures) == 1
	})).Return(nil)

	svc := newTestService(backend, notifier)
	run, err := svc.RunAutoAssignment(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, run.Failed)
	notifier.AssertExpectations(t)
}

func TestRunAutoAssignment_AlertFailureDoesNotFailRun(t *testing.T) {
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{
		candidateTicket(1, 9),
	}, nil)

	admin := testAgent(1, "root@company.example")
	admin.RoleIDs = []int64{domain.AdminRoleID}
	backend.On("ListAgents", mock.Anything).Return([]domain.Agent{admin}, nil)

	notifier := mocks.NewMockAlertNotifier()
	notifier.On("SendSystemAlert", mock.Anything, mock.Anything).Return(errors.New("smtp timeout"))

	svc := newTestService(backend, notifier)
	run, err := svc.RunAutoAssignment(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, run.Failed)
}

func TestRunAutoAssignment_NoAlertWithoutFailures(t *testing.T) {
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{candidateTicket(1, 2)}, nil)
	backend.On("ListAgents", mock.Anything).Return([]domain.Agent{
		testAgent(10, "anna@company.example", 2),
	}, nil)
	backend.On("AssignTicket", mock.Anything, int64(1), int64(10)).Return(nil)

	notifier := mocks.NewMockAlertNotifier()

	svc := newTestService(backend, notifier)
	_, err := svc.RunAutoAssignment(context.Background())

	require.NoError(t, err)
	notifier.AssertNotCalled(t, "SendSystemAlert", mock.Anything, mock.Anything)
}

func TestRunAutoAssignment_AlertSamplesCapped(t *testing.T) {
	tickets := make([]domain.Ticket, 0, 8)
	for i := int64(1); i <= 8; i++ {
		tickets = append(tickets, candidateTicket(i, 9))
	}

	admin := testAgent(1, "root@company.example")
	admin.RoleIDs = []int64{domain.AdminRoleID}

	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return(tickets, nil)
	backend.On("ListAgents", mock.Anything).Return([]domain.Agent{admin}, nil)

	notifier := mocks.NewMockAlertNotifier()
	notifier.On("SendSystemAlert", mock.Anything, mock.MatchedBy(func(params ports.SystemAlertParams) bool {
		return len(params.Failures) == maxAlertSamples
	})).Return(nil)

	svc := newTestService(backend, notifier)
	run, err := svc.RunAutoAssignment(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 8, run.Failed)
	notifier.AssertExpectations(t)
}

func TestRunAutoAssignment_PlaceholderOwnerIsCandidate(t *testing.T) {
	ticket := candidateTicket(1, 2)
	ticket.OwnerID = int64Ptr(domain.SystemPlaceholderOwnerID)

	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{ticket}, nil)
	backend.On("ListAgents", mock.Anything).Return([]domain.Agent{
		testAgent(10, "anna@company.example", 2),
	}, nil)
	backend.On("AssignTicket", mock.Anything, int64(1), int64(10)).Return(nil)

	svc := newTestService(backend, nil)
	run, err := svc.RunAutoAssignment(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, run.Succeeded)
}

func TestRunAutoAssignment_PersistsAndBroadcasts(t *testing.T) {
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{candidateTicket(1, 2)}, nil)
	backend.On("ListAgents", mock.Anything).Return([]domain.Agent{
		testAgent(10, "anna@company.example", 2),
	}, nil)
	backend.On("AssignTicket", mock.Anything, int64(1), int64(10)).Return(nil)

	store := mocks.NewMockRunStore()
	store.On("SaveRun", mock.Anything, mock.Anything).Return(nil)

	broadcaster := mocks.NewMockEventBroadcaster()
	broadcaster.On("Broadcast", mock.MatchedBy(func(event domain.Event) bool {
		return event.Type == domain.EventRunCompleted
	})).Return(nil)

	svc := NewAssignmentService(AssignmentServiceParams{
		Backend:     backend,
		RunStore:    store,
		Broadcaster: broadcaster,
		Logger:      slog.New(slog.DiscardHandler),
		Now:         func() time.Time { return fixedNow },
	})

	_, err := svc.RunAutoAssignment(context.Background())

	require.NoError(t, err)
	store.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestRunAutoAssignment_StoreFailureIsBestEffort(t *testing.T) {
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{candidateTicket(1, 2)}, nil)
	backend.On("ListAgents", mock.Anything).Return([]domain.Agent{
		testAgent(10, "anna@company.example", 2),
	}, nil)
	backend.On("AssignTicket", mock.Anything, int64(1), int64(10)).Return(nil)

	store := mocks.NewMockRunStore()
	store.On("SaveRun", mock.Anything, mock.Anything).Return(errors.New("db offline"))

	svc := NewAssignmentService(AssignmentServiceParams{
		Backend:  backend,
		RunStore: store,
		Logger:   slog.New(slog.DiscardHandler),
		Now:      func() time.Time { return fixedNow },
	})

	run, err := svc.RunAutoAssignment(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, run.Succeeded)
}

func TestUnassignedStatus(t *testing.T) {
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return([]domain.Ticket{
		candidateTicket(1, 2),
		candidateTicket(2, 2),
		candidateTicket(3, 4),
		{ID: 4, StateID: domain.StateNew}, // no group at all
		ownedTicket(5, 10, domain.StateOpen),
		{ID: 6, GroupID: int64Ptr(2), StateID: domain.StateClosed},
	}, nil)

	svc := newTestService(backend, nil)
	status, err := svc.UnassignedStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, status.TotalUnassigned)
	assert.Equal(t, 2, status.ByRegion["EMEA"])
	assert.Equal(t, 1, status.ByRegion["APAC"])
	assert.Equal(t, 1, status.ByRegion[domain.UnknownRegion])
	require.Len(t, status.Tickets, 4)
	assert.Equal(t, int64(1), status.Tickets[0].ID)
}

func TestUnassignedStatus_BackendError(t *testing.T) {
	backend := mocks.NewMockTicketBackend()
	backend.On("ListTickets", mock.Anything).Return(nil, errors.New("timeout"))

	svc := newTestService(backend, nil)
	status, err := svc.UnassignedStatus(context.Background())

	require.Error(t, err)
	assert.Nil(t, status)
}

func TestListRecentRuns(t *testing.T) {
	t.Run("no store configured returns empty", func(t *testing.T) {
		svc := newTestService(mocks.NewMockTicketBackend(), nil)

		runs, err := svc.ListRecentRuns(context.Background(), 10)

		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("delegates to store", func(t *testing.T) {
		stored := []*domain.AssignmentRun{{Processed: 3, Succeeded: 3}}

		store := mocks.NewMockRunStore()
		store.On("ListRuns", mock.Anything, 10).Return(stored, nil)

		svc := NewAssignmentService(AssignmentServiceParams{
			Backend:  mocks.NewMockTicketBackend(),
			RunStore: store,
			Logger:   slog.New(slog.DiscardHandler),
		})

		runs, err := svc.ListRecentRuns(context.Background(), 10)

		require.NoError(t, err)
		assert.Equal(t, stored, runs)
	})
}
