package mocks

import (
	"context"

	"github.com/lorrc/support-gateway/internal/core/domain"
	"github.com/lorrc/support-gateway/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockTicketBackend is a mock implementation of ports.TicketBackend
type MockTicketBackend struct {
	mock.Mock
}

func NewMockTicketBackend() *MockTicketBackend {
	return &MockTicketBackend{}
}

func (m *MockTicketBackend) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketBackend) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketBackend) UpdateTicket(ctx context.Context, id int64, params ports.UpdateTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketBackend) DeleteTicket(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTicketBackend) AssignTicket(ctx context.Context, ticketID, agentID int64) error {
	args := m.Called(ctx, ticketID, agentID)
	return args.Error(0)
}

func (m *MockTicketBackend) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Agent), args.Error(1)
}

// MockAlertNotifier is a mock implementation of ports.AlertNotifier
type MockAlertNotifier struct {
	mock.Mock
}

func NewMockAlertNotifier() *MockAlertNotifier {
	return &MockAlertNotifier{}
}

func (m *MockAlertNotifier) SendSystemAlert(ctx context.Context, params ports.SystemAlertParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// MockRunStore is a mock implementation of ports.RunStore
type MockRunStore struct {
	mock.Mock
}

func NewMockRunStore() *MockRunStore {
	return &MockRunStore{}
}

func (m *MockRunStore) SaveRun(ctx context.Context, run *domain.AssignmentRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunStore) ListRuns(ctx context.Context, limit int) ([]*domain.AssignmentRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AssignmentRun), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockAssignmentService is a mock implementation of ports.AssignmentService
type MockAssignmentService struct {
	mock.Mock
}

func NewMockAssignmentService() *MockAssignmentService {
	return &MockAssignmentService{}
}

func (m *MockAssignmentService) RunAutoAssignment(ctx context.Context) (*domain.AssignmentRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssignmentRun), args.Error(1)
}

func (m *MockAssignmentService) UnassignedStatus(ctx context.Context) (*domain.UnassignedStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UnassignedStatus), args.Error(1)
}

func (m *MockAssignmentService) ListRecentRuns(ctx context.Context, limit int) ([]*domain.AssignmentRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AssignmentRun), args.Error(1)
}
