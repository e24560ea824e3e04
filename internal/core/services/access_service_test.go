package services

import (
	"testing"

	"github.com/lorrc/support-gateway/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func staffActor(backendID int64, groupIDs ...int64) domain.Actor {
	return domain.Actor{
		ID:        "staff-1",
		Role:      domain.RoleStaff,
		BackendID: int64Ptr(backendID),
		GroupIDs:  groupIDs,
	}
}

func customerActor(backendID int64) domain.Actor {
	return domain.Actor{
		ID:        "customer-1",
		Role:      domain.RoleCustomer,
		BackendID: int64Ptr(backendID),
	}
}

var allActions = []domain.Action{
	domain.ActionView,
	domain.ActionEdit,
	domain.ActionDelete,
	domain.ActionClose,
	domain.ActionAssign,
}

func TestCheckPermission_Admin(t *testing.T) {
	svc := NewAccessService()
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	tickets := []*domain.Ticket{
		nil,
		{ID: 1, CustomerID: int64Ptr(300), OwnerID: int64Ptr(200), GroupID: int64Ptr(2)},
		{ID: 2}, // fully unassigned: owner and group both nil
		{ID: 3, OwnerID: int64Ptr(domain.SystemPlaceholderOwnerID), GroupID: int64Ptr(2)},
	}

	for _, ticket := range tickets {
		for _, action := range allActions {
			result := svc.CheckPermission(admin, ticket, action)
			assert.True(t, result.Allowed, "admin must be allowed action %s", action)
			assert.Empty(t, result.Reason)
		}
	}
}

func TestCheckPermission_NoTicket(t *testing.T) {
	svc := NewAccessService()

	result := svc.CheckPermission(staffActor(200, 2), nil, domain.ActionView)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonNoTicket, result.Reason)
}

func TestCheckPermission_Customer(t *testing.T) {
	svc := NewAccessService()
	actor := customerActor(300)

	t.Run("own ticket view and close allowed", func(t *testing.T) {
		ticket := &domain.Ticket{ID: 1, CustomerID: int64Ptr(300)}

		assert.True(t, svc.CheckPermission(actor, ticket, domain.ActionView).Allowed)
		assert.True(t, svc.CheckPermission(actor, ticket, domain.ActionClose).Allowed)
	})

	t.Run("own ticket edit delete assign denied", func(t *testing.T) {
		ticket := &domain.Ticket{ID: 1, CustomerID: int64Ptr(300)}

		for _, action := range []domain.Action{domain.ActionEdit, domain.ActionDelete, domain.ActionAssign} {
			result := svc.CheckPermission(actor, ticket, action)
			require.False(t, result.Allowed, "action %s", action)
			assert.Equal(t, ReasonCustomerAction, result.Reason)
		}
	})

	t.Run("other customer's ticket denied for every action", func(t *testing.T) {
		ticket := &domain.Ticket{ID: 1, CustomerID: int64Ptr(301)}

		for _, action := range allActions {
			result := svc.CheckPermission(actor, ticket, action)
			require.False(t, result.Allowed, "action %s", action)
			assert.Equal(t, ReasonOtherCustomer, result.Reason)
		}
	})

	t.Run("nil customer id denied", func(t *testing.T) {
		ticket := &domain.Ticket{ID: 1}

		result := svc.CheckPermission(actor, ticket, domain.ActionView)
		require.False(t, result.Allowed)
		assert.Equal(t, ReasonOtherCustomer, result.Reason)
	})
}

func TestCheckPermission_Staff(t *testing.T) {
	svc := NewAccessService()
	actor := staffActor(200, 2)

	t.Run("assigned to me", func(t *testing.T) {
		// Group outside the actor's region: ownership alone grants reach.
		ticket := &domain.Ticket{ID: 1, OwnerID: int64Ptr(200), GroupID: int64Ptr(9)}

		assert.True(t, svc.CheckPermission(actor, ticket, domain.ActionView).Allowed)
		assert.True(t, svc.CheckPermission(actor, ticket, domain.ActionEdit).Allowed)
		assert.True(t, svc.CheckPermission(actor, ticket, domain.ActionClose).Allowed)
		assert.True(t, svc.CheckPermission(actor, ticket, domain.ActionAssign).Allowed)
	})

	t.Run("delete always admin-only", func(t *testing.T) {
		ticket := &domain.Ticket{ID: 1, OwnerID: int64Ptr(200), GroupID: int64Ptr(2)}

		result := svc.CheckPermission(actor, ticket, domain.ActionDelete)
		require.False(t, result.Allowed)
		assert.Equal(t, ReasonAdminOnlyDelete, result.Reason)
	})

	t.Run("in my region but owned by someone else", func(t *testing.T) {
		ticket := &domain.Ticket{ID: 1, OwnerID: int64Ptr(201), GroupID: int64Ptr(2)}

		assert.True(t, svc.CheckPermission(actor, ticket, domain.ActionView).Allowed)
		assert.True(t, svc.CheckPermission(actor, ticket, domain.ActionAssign).Allowed)
	})

	t.Run("fully unassigned denied", func(t *testing.T) {
		ticket := &domain.Ticket{ID: 1}

		result := svc.CheckPermission(actor, ticket, domain.ActionView)
		require.False(t, result.Allowed)
		assert.Contains(t, result.Reason, "unassigned")
	})

	t.Run("placeholder owner hides ticket even in own region", func(t *testing.T) {
		// Staff 200 in group 2, ticket owned by the system account but
		// grouped into the actor's region.
		ticket := &domain.Ticket{
			ID:         1,
			CustomerID: int64Ptr(300),
			OwnerID:    int64Ptr(domain.SystemPlaceholderOwnerID),
			GroupID:    int64Ptr(2),
		}

		result := svc.CheckPermission(actor, ticket, domain.ActionView)
		require.False(t, result.Allowed)
		assert.Contains(t, result.Reason, "unassigned")
	})

	t.Run("outside region and not mine", func(t *testing.T) {
		ticket := &domain.Ticket{ID: 1, OwnerID: int64Ptr(201), GroupID: int64Ptr(9)}

		result := svc.CheckPermission(actor, ticket, domain.ActionView)
		require.False(t, result.Allowed)
		assert.Equal(t, ReasonOutsideReach, result.Reason)
	})

	t.Run("owner set but no group in my region", func(t *testing.T) {
		// Owner is someone else, group nil: unreachable but not "unassigned".
		ticket := &domain.Ticket{ID: 1, OwnerID: int64Ptr(201)}

		result := svc.CheckPermission(actor, ticket, domain.ActionView)
		require.False(t, result.Allowed)
		assert.Equal(t, ReasonOutsideReach, result.Reason)
	})

	t.Run("group matches but owner nil allowed", func(t *testing.T) {
		ticket := &domain.Ticket{ID: 1, GroupID: int64Ptr(2)}

		assert.True(t, svc.CheckPermission(actor, ticket, domain.ActionView).Allowed)
	})
}

func TestCheckPermission_UnknownRole(t *testing.T) {
	svc := NewAccessService()
	actor := domain.Actor{ID: "x", Role: domain.Role("supervisor"), BackendID: int64Ptr(5)}
	ticket := &domain.Ticket{ID: 1, CustomerID: int64Ptr(5), OwnerID: int64Ptr(5)}

	for _, action := range allActions {
		result := svc.CheckPermission(actor, ticket, action)
		require.False(t, result.Allowed)
		assert.Equal(t, ReasonUnknownRole, result.Reason)
	}
}

func TestCheckPermission_Idempotent(t *testing.T) {
	svc := NewAccessService()
	actor := staffActor(200, 2)
	ticket := &domain.Ticket{ID: 1, OwnerID: int64Ptr(201), GroupID: int64Ptr(2)}

	first := svc.CheckPermission(actor, ticket, domain.ActionEdit)
	second := svc.CheckPermission(actor, ticket, domain.ActionEdit)
	assert.Equal(t, first, second)
}

func TestFilterByPermission_Admin(t *testing.T) {
	svc := NewAccessService()
	tickets := []domain.Ticket{
		{ID: 1},
		{ID: 2, OwnerID: int64Ptr(domain.SystemPlaceholderOwnerID)},
		{ID: 3, CustomerID: int64Ptr(300)},
	}

	result := svc.FilterByPermission(tickets, domain.Actor{Role: domain.RoleAdmin})
	assert.Equal(t, tickets, result)
}

func TestFilterByPermission_Customer(t *testing.T) {
	svc := NewAccessService()
	actor := customerActor(300)
	tickets := []domain.Ticket{
		{ID: 1, CustomerID: int64Ptr(300)},
		{ID: 2, CustomerID: int64Ptr(301)},
		{ID: 3, CustomerID: int64Ptr(300)},
		{ID: 4}, // malformed: nil customer id
	}

	result := svc.FilterByPermission(tickets, actor)

	require.Len(t, result, 2)
	assert.Equal(t, int64(1), result[0].ID)
	assert.Equal(t, int64(3), result[1].ID)
}

func TestFilterByPermission_Staff(t *testing.T) {
	svc := NewAccessService()
	actor := staffActor(200, 2)

	t.Run("spec scenario keeps reachable tickets in order", func(t *testing.T) {
		tickets := []domain.Ticket{
			{ID: 1},                                          // owner nil, group nil
			{ID: 2, OwnerID: int64Ptr(200), GroupID: int64Ptr(2)}, // mine
			{ID: 3, OwnerID: int64Ptr(201), GroupID: int64Ptr(2)}, // my region
		}

		result := svc.FilterByPermission(tickets, actor)

		require.Len(t, result, 2)
		assert.Equal(t, int64(2), result[0].ID)
		assert.Equal(t, int64(3), result[1].ID)
	})

	t.Run("own ticket outside region kept", func(t *testing.T) {
		tickets := []domain.Ticket{
			{ID: 1, OwnerID: int64Ptr(200), GroupID: int64Ptr(9)},
		}

		result := svc.FilterByPermission(tickets, actor)
		require.Len(t, result, 1)
	})

	t.Run("placeholder owner excluded even when group matches", func(t *testing.T) {
		tickets := []domain.Ticket{
			{ID: 1, OwnerID: int64Ptr(domain.SystemPlaceholderOwnerID), GroupID: int64Ptr(2)},
			{ID: 2, OwnerID: int64Ptr(domain.SystemPlaceholderOwnerID)},
		}

		result := svc.FilterByPermission(tickets, actor)
		assert.Empty(t, result)
	})

	t.Run("unowned ticket in region kept", func(t *testing.T) {
		tickets := []domain.Ticket{
			{ID: 1, GroupID: int64Ptr(2)},
		}

		result := svc.FilterByPermission(tickets, actor)
		require.Len(t, result, 1)
	})
}

func TestFilterByPermission_UnknownRole(t *testing.T) {
	svc := NewAccessService()
	tickets := []domain.Ticket{
		{ID: 1, CustomerID: int64Ptr(300)},
		{ID: 2, OwnerID: int64Ptr(200), GroupID: int64Ptr(2)},
	}

	result := svc.FilterByPermission(tickets, domain.Actor{Role: domain.Role("bot")})

	// Fail closed: empty, never the input.
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestFilterByPermission_Idempotent(t *testing.T) {
	svc := NewAccessService()
	actor := staffActor(200, 2)
	tickets := []domain.Ticket{
		{ID: 1, OwnerID: int64Ptr(200), GroupID: int64Ptr(2)},
		{ID: 2, OwnerID: int64Ptr(domain.SystemPlaceholderOwnerID), GroupID: int64Ptr(2)},
	}

	first := svc.FilterByPermission(tickets, actor)
	second := svc.FilterByPermission(tickets, actor)
	assert.Equal(t, first, second)
}
