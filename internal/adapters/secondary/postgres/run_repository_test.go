package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/support-gateway/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunRepo(t *testing.T) *RunRepository {
	t.Helper()

	// Each test starts from an empty history table.
	_, err := testPool.Exec(context.Background(), "TRUNCATE assignment_runs")
	require.NoError(t, err)

	return NewRunRepository(testPool)
}

func testRun(startedAt time.Time, failed int) *domain.AssignmentRun {
	results := []domain.AssignmentOutcome{
		{TicketID: 101, TicketNumber: "20260101", Assigned: true, AgentID: 10, AgentName: "Anna Klein", AgentEmail: "anna@company.example"},
	}
	for i := 0; i < failed; i++ {
		results = append(results, domain.AssignmentOutcome{
			TicketID: int64(200 + i),
			Reason:   "no eligible agent in group 9 (Group 9)",
		})
	}

	return &domain.AssignmentRun{
		ID:         uuid.New(),
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(3 * time.Second),
		Processed:  1 + failed,
		Succeeded:  1,
		Failed:     failed,
		Results:    results,
	}
}

func TestRunRepository_SaveGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRunRepo(t)

	run := testRun(time.Now().UTC().Truncate(time.Millisecond), 2)
	require.NoError(t, repo.SaveRun(ctx, run))

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	found := runs[0]
	assert.Equal(t, run.ID, found.ID)
	assert.WithinDuration(t, run.StartedAt, found.StartedAt, time.Millisecond)
	assert.WithinDuration(t, run.FinishedAt, found.FinishedAt, time.Millisecond)
	assert.Equal(t, 3, found.Processed)
	assert.Equal(t, 1, found.Succeeded)
	assert.Equal(t, 2, found.Failed)

	require.Len(t, found.Results, 3)
	assert.Equal(t, int64(101), found.Results[0].TicketID)
	assert.True(t, found.Results[0].Assigned)
	assert.Equal(t, "Anna Klein", found.Results[0].AgentName)
	assert.Equal(t, "no eligible agent in group 9 (Group 9)", found.Results[1].Reason)
}

func TestRunRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestRunRepo(t)

	base := time.Now().UTC().Truncate(time.Millisecond)
	oldest := testRun(base.Add(-2*time.Hour), 0)
	middle := testRun(base.Add(-1*time.Hour), 0)
	newest := testRun(base, 0)

	// Insert out of order so ordering comes from the query, not the inserts.
	require.NoError(t, repo.SaveRun(ctx, middle))
	require.NoError(t, repo.SaveRun(ctx, newest))
	require.NoError(t, repo.SaveRun(ctx, oldest))

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, newest.ID, runs[0].ID)
	assert.Equal(t, middle.ID, runs[1].ID)
	assert.Equal(t, oldest.ID, runs[2].ID)
}

func TestRunRepository_ListRespectsLimit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRunRepo(t)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.SaveRun(ctx, testRun(base.Add(time.Duration(i)*time.Minute), 0)))
	}

	runs, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunRepository_ListEmpty(t *testing.T) {
	ctx := context.Background()
	repo := newTestRunRepo(t)

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}
