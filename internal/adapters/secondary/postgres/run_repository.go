package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/support-gateway/internal/core/domain"
	"github.com/lorrc/support-gateway/internal/core/ports"
)

// RunRepository persists assignment run history. Per-ticket outcomes
// are stored as a jsonb document alongside the run counters.
type RunRepository struct {
	pool *pgxpool.Pool
}

var _ ports.RunStore = (*RunRepository)(nil)

// NewRunRepository creates a new run repository.
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// SaveRun persists a completed assignment run.
func (r *RunRepository) SaveRun(ctx context.Context, run *domain.AssignmentRun) error {
	results, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("encoding run results: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO assignment_runs (id, started_at, finished_at, processed, succeeded, failed, results)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.StartedAt, run.FinishedAt, run.Processed, run.Succeeded, run.Failed, results,
	)
	if err != nil {
		return fmt.Errorf("inserting assignment run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]*domain.AssignmentRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, started_at, finished_at, processed, succeeded, failed, results
		FROM assignment_runs
		ORDER BY started_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying assignment runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.AssignmentRun, 0, limit)
	for rows.Next() {
		var run domain.AssignmentRun
		var results []byte

		if err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Processed,
			&run.Succeeded,
			&run.Failed,
			&results,
		); err != nil {
			return nil, fmt.Errorf("scanning assignment run: %w", err)
		}

		if err := json.Unmarshal(results, &run.Results); err != nil {
			return nil, fmt.Errorf("decoding run results: %w", err)
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignment runs: %w", err)
	}
	return runs, nil
}
