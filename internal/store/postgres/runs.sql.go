package postgres

import (
	"context"

	"github.com/google/uuid"
)

const runColumns = `id, status, trigger, only_pipeline, error_message, summary,
        total_pipelines, failed_pipelines, artifacts, created_at, started_at, finished_at`

func scanRun(row interface{ Scan(dest ...any) error }) (InventoryRun, error) {
	var i InventoryRun
	err := row.Scan(
		&i.ID, &i.Status, &i.Trigger, &i.OnlyPipeline, &i.ErrorMessage, &i.Summary,
		&i.TotalPipelines, &i.FailedPipelines, &i.Artifacts, &i.CreatedAt, &i.StartedAt, &i.FinishedAt,
	)
	return i, err
}

type CreateRunParams struct {
	Trigger      string
	OnlyPipeline string
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) (InventoryRun, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO inventory_runs (status, trigger, only_pipeline)
		 VALUES ($1, $2, $3)
		 RETURNING `+runColumns,
		RunStatusQueued, arg.Trigger, arg.OnlyPipeline)
	return scanRun(row)
}

func (q *Queries) StartRun(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE inventory_runs SET status = $2, started_at = now(), error_message = NULL
		 WHERE id = $1`,
		id, RunStatusRunning)
	return err
}

type CompleteRunParams struct {
	ID              uuid.UUID
	Summary         []byte
	TotalPipelines  int32
	FailedPipelines int32
	Artifacts       []string
}

func (q *Queries) CompleteRun(ctx context.Context, arg CompleteRunParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE inventory_runs
		 SET status = $2, summary = $3, total_pipelines = $4, failed_pipelines = $5,
		     artifacts = $6, finished_at = now()
		 WHERE id = $1`,
		arg.ID, RunStatusCompleted, arg.Summary, arg.TotalPipelines, arg.FailedPipelines, arg.Artifacts)
	return err
}

func (q *Queries) FailRun(ctx context.Context, id uuid.UUID, message string) error {
	_, err := q.db.Exec(ctx,
		`UPDATE inventory_runs SET status = $2, error_message = $3, finished_at = now()
		 WHERE id = $1`,
		id, RunStatusFailed, message)
	return err
}

func (q *Queries) GetRun(ctx context.Context, id uuid.UUID) (InventoryRun, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+runColumns+` FROM inventory_runs WHERE id = $1`, id)
	return scanRun(row)
}

type ListRunsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListRuns(ctx context.Context, arg ListRunsParams) ([]InventoryRun, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+runColumns+` FROM inventory_runs
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InventoryRun
	for rows.Next() {
		i, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// GetLatestCompletedRun returns the newest run that finished successfully.
func (q *Queries) GetLatestCompletedRun(ctx context.Context) (InventoryRun, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+runColumns+` FROM inventory_runs
		 WHERE status = $1
		 ORDER BY finished_at DESC
		 LIMIT 1`,
		RunStatusCompleted)
	return scanRun(row)
}
