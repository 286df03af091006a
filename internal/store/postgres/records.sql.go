package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CopyPipelineRecords bulk loads one run's pipeline rows.
func (q *Queries) CopyPipelineRecords(ctx context.Context, records []PipelineRecord) (int64, error) {
	return q.db.CopyFrom(ctx,
		pgx.Identifier{"pipeline_records"},
		[]string{
			"run_id", "org_id", "project_id", "pipeline_id", "name", "ci_stages", "total_stages",
			"template_usage", "templates_used", "infra", "avg_build_ms", "max_build_ms",
		},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			r := records[i]
			return []any{
				r.RunID, r.OrgID, r.ProjectID, r.PipelineID, r.Name, r.CIStages, r.TotalStages,
				r.TemplateUsage, r.TemplatesUsed, r.Infra, r.AvgBuildMs, r.MaxBuildMs,
			}, nil
		}),
	)
}

func (q *Queries) CopyPipelineErrors(ctx context.Context, errs []PipelineError) (int64, error) {
	return q.db.CopyFrom(ctx,
		pgx.Identifier{"pipeline_errors"},
		[]string{"run_id", "org_id", "project_id", "pipeline_id", "message"},
		pgx.CopyFromSlice(len(errs), func(i int) ([]any, error) {
			e := errs[i]
			return []any{e.RunID, e.OrgID, e.ProjectID, e.PipelineID, e.Message}, nil
		}),
	)
}

func (q *Queries) CopyTemplateUsage(ctx context.Context, usage []TemplateUsage) (int64, error) {
	return q.db.CopyFrom(ctx,
		pgx.Identifier{"template_usage"},
		[]string{"run_id", "template_ref", "count"},
		pgx.CopyFromSlice(len(usage), func(i int) ([]any, error) {
			u := usage[i]
			return []any{u.RunID, u.TemplateRef, u.Count}, nil
		}),
	)
}

// DeleteRunResults clears rows of a run so a retried message can save again.
func (q *Queries) DeleteRunResults(ctx context.Context, runID uuid.UUID) error {
	for _, table := range []string{"pipeline_records", "pipeline_errors", "template_usage"} {
		if _, err := q.db.Exec(ctx, `DELETE FROM `+table+` WHERE run_id = $1`, runID); err != nil {
			return err
		}
	}
	return nil
}

type ListRecordsParams struct {
	RunID  uuid.UUID
	OrgID  string
	Limit  int32
	Offset int32
}

// ListRecords pages a run's pipelines; an empty OrgID matches every org.
func (q *Queries) ListRecords(ctx context.Context, arg ListRecordsParams) ([]PipelineRecord, error) {
	rows, err := q.db.Query(ctx,
		`SELECT run_id, org_id, project_id, pipeline_id, name, ci_stages, total_stages,
		        template_usage, templates_used, infra, avg_build_ms, max_build_ms
		 FROM pipeline_records
		 WHERE run_id = $1 AND ($2 = '' OR org_id = $2)
		 ORDER BY org_id, project_id, pipeline_id
		 LIMIT $3 OFFSET $4`,
		arg.RunID, arg.OrgID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PipelineRecord
	for rows.Next() {
		var i PipelineRecord
		if err := rows.Scan(
			&i.RunID, &i.OrgID, &i.ProjectID, &i.PipelineID, &i.Name, &i.CIStages, &i.TotalStages,
			&i.TemplateUsage, &i.TemplatesUsed, &i.Infra, &i.AvgBuildMs, &i.MaxBuildMs,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) ListErrors(ctx context.Context, runID uuid.UUID) ([]PipelineError, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, run_id, org_id, project_id, pipeline_id, message
		 FROM pipeline_errors
		 WHERE run_id = $1
		 ORDER BY id`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PipelineError
	for rows.Next() {
		var i PipelineError
		if err := rows.Scan(&i.ID, &i.RunID, &i.OrgID, &i.ProjectID, &i.PipelineID, &i.Message); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) ListTemplateUsage(ctx context.Context, runID uuid.UUID) ([]TemplateUsage, error) {
	rows, err := q.db.Query(ctx,
		`SELECT run_id, template_ref, count
		 FROM template_usage
		 WHERE run_id = $1
		 ORDER BY count DESC, template_ref`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TemplateUsage
	for rows.Next() {
		var i TemplateUsage
		if err := rows.Scan(&i.RunID, &i.TemplateRef, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
