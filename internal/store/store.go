package store

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maraichr/pipescope/internal/inventory"
	"github.com/maraichr/pipescope/internal/store/postgres"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	*postgres.Queries
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		Queries: postgres.New(pool),
		pool:    pool,
	}
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) WithTx(ctx context.Context, fn func(*postgres.Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(s.Queries.WithTx(tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Migrate applies embedded migrations not yet recorded in schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		var applied bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, name,
		).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied {
			continue
		}

		sql, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		err = s.inTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(sql)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, name)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SaveReport replaces the stored results of runID with r and marks the run completed.
func (s *Store) SaveReport(ctx context.Context, runID uuid.UUID, r *inventory.Report, artifacts []string) error {
	summary, err := json.Marshal(NewRunSummary(r))
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	return s.WithTx(ctx, func(q *postgres.Queries) error {
		if err := q.DeleteRunResults(ctx, runID); err != nil {
			return fmt.Errorf("clear run results: %w", err)
		}
		if _, err := q.CopyPipelineRecords(ctx, RecordRows(runID, r.Records)); err != nil {
			return fmt.Errorf("copy pipeline records: %w", err)
		}
		if _, err := q.CopyPipelineErrors(ctx, ErrorRows(runID, r.Errors)); err != nil {
			return fmt.Errorf("copy pipeline errors: %w", err)
		}
		if _, err := q.CopyTemplateUsage(ctx, UsageRows(runID, r.TemplateUsage)); err != nil {
			return fmt.Errorf("copy template usage: %w", err)
		}
		if artifacts == nil {
			artifacts = []string{}
		}
		return q.CompleteRun(ctx, postgres.CompleteRunParams{
			ID:              runID,
			Summary:         summary,
			TotalPipelines:  int32(r.Account.Pipelines),
			FailedPipelines: int32(r.Account.FailedPipelines),
			Artifacts:       artifacts,
		})
	})
}

// RunSummary is the aggregate part of a report persisted alongside a run.
type RunSummary struct {
	Account       inventory.AccountSummary `json:"account"`
	Orgs          []inventory.OrgSummary   `json:"orgs"`
	TemplateFetch int                      `json:"template_fetches"`
	StartedAt     time.Time                `json:"started_at"`
	FinishedAt    time.Time                `json:"finished_at"`
}

func NewRunSummary(r *inventory.Report) RunSummary {
	s := RunSummary{
		Account:       r.Account,
		Orgs:          make([]inventory.OrgSummary, 0, len(r.OrgOrder)),
		TemplateFetch: r.TemplateFetch,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
	}
	for _, id := range r.OrgOrder {
		s.Orgs = append(s.Orgs, r.Orgs[id])
	}
	return s
}

// DecodeSummary reads the summary of a completed run. A run without one yields
// the zero value.
func DecodeSummary(run postgres.InventoryRun) (RunSummary, error) {
	var s RunSummary
	if len(run.Summary) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(run.Summary, &s); err != nil {
		return s, fmt.Errorf("decode run summary: %w", err)
	}
	return s, nil
}

func RecordRows(runID uuid.UUID, records []inventory.PipelineRecord) []postgres.PipelineRecord {
	rows := make([]postgres.PipelineRecord, 0, len(records))
	for _, r := range records {
		rows = append(rows, postgres.PipelineRecord{
			RunID:         runID,
			OrgID:         r.OrgID,
			ProjectID:     r.ProjectID,
			PipelineID:    r.PipelineID,
			Name:          r.Name,
			CIStages:      int32(r.CIStages),
			TotalStages:   int32(r.TotalStages),
			TemplateUsage: int32(r.TemplateUsage),
			TemplatesUsed: nonNil(r.TemplatesUsed),
			Infra:         nonNil(r.Infra),
			AvgBuildMs:    r.AvgBuildTime.Milliseconds(),
			MaxBuildMs:    r.MaxBuildTime.Milliseconds(),
		})
	}
	return rows
}

func ErrorRows(runID uuid.UUID, errs []inventory.PipelineError) []postgres.PipelineError {
	rows := make([]postgres.PipelineError, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, postgres.PipelineError{
			RunID:      runID,
			OrgID:      e.OrgID,
			ProjectID:  e.ProjectID,
			PipelineID: e.PipelineID,
			Message:    e.Message,
		})
	}
	return rows
}

// UsageRows flattens template usage sorted by reference.
func UsageRows(runID uuid.UUID, usage map[string]int) []postgres.TemplateUsage {
	refs := make([]string, 0, len(usage))
	for ref := range usage {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	rows := make([]postgres.TemplateUsage, 0, len(refs))
	for _, ref := range refs {
		rows = append(rows, postgres.TemplateUsage{RunID: runID, TemplateRef: ref, Count: int32(usage[ref])})
	}
	return rows
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
