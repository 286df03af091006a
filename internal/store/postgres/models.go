package postgres

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

type InventoryRun struct {
	ID              uuid.UUID  `json:"id"`
	Status          string     `json:"status"`
	Trigger         string     `json:"trigger"`
	OnlyPipeline    string     `json:"only_pipeline,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	Summary         []byte     `json:"-"`
	TotalPipelines  int32      `json:"total_pipelines"`
	FailedPipelines int32      `json:"failed_pipelines"`
	Artifacts       []string   `json:"artifacts"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

type PipelineRecord struct {
	RunID         uuid.UUID `json:"run_id"`
	OrgID         string    `json:"org_identifier"`
	ProjectID     string    `json:"project_identifier"`
	PipelineID    string    `json:"pipeline_identifier"`
	Name          string    `json:"pipeline_name"`
	CIStages      int32     `json:"ci_stages_count"`
	TotalStages   int32     `json:"total_stages"`
	TemplateUsage int32     `json:"template_count"`
	TemplatesUsed []string  `json:"templates_used"`
	Infra         []string  `json:"infra_types"`
	AvgBuildMs    int64     `json:"avg_build_time_ms"`
	MaxBuildMs    int64     `json:"max_build_time_ms"`
}

type PipelineError struct {
	ID         int64     `json:"id"`
	RunID      uuid.UUID `json:"run_id"`
	OrgID      string    `json:"org_identifier"`
	ProjectID  string    `json:"project_identifier"`
	PipelineID string    `json:"pipeline_identifier"`
	Message    string    `json:"error"`
}

type TemplateUsage struct {
	RunID       uuid.UUID `json:"run_id"`
	TemplateRef string    `json:"template_ref"`
	Count       int32     `json:"count"`
}
