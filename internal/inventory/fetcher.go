package inventory

import "context"

// TemplateFetcher loads template bodies from the remote platform.
type TemplateFetcher interface {
	FetchTemplate(ctx context.Context, key TemplateKey) (*TemplateBody, error)
}

// PipelineFetcher loads pipeline bodies from the remote platform.
type PipelineFetcher interface {
	FetchPipeline(ctx context.Context, meta PipelineMeta) (*PipelineBody, error)
}

// Fetcher is the remote hierarchy the engine inventories.
type Fetcher interface {
	ListOrganizations(ctx context.Context) ([]Organization, error)
	ListProjects(ctx context.Context, orgID string) ([]Project, error)
	ListPipelines(ctx context.Context, orgID, projectID string) ([]PipelineMeta, error)
	PipelineFetcher
	TemplateFetcher
}

// ExecutionFetcher is implemented by fetchers that can list recent executions
// of a pipeline, used for build time statistics.
type ExecutionFetcher interface {
	ListExecutions(ctx context.Context, meta PipelineMeta) ([]Execution, error)
}
