package inventory

import (
	"context"
	"errors"
	"log/slog"
)

// Analyzer turns one pipeline into a PipelineRecord.
type Analyzer struct {
	fetcher  PipelineFetcher
	resolver *Resolver
	walker   *Walker
	logger   *slog.Logger
}

// NewAnalyzer creates an analyzer resolving templates through resolver.
func NewAnalyzer(fetcher PipelineFetcher, resolver *Resolver, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		fetcher:  fetcher,
		resolver: resolver,
		walker:   NewWalker(resolver, nil),
		logger:   logger,
	}
}

// Analyze fetches and walks the pipeline described by meta. A non-nil error
// is a *PipelineError, except when ctx is done, in which case ctx.Err() is
// returned unchanged.
func (a *Analyzer) Analyze(ctx context.Context, meta PipelineMeta) (PipelineRecord, error) {
	body, err := a.fetcher.FetchPipeline(ctx, meta)
	if err != nil {
		return PipelineRecord{}, a.fail(ctx, meta, err)
	}
	rec, err := a.AnalyzeBody(ctx, meta, body)
	if err != nil {
		return PipelineRecord{}, a.fail(ctx, meta, err)
	}
	return rec, nil
}

// AnalyzeBody walks an already fetched pipeline body.
func (a *Analyzer) AnalyzeBody(ctx context.Context, meta PipelineMeta, body *PipelineBody) (PipelineRecord, error) {
	scope := meta.Scope()
	level := LevelFor(scope)
	fr := frame{pipeline: meta.Identifier}

	res := newWalkResult()
	if body.Template != nil && body.Template.Ref != "" {
		t, err := a.resolver.resolve(ctx, fr, body.Template.Ref, body.Template.Version, level, scope)
		if err != nil {
			return PipelineRecord{}, err
		}
		res.absorb(t.contribution(body.Template.Ref))
	}

	own, err := a.walker.walk(ctx, fr, body.Stages, level, scope)
	if err != nil {
		return PipelineRecord{}, err
	}
	res.absorb(own)

	name := meta.Name
	if name == "" {
		name = body.Name
	}
	return PipelineRecord{
		PipelineID:    meta.Identifier,
		OrgID:         meta.OrgID,
		ProjectID:     meta.ProjectID,
		Name:          name,
		CIStages:      res.CIStages,
		Infra:         Classify(res.Infra).Sorted(),
		TotalStages:   len(body.Stages),
		TemplateUsage: res.TemplateRefs,
		TemplatesUsed: res.TemplatesUsed.Sorted(),
	}, nil
}

func (a *Analyzer) fail(ctx context.Context, meta PipelineMeta, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	a.logger.Warn("pipeline analysis failed",
		slog.String("org", meta.OrgID),
		slog.String("project", meta.ProjectID),
		slog.String("pipeline", meta.Identifier),
		slog.String("error", err.Error()))
	return &PipelineError{
		OrgID:      meta.OrgID,
		ProjectID:  meta.ProjectID,
		PipelineID: meta.Identifier,
		Message:    err.Error(),
	}
}
