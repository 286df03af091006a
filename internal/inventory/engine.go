package inventory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// EngineOptions tunes a run.
type EngineOptions struct {
	// Concurrency bounds the pipelines listed or analyzed at once. Values below 1 mean 1.
	Concurrency int
	// OnlyPipeline restricts analysis to pipelines with this identifier.
	OnlyPipeline string
	// BuildTimes enables execution lookups when the fetcher supports them.
	BuildTimes bool
	Tracer     Tracer
}

// Engine inventories every pipeline reachable from the account.
type Engine struct {
	fetcher Fetcher
	opts    EngineOptions
	logger  *slog.Logger
	now     func() time.Time
}

// NewEngine creates an engine reading the hierarchy through fetcher.
func NewEngine(fetcher Fetcher, opts EngineOptions, logger *slog.Logger) *Engine {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Tracer == nil {
		opts.Tracer = NopTracer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{fetcher: fetcher, opts: opts, logger: logger, now: time.Now}
}

type projectWork struct {
	project Project
	listErr *PipelineError
	jobs    []int
}

type orgWork struct {
	org      Organization
	projects []*projectWork
}

type pipelineJob struct {
	meta   PipelineMeta
	record *PipelineRecord
	err    *PipelineError
}

// Run enumerates, analyzes and aggregates. Enumeration failures abort with an
// *EnumerationError. If ctx is cancelled during analysis, Run returns the
// partial report together with ctx.Err().
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	started := e.now()

	orgs, err := e.enumerate(ctx)
	if err != nil {
		return nil, err
	}

	jobs := e.listPipelines(ctx, orgs)

	resolver := NewResolver(e.fetcher, e.opts.Tracer, e.logger)
	analyzer := NewAnalyzer(e.fetcher, resolver, e.logger)
	e.analyze(ctx, analyzer, jobs)

	report := e.aggregate(orgs, jobs)
	report.TemplateUsage = resolver.Usage()
	report.TemplateFetch = resolver.Fetches()
	report.StartedAt = started
	report.FinishedAt = e.now()

	e.logger.Info("inventory run finished",
		slog.Int("orgs", report.Account.Organizations),
		slog.Int("projects", report.Account.Projects),
		slog.Int("pipelines", report.Account.Pipelines),
		slog.Int("failed", report.Account.FailedPipelines),
		slog.Int("template_fetches", report.TemplateFetch),
		slog.Duration("elapsed", report.FinishedAt.Sub(started)))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (e *Engine) enumerate(ctx context.Context) ([]*orgWork, error) {
	orgs, err := e.fetcher.ListOrganizations(ctx)
	if err != nil {
		return nil, &EnumerationError{What: "organizations", Err: err}
	}

	out := make([]*orgWork, 0, len(orgs))
	for _, org := range orgs {
		projects, err := e.fetcher.ListProjects(ctx, org.Identifier)
		if err != nil {
			return nil, &EnumerationError{What: "projects of org " + org.Identifier, Err: err}
		}
		ow := &orgWork{org: org}
		for _, p := range projects {
			if p.OrgID == "" {
				p.OrgID = org.Identifier
			}
			ow.projects = append(ow.projects, &projectWork{project: p})
		}
		e.logger.Info("org enumerated",
			slog.String("org", org.Identifier),
			slog.Int("projects", len(ow.projects)))
		out = append(out, ow)
	}
	return out, nil
}

// listPipelines lists every project concurrently and returns the flat job
// list in enumeration order. Listing failures are recorded on the project.
func (e *Engine) listPipelines(ctx context.Context, orgs []*orgWork) []*pipelineJob {
	var all []*projectWork
	for _, ow := range orgs {
		all = append(all, ow.projects...)
	}

	listed := make([][]PipelineMeta, len(all))
	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for i, pw := range all {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			p := pw.project
			metas, err := e.fetcher.ListPipelines(ctx, p.OrgID, p.Identifier)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				e.logger.Warn("list pipelines failed",
					slog.String("org", p.OrgID),
					slog.String("project", p.Identifier),
					slog.String("error", err.Error()))
				pw.listErr = &PipelineError{OrgID: p.OrgID, ProjectID: p.Identifier, Message: err.Error()}
				return nil
			}
			listed[i] = metas
			return nil
		})
	}
	_ = g.Wait()

	var jobs []*pipelineJob
	for i, pw := range all {
		for _, m := range listed[i] {
			if e.opts.OnlyPipeline != "" && m.Identifier != e.opts.OnlyPipeline {
				continue
			}
			if m.OrgID == "" {
				m.OrgID = pw.project.OrgID
			}
			if m.ProjectID == "" {
				m.ProjectID = pw.project.Identifier
			}
			pw.jobs = append(pw.jobs, len(jobs))
			jobs = append(jobs, &pipelineJob{meta: m})
		}
	}
	return jobs
}

func (e *Engine) analyze(ctx context.Context, analyzer *Analyzer, jobs []*pipelineJob) {
	execs, _ := e.fetcher.(ExecutionFetcher)

	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			rec, err := analyzer.Analyze(ctx, job.meta)
			if err != nil {
				var pe *PipelineError
				if errors.As(err, &pe) {
					job.err = pe
				}
				return nil
			}
			if e.opts.BuildTimes && execs != nil {
				e.buildTimes(ctx, execs, &rec, job.meta)
			}
			job.record = &rec
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) buildTimes(ctx context.Context, execs ExecutionFetcher, rec *PipelineRecord, meta PipelineMeta) {
	list, err := execs.ListExecutions(ctx, meta)
	if err != nil {
		e.logger.Warn("list executions failed",
			slog.String("pipeline", meta.Identifier),
			slog.String("error", err.Error()))
		return
	}
	rec.AvgBuildTime, rec.MaxBuildTime = BuildTimes(list)
}

// aggregate folds in enumeration order so the report is stable across runs.
func (e *Engine) aggregate(orgs []*orgWork, jobs []*pipelineJob) *Report {
	report := &Report{Orgs: make(map[string]OrgSummary, len(orgs))}

	orgBuckets := make([]Bucket, 0, len(orgs))
	for _, ow := range orgs {
		projectBuckets := make([]Bucket, 0, len(ow.projects))
		for _, pw := range ow.projects {
			var records []PipelineRecord
			failed := 0
			if pw.listErr != nil {
				report.Errors = append(report.Errors, *pw.listErr)
			}
			for _, idx := range pw.jobs {
				job := jobs[idx]
				switch {
				case job.record != nil:
					records = append(records, *job.record)
				case job.err != nil:
					failed++
					report.Errors = append(report.Errors, *job.err)
				}
			}
			report.Records = append(report.Records, records...)

			b := Fold(records)
			b.Projects = 1
			b.FailedPipelines = failed
			projectBuckets = append(projectBuckets, b)
		}

		ob := Combine(projectBuckets...)
		ob.Organizations = 1
		orgBuckets = append(orgBuckets, ob)
		report.Orgs[ow.org.Identifier] = ob.OrgSummary(ow.org.Identifier)
		report.OrgOrder = append(report.OrgOrder, ow.org.Identifier)
	}

	report.Account = Combine(orgBuckets...).AccountSummary()
	return report
}
