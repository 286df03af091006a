package inventory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

var errBoom = errors.New("boom")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFetcher is an in-memory hierarchy. Templates are looked up by
// TemplateKey.String() first, then by bare id.
type fakeFetcher struct {
	mu sync.Mutex

	orgs       []Organization
	orgErr     error
	projects   map[string][]Project
	projectErr map[string]error
	pipelines  map[string][]PipelineMeta
	listErr    map[string]error
	bodies     map[string]*PipelineBody
	bodyErr    map[string]error
	templates  map[string]*TemplateBody
	// templateErr fails the next fetch of a template id once.
	templateErr map[string]error
	executions  map[string][]Execution
	delay       time.Duration

	templateCalls map[string]int
	pipelineCalls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		projects:      map[string][]Project{},
		projectErr:    map[string]error{},
		pipelines:     map[string][]PipelineMeta{},
		listErr:       map[string]error{},
		bodies:        map[string]*PipelineBody{},
		bodyErr:       map[string]error{},
		templates:     map[string]*TemplateBody{},
		templateErr:   map[string]error{},
		executions:    map[string][]Execution{},
		templateCalls: map[string]int{},
		pipelineCalls: map[string]int{},
	}
}

func (f *fakeFetcher) addPipeline(org, project, id string, body *PipelineBody) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := org + "/" + project
	f.pipelines[key] = append(f.pipelines[key], PipelineMeta{Identifier: id, OrgID: org, ProjectID: project, Name: id, StoreType: StoreTypeInline})
	f.bodies[id] = body
}

func (f *fakeFetcher) ListOrganizations(ctx context.Context) ([]Organization, error) {
	return f.orgs, f.orgErr
}

func (f *fakeFetcher) ListProjects(ctx context.Context, orgID string) ([]Project, error) {
	if err := f.projectErr[orgID]; err != nil {
		return nil, err
	}
	return f.projects[orgID], nil
}

func (f *fakeFetcher) ListPipelines(ctx context.Context, orgID, projectID string) ([]PipelineMeta, error) {
	key := orgID + "/" + projectID
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[key]; err != nil {
		return nil, err
	}
	return f.pipelines[key], nil
}

func (f *fakeFetcher) FetchPipeline(ctx context.Context, meta PipelineMeta) (*PipelineBody, error) {
	f.mu.Lock()
	f.pipelineCalls[meta.Identifier]++
	body, err := f.bodies[meta.Identifier], f.bodyErr[meta.Identifier]
	f.mu.Unlock()
	if err != nil {
		return nil, &FetchError{Op: "get pipeline " + meta.Identifier, Status: 500, Err: err}
	}
	if body == nil {
		return nil, &FetchError{Op: "get pipeline " + meta.Identifier, Status: 404, Err: errors.New("not found")}
	}
	return body, nil
}

func (f *fakeFetcher) FetchTemplate(ctx context.Context, key TemplateKey) (*TemplateBody, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templateCalls[key.String()]++
	if err := f.templateErr[key.ID]; err != nil {
		delete(f.templateErr, key.ID)
		return nil, err
	}
	if t, ok := f.templates[key.String()]; ok {
		return t, nil
	}
	if t, ok := f.templates[key.ID]; ok {
		return t, nil
	}
	return nil, &FetchError{Op: "get template " + key.ID, Status: 404, Err: errors.New("not found")}
}

func (f *fakeFetcher) ListExecutions(ctx context.Context, meta PipelineMeta) ([]Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.executions[meta.Identifier], nil
}

func (f *fakeFetcher) totalTemplateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.templateCalls {
		n += c
	}
	return n
}

func (f *fakeFetcher) callsFor(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.templateCalls[key]
}

func ciStage(name, infra string) SimpleStage {
	return SimpleStage{Identifier: name, Name: name, Type: StageTypeCI, HasSpec: true, Infrastructure: infra}
}

func deployStage(name string) SimpleStage {
	return SimpleStage{Identifier: name, Name: name, Type: "Deployment", HasSpec: true}
}

func ciTemplate(id, infra string) *TemplateBody {
	return &TemplateBody{Identifier: id, Name: id, Type: TemplateTypeStage, SpecType: StageTypeCI, Infrastructure: infra}
}

func pipelineTemplate(id string, stages ...Stage) *TemplateBody {
	return &TemplateBody{Identifier: id, Name: id, Type: "Pipeline", Stages: stages}
}

// recordingTracer counts events.
type recordingTracer struct {
	mu        sync.Mutex
	stages    []StageEvent
	templates []TemplateEvent
}

func (r *recordingTracer) StageVisited(_ context.Context, ev StageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, ev)
}

func (r *recordingTracer) TemplateResolved(_ context.Context, ev TemplateEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates = append(r.templates, ev)
}
