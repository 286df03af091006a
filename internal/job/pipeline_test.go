package job

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maraichr/pipescope/internal/config"
	"github.com/maraichr/pipescope/internal/inventory"
	"github.com/maraichr/pipescope/internal/queue"
	"github.com/maraichr/pipescope/internal/report"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// hierarchy is a one-org, one-project account.
type hierarchy struct {
	pipelines []inventory.PipelineMeta
	orgErr    error
}

func (h *hierarchy) ListOrganizations(context.Context) ([]inventory.Organization, error) {
	if h.orgErr != nil {
		return nil, h.orgErr
	}
	return []inventory.Organization{{Identifier: "eng"}}, nil
}

func (h *hierarchy) ListProjects(_ context.Context, orgID string) ([]inventory.Project, error) {
	return []inventory.Project{{Identifier: "web", OrgID: orgID}}, nil
}

func (h *hierarchy) ListPipelines(context.Context, string, string) ([]inventory.PipelineMeta, error) {
	return h.pipelines, nil
}

func (h *hierarchy) FetchPipeline(_ context.Context, meta inventory.PipelineMeta) (*inventory.PipelineBody, error) {
	return &inventory.PipelineBody{
		Identifier: meta.Identifier,
		Name:       meta.Name,
		Stages: []inventory.Stage{
			inventory.SimpleStage{Identifier: "build", Type: inventory.StageTypeCI, HasSpec: true, Infrastructure: "KubernetesDirect"},
		},
	}, nil
}

func (h *hierarchy) FetchTemplate(context.Context, inventory.TemplateKey) (*inventory.TemplateBody, error) {
	return nil, errors.New("no templates")
}

type fakeStore struct {
	mu        sync.Mutex
	started   []uuid.UUID
	failed    map[uuid.UUID]string
	saved     map[uuid.UUID]*inventory.Report
	artifacts []string
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{failed: map[uuid.UUID]string{}, saved: map[uuid.UUID]*inventory.Report{}}
}

func (s *fakeStore) StartRun(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, id)
	return nil
}

func (s *fakeStore) FailRun(_ context.Context, id uuid.UUID, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = msg
	return nil
}

func (s *fakeStore) SaveReport(_ context.Context, id uuid.UUID, r *inventory.Report, artifacts []string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[id] = r
	s.artifacts = artifacts
	return nil
}

type memUploader struct {
	mu   sync.Mutex
	keys []string
}

func (m *memUploader) UploadFile(_ context.Context, name string, r io.Reader, _ int64) error {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, name)
	return nil
}

type fakeGraph struct {
	runs []string
	err  error
}

func (g *fakeGraph) SyncReport(_ context.Context, runID string, _ *inventory.Report) error {
	g.runs = append(g.runs, runID)
	return g.err
}

func newPipeline(t *testing.T, h *hierarchy, s *fakeStore, up *memUploader, g *fakeGraph) *Pipeline {
	t.Helper()
	logger := testLogger()
	exporter := report.NewExporter(config.ReportConfig{Workbook: "inventory.xlsx"}, logger)

	var publish *PublishStage
	if up != nil {
		publish = NewPublishStage(report.NewPublisher(up, "reports", logger))
	}
	var graphStage *GraphStage
	if g != nil {
		graphStage = NewGraphStage(g, logger)
	}
	stages := Stages(
		NewInventoryStage(h, inventory.EngineOptions{Concurrency: 2}, logger),
		NewExportStage(exporter, t.TempDir()),
		publish,
		graphStage,
	)
	return NewPipeline(s, stages, logger)
}

func TestPipeline_Run(t *testing.T) {
	h := &hierarchy{pipelines: []inventory.PipelineMeta{
		{Identifier: "p1", OrgID: "eng", ProjectID: "web", Name: "One"},
		{Identifier: "p2", OrgID: "eng", ProjectID: "web", Name: "Two"},
	}}
	s := newFakeStore()
	up := &memUploader{}
	g := &fakeGraph{err: errors.New("neo4j down")}
	id := uuid.New()

	err := newPipeline(t, h, s, up, g).Run(context.Background(), queue.RunMessage{RunID: id, Trigger: queue.TriggerManual})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{id}, s.started)
	require.Contains(t, s.saved, id)
	assert.Equal(t, 2, s.saved[id].Account.Pipelines)
	assert.Empty(t, s.failed)

	// Six files: five CSVs and the workbook, all published under the run id.
	assert.Len(t, up.keys, 6)
	assert.Equal(t, s.artifacts, up.keys)
	assert.Contains(t, up.keys, "reports/"+id.String()+"/pipeline_details.csv")

	// A graph failure is not fatal.
	assert.Equal(t, []string{id.String()}, g.runs)
}

func TestPipeline_OnlyPipeline(t *testing.T) {
	h := &hierarchy{pipelines: []inventory.PipelineMeta{
		{Identifier: "p1", OrgID: "eng", ProjectID: "web"},
		{Identifier: "p2", OrgID: "eng", ProjectID: "web"},
	}}
	s := newFakeStore()
	id := uuid.New()

	err := newPipeline(t, h, s, nil, nil).Run(context.Background(), queue.RunMessage{RunID: id, OnlyPipeline: "p2"})
	require.NoError(t, err)

	require.Len(t, s.saved[id].Records, 1)
	assert.Equal(t, "p2", s.saved[id].Records[0].PipelineID)
	// Without a publisher the artifacts are local paths.
	assert.Len(t, s.artifacts, 6)
}

func TestPipeline_StageFailureMarksRunFailed(t *testing.T) {
	h := &hierarchy{orgErr: errors.New("unauthorized")}
	s := newFakeStore()
	id := uuid.New()

	err := newPipeline(t, h, s, nil, nil).Run(context.Background(), queue.RunMessage{RunID: id})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage inventory failed")
	assert.Contains(t, s.failed[id], "unauthorized")
	assert.NotContains(t, s.saved, id)
}

func TestPipeline_SaveFailure(t *testing.T) {
	h := &hierarchy{}
	s := newFakeStore()
	s.saveErr = errors.New("db gone")
	id := uuid.New()

	err := newPipeline(t, h, s, nil, nil).Run(context.Background(), queue.RunMessage{RunID: id})
	require.Error(t, err)
	assert.Equal(t, "db gone", s.failed[id])
}
