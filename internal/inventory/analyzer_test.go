package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_TemplateReuseAcrossPipelines(t *testing.T) {
	f := newFakeFetcher()
	f.templates["T1"] = ciTemplate("T1", "Docker")
	f.addPipeline("o", "p", "A", &PipelineBody{Stages: []Stage{TemplateStage{Ref: "T1"}}})
	f.addPipeline("o", "p", "B", &PipelineBody{Stages: []Stage{TemplateStage{Ref: "T1"}, deployStage("ship")}})

	r := NewResolver(f, nil, testLogger())
	a := NewAnalyzer(f, r, testLogger())
	ctx := context.Background()

	for _, meta := range f.pipelines["o/p"] {
		rec, err := a.Analyze(ctx, meta)
		require.NoError(t, err)
		assert.Equal(t, 1, rec.CIStages, meta.Identifier)
		assert.Equal(t, []string{"Docker"}, rec.Infra, meta.Identifier)
		assert.Equal(t, []string{"T1"}, rec.TemplatesUsed, meta.Identifier)
	}

	got, ok := r.Lookup(TemplateKey{ID: "T1", Version: DefaultVersionLabel, Level: LevelProject, Org: "o", Project: "p"})
	require.True(t, ok)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, 1, f.totalTemplateCalls())
}

func TestAnalyze_RootTemplateAndOwnStages(t *testing.T) {
	f := newFakeFetcher()
	f.templates["pt"] = pipelineTemplate("pt", ciStage("build", "VM"))
	f.addPipeline("o", "p", "P", &PipelineBody{
		Name:     "from body",
		Template: &TemplateStage{Ref: "pt"},
		Stages:   []Stage{ciStage("extra", "Kubernetes"), deployStage("d")},
	})

	a := NewAnalyzer(f, NewResolver(f, nil, testLogger()), testLogger())
	rec, err := a.Analyze(context.Background(), f.pipelines["o/p"][0])
	require.NoError(t, err)

	assert.Equal(t, "P", rec.PipelineID)
	assert.Equal(t, "o", rec.OrgID)
	assert.Equal(t, "p", rec.ProjectID)
	assert.Equal(t, 2, rec.CIStages)
	assert.Equal(t, []string{Mixed}, rec.Infra)
	assert.Equal(t, 2, rec.TotalStages)
	assert.Equal(t, 1, rec.TemplateUsage)
	assert.Equal(t, []string{"pt"}, rec.TemplatesUsed)
}

func TestAnalyze_NameFallsBackToBody(t *testing.T) {
	f := newFakeFetcher()
	a := NewAnalyzer(f, NewResolver(f, nil, testLogger()), testLogger())

	rec, err := a.AnalyzeBody(context.Background(), PipelineMeta{Identifier: "x", OrgID: "o", ProjectID: "p"}, &PipelineBody{Name: "Nightly"})
	require.NoError(t, err)
	assert.Equal(t, "Nightly", rec.Name)
	assert.Empty(t, rec.Infra)
	assert.False(t, rec.HasCI())
}

func TestAnalyze_FailuresBecomePipelineErrors(t *testing.T) {
	f := newFakeFetcher()
	f.bodyErr["broken"] = errBoom
	f.addPipeline("o", "p", "broken", nil)
	f.addPipeline("o", "p", "needs-template", &PipelineBody{Stages: []Stage{TemplateStage{Ref: "gone"}}})

	a := NewAnalyzer(f, NewResolver(f, nil, testLogger()), testLogger())
	for _, meta := range f.pipelines["o/p"] {
		_, err := a.Analyze(context.Background(), meta)
		var pe *PipelineError
		require.ErrorAs(t, err, &pe, meta.Identifier)
		assert.Equal(t, meta.Identifier, pe.PipelineID)
		assert.Equal(t, "o", pe.OrgID)
		assert.NotEmpty(t, pe.Message)
	}
}

func TestAnalyze_CancelledContextIsNotAPipelineError(t *testing.T) {
	f := newFakeFetcher()
	f.templates["T"] = ciTemplate("T", "VM")
	f.addPipeline("o", "p", "P", &PipelineBody{Stages: []Stage{TemplateStage{Ref: "T"}}})
	a := NewAnalyzer(f, NewResolver(f, nil, testLogger()), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Analyze(ctx, f.pipelines["o/p"][0])
	assert.ErrorIs(t, err, context.Canceled)
	var pe *PipelineError
	assert.False(t, errors.As(err, &pe))
}

func TestAnalyze_NilLoggers(t *testing.T) {
	f := newFakeFetcher()
	f.addPipeline("o", "p", "broken", nil)
	f.templates["T"] = pipelineTemplate("T", ciStage("b", "VM"))
	f.addPipeline("o", "p", "ok", &PipelineBody{Stages: []Stage{TemplateStage{Ref: "T"}}})
	a := NewAnalyzer(f, NewResolver(f, nil, nil), nil)

	metas := f.pipelines["o/p"]
	_, err := a.Analyze(context.Background(), metas[0])
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "broken", pe.PipelineID)

	rec, err := a.Analyze(context.Background(), metas[1])
	require.NoError(t, err)
	assert.Equal(t, 1, rec.CIStages)
}
