package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   Set
		want Set
	}{
		{"empty", NewSet(), NewSet()},
		{"nil", nil, NewSet()},
		{"single", NewSet("VM"), NewSet("VM")},
		{"duplicates collapse", NewSet("VM", "VM"), NewSet("VM")},
		{"two labels", NewSet("VM", "Cloud"), NewSet(Mixed)},
		{"mixed already", NewSet(Mixed), NewSet(Mixed)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

func TestClassify_DoesNotAlias(t *testing.T) {
	in := NewSet("VM")
	out := Classify(in)
	out.Add("Cloud")
	assert.Equal(t, NewSet("VM"), in)
	assert.False(t, in.Has("Cloud"))
	assert.True(t, out.Has("Cloud"))
}

func TestPercentage(t *testing.T) {
	assert.Empty(t, Percentage(map[string]int{}))
	assert.Empty(t, Percentage(nil))
	assert.Equal(t, map[string]string{"VM": "75.00%", "Cloud": "25.00%"}, Percentage(map[string]int{"VM": 3, "Cloud": 1}))
	assert.Equal(t, map[string]string{"VM": "0.00%"}, Percentage(map[string]int{"VM": 0}))
	assert.Equal(t, map[string]string{"a": "33.33%", "b": "66.67%"}, Percentage(map[string]int{"a": 1, "b": 2}))
}

func TestFold(t *testing.T) {
	b := Fold([]PipelineRecord{
		{CIStages: 2, Infra: []string{"VM"}, TemplateUsage: 1, TemplatesUsed: []string{"T1"}},
		{CIStages: 1, Infra: []string{Mixed}, TemplateUsage: 2, TemplatesUsed: []string{"T1", "T2"}},
		{CIStages: 0},
	})

	assert.Equal(t, 3, b.Pipelines)
	assert.Equal(t, 2, b.CIPipelines)
	assert.Equal(t, 3, b.CIStages)
	assert.Equal(t, 3, b.TemplateRefs)
	assert.Equal(t, map[string]int{"VM": 1, Mixed: 1}, b.Infra)
	assert.Equal(t, map[string]int{"T1": 2, "T2": 1}, b.Templates)
}

func TestCombine_IsOrderIndependent(t *testing.T) {
	p1 := Fold([]PipelineRecord{{CIStages: 1, Infra: []string{"VM"}}})
	p1.Projects = 1
	p2 := Fold([]PipelineRecord{{CIStages: 3, Infra: []string{"Docker"}, TemplatesUsed: []string{"T"}}})
	p2.Projects, p2.FailedPipelines = 1, 2

	ab := Combine(p1, p2)
	ba := Combine(p2, p1)
	assert.Equal(t, ab, ba)
	assert.Equal(t, 2, ab.Projects)
	assert.Equal(t, 2, ab.Pipelines)
	assert.Equal(t, 2, ab.FailedPipelines)
	assert.Equal(t, 4, ab.CIStages)
	assert.Equal(t, map[string]int{"VM": 1, "Docker": 1}, ab.Infra)

	// inputs untouched
	assert.Equal(t, map[string]int{"VM": 1}, p1.Infra)
}

func TestBucket_AccountSummary(t *testing.T) {
	b := Bucket{Organizations: 2, Projects: 4, Pipelines: 10, CIPipelines: 4, Infra: map[string]int{"VM": 3, "Cloud": 1}}
	s := b.AccountSummary()

	assert.InDelta(t, 2.5, s.AvgPipelinesPerProject, 1e-9)
	assert.InDelta(t, 2.0, s.AvgProjectsPerOrg, 1e-9)
	assert.Equal(t, "75.00%", s.InfraPercentage["VM"])

	empty := Bucket{}.AccountSummary()
	assert.Zero(t, empty.AvgPipelinesPerProject)
	assert.Zero(t, empty.AvgProjectsPerOrg)
}

func TestReport_InfraLabels(t *testing.T) {
	r := &Report{
		Account: AccountSummary{InfraCounts: map[string]int{"VM": 1}},
		Orgs: map[string]OrgSummary{
			"a": {InfraCounts: map[string]int{"Docker": 1}},
			"b": {InfraCounts: map[string]int{"VM": 2, Mixed: 1}},
		},
	}
	assert.Equal(t, []string{"Docker", Mixed, "VM"}, r.InfraLabels())
}
