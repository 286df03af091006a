package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTemplateKey(t *testing.T) {
	scope := Scope{Org: "o1", Project: "p1"}
	tests := []struct {
		name    string
		ref     string
		version string
		level   Level
		want    TemplateKey
	}{
		{"project level", "build", "v2", LevelProject, TemplateKey{ID: "build", Version: "v2", Level: LevelProject, Org: "o1", Project: "p1"}},
		{"default version", "build", "", LevelProject, TemplateKey{ID: "build", Version: DefaultVersionLabel, Level: LevelProject, Org: "o1", Project: "p1"}},
		{"org level drops project", "build", "1", LevelOrg, TemplateKey{ID: "build", Version: "1", Level: LevelOrg, Org: "o1"}},
		{"account prefix overrides", "account.build", "1", LevelProject, TemplateKey{ID: "build", Version: "1", Level: LevelAccount}},
		{"org prefix overrides", "org.build", "1", LevelProject, TemplateKey{ID: "build", Version: "1", Level: LevelOrg, Org: "o1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTemplateKey(tt.ref, tt.version, tt.level, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTemplateKey_Errors(t *testing.T) {
	_, err := NewTemplateKey("build", "", Level("galaxy"), Scope{})
	assert.ErrorIs(t, err, ErrUnknownLevel)

	_, err = NewTemplateKey("account.", "", LevelAccount, Scope{})
	assert.Error(t, err)
}

func TestTemplateKey_String(t *testing.T) {
	assert.Equal(t, "account/t@1", TemplateKey{ID: "t", Version: "1", Level: LevelAccount}.String())
	assert.Equal(t, "org/o/t@1", TemplateKey{ID: "t", Version: "1", Level: LevelOrg, Org: "o"}.String())
	assert.Equal(t, "project/o/p/t@1", TemplateKey{ID: "t", Version: "1", Level: LevelProject, Org: "o", Project: "p"}.String())
}

func TestResolver_FetchesOncePerKey(t *testing.T) {
	f := newFakeFetcher()
	f.templates["T1"] = ciTemplate("T1", "Docker")
	r := NewResolver(f, nil, testLogger())
	scope := Scope{Org: "o", Project: "p"}
	ctx := context.Background()

	var last ResolvedTemplate
	for i := 0; i < 3; i++ {
		var err error
		last, err = r.Resolve(ctx, "T1", "", LevelProject, scope)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.totalTemplateCalls())
	assert.Equal(t, 1, r.Fetches())
	assert.Equal(t, 3, last.Count)
	assert.True(t, last.CI)
	assert.Equal(t, NewSet("Docker"), last.Infra)
	assert.Equal(t, map[string]int{"T1": 3}, r.Usage())
}

func TestResolver_ScopeIsolation(t *testing.T) {
	f := newFakeFetcher()
	f.templates["T"] = ciTemplate("T", "VM")
	r := NewResolver(f, nil, testLogger())
	ctx := context.Background()

	_, err := r.Resolve(ctx, "T", "", LevelProject, Scope{Org: "o", Project: "p1"})
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "T", "", LevelProject, Scope{Org: "o", Project: "p2"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.totalTemplateCalls(), "project templates are fetched per project")

	_, err = r.Resolve(ctx, "account.T", "", LevelProject, Scope{Org: "o", Project: "p1"})
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "account.T", "", LevelProject, Scope{Org: "x", Project: "y"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.callsFor("account/T@0.0.1"))

	_, err = r.Resolve(ctx, "T", "2.0", LevelProject, Scope{Org: "o", Project: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.callsFor("project/o/p1/T@2.0"), "versions are cached separately")
}

func TestResolver_ErrorsAreNotCached(t *testing.T) {
	f := newFakeFetcher()
	f.templates["T"] = ciTemplate("T", "VM")
	f.templateErr["T"] = errBoom
	r := NewResolver(f, nil, testLogger())
	ctx := context.Background()

	_, err := r.Resolve(ctx, "T", "", LevelAccount, Scope{})
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "T", re.Ref)
	assert.ErrorIs(t, err, errBoom)

	got, err := r.Resolve(ctx, "T", "", LevelAccount, Scope{})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, 2, f.totalTemplateCalls())
	assert.Equal(t, 1, r.Fetches())
}

func TestResolver_ConcurrentFirstResolutionSharesFetch(t *testing.T) {
	f := newFakeFetcher()
	f.templates["T"] = ciTemplate("T", "VM")
	f.delay = 50 * time.Millisecond
	r := NewResolver(f, nil, testLogger())

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Resolve(context.Background(), "T", "", LevelAccount, Scope{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.totalTemplateCalls())
	got, ok := r.Lookup(TemplateKey{ID: "T", Version: DefaultVersionLabel, Level: LevelAccount})
	require.True(t, ok)
	assert.Equal(t, n, got.Count)
}

func TestResolver_NestedTemplates(t *testing.T) {
	f := newFakeFetcher()
	f.templates["inner"] = ciTemplate("inner", "Docker")
	f.templates["outer"] = pipelineTemplate("outer",
		TemplateStage{Name: "use inner", Ref: "inner"},
		ciStage("build", "VM"),
	)
	r := NewResolver(f, nil, testLogger())

	got, err := r.Resolve(context.Background(), "outer", "", LevelProject, Scope{Org: "o", Project: "p"})
	require.NoError(t, err)

	assert.False(t, got.CI)
	assert.Equal(t, NewSet(Mixed), got.Infra)
	assert.Equal(t, 2, got.Nested.CIStages)
	assert.Equal(t, NewSet("Docker", "VM"), got.Nested.Infra)
	assert.Equal(t, NewSet("inner"), got.Nested.TemplatesUsed)
	assert.Equal(t, 2, r.Fetches())
}

func TestResolver_NestedUsageCountsEveryReference(t *testing.T) {
	f := newFakeFetcher()
	f.templates["inner"] = ciTemplate("inner", "Docker")
	f.templates["outer"] = pipelineTemplate("outer",
		TemplateStage{Ref: "inner"},
		ParallelStage{Stages: []Stage{TemplateStage{Ref: "inner"}}},
	)
	r := NewResolver(f, nil, testLogger())
	scope := Scope{Org: "o", Project: "p"}

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(context.Background(), "outer", "", LevelProject, scope)
		require.NoError(t, err)
	}

	assert.Equal(t, map[string]int{"outer": 3, "inner": 6}, r.Usage())
	inner, ok := r.Lookup(TemplateKey{ID: "inner", Version: DefaultVersionLabel, Level: LevelProject, Org: "o", Project: "p"})
	require.True(t, ok)
	assert.Equal(t, 6, inner.Count)
	assert.Equal(t, 2, r.Fetches())
}

func TestResolver_ConcurrentNestedUsage(t *testing.T) {
	f := newFakeFetcher()
	f.templates["inner"] = ciTemplate("inner", "Docker")
	f.templates["outer"] = pipelineTemplate("outer", TemplateStage{Ref: "inner"})
	f.delay = 20 * time.Millisecond
	r := NewResolver(f, nil, testLogger())

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Resolve(context.Background(), "account.outer", "", LevelProject, Scope{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, map[string]int{"account.outer": n, "inner": n}, r.Usage())
	assert.Equal(t, 2, r.Fetches())
}

func TestResolver_RejectsCycles(t *testing.T) {
	t.Run("self reference", func(t *testing.T) {
		f := newFakeFetcher()
		f.templates["loop"] = pipelineTemplate("loop", TemplateStage{Ref: "loop"})
		r := NewResolver(f, nil, testLogger())

		_, err := r.Resolve(context.Background(), "loop", "", LevelAccount, Scope{})
		assert.ErrorIs(t, err, ErrTemplateCycle)
	})

	t.Run("transitive", func(t *testing.T) {
		f := newFakeFetcher()
		f.templates["a"] = pipelineTemplate("a", TemplateStage{Ref: "b"})
		f.templates["b"] = pipelineTemplate("b", TemplateStage{Ref: "c"})
		f.templates["c"] = pipelineTemplate("c", ciStage("build", "VM"), TemplateStage{Ref: "a"})
		r := NewResolver(f, nil, testLogger())

		_, err := r.Resolve(context.Background(), "a", "", LevelAccount, Scope{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTemplateCycle))
		_, cached := r.Lookup(TemplateKey{ID: "a", Version: DefaultVersionLabel, Level: LevelAccount})
		assert.False(t, cached)
	})

	t.Run("diamond is not a cycle", func(t *testing.T) {
		f := newFakeFetcher()
		f.templates["top"] = pipelineTemplate("top", TemplateStage{Ref: "left"}, TemplateStage{Ref: "right"})
		f.templates["left"] = pipelineTemplate("left", TemplateStage{Ref: "leaf"})
		f.templates["right"] = pipelineTemplate("right", TemplateStage{Ref: "leaf"})
		f.templates["leaf"] = ciTemplate("leaf", "VM")
		r := NewResolver(f, nil, testLogger())

		got, err := r.Resolve(context.Background(), "top", "", LevelAccount, Scope{})
		require.NoError(t, err)
		assert.Equal(t, 2, got.Nested.CIStages)
		assert.Equal(t, 1, f.callsFor("account/leaf@0.0.1"))
	})
}

func TestResolver_Tracer(t *testing.T) {
	f := newFakeFetcher()
	f.templates["T"] = ciTemplate("T", "VM")
	tr := &recordingTracer{}
	r := NewResolver(f, tr, testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(ctx, "T", "", LevelAccount, Scope{})
		require.NoError(t, err)
	}

	require.Len(t, tr.templates, 2)
	assert.False(t, tr.templates[0].Hit)
	assert.True(t, tr.templates[1].Hit)
	assert.Equal(t, 2, tr.templates[1].Count)
}
