package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dominikbraun/graph"
	"golang.org/x/sync/singleflight"
)

// frame carries the position of a walk: the pipeline being analyzed and the
// template whose body is being walked (empty at pipeline level).
type frame struct {
	pipeline string
	parent   string
	// refs collects the references resolved directly in parent's body.
	refs *[]usageRef
}

// usageRef is one reference met while walking a template body.
type usageRef struct {
	key TemplateKey
	ref string
}

// Resolver resolves and memoizes templates for one run. Every key is fetched
// at most once; concurrent first resolutions share a single fetch.
type Resolver struct {
	fetcher TemplateFetcher
	tracer  Tracer
	logger  *slog.Logger

	mu      sync.Mutex
	cache   map[TemplateKey]*ResolvedTemplate
	usage   map[string]int
	fetches int

	flight singleflight.Group

	// refs holds template -> template edges seen while walking template
	// bodies. It rejects edges that would close a cycle.
	refsMu sync.Mutex
	refs   graph.Graph[string, string]
}

// NewResolver creates a resolver with an empty cache. A nil tracer disables tracing.
func NewResolver(fetcher TemplateFetcher, tracer Tracer, logger *slog.Logger) *Resolver {
	if tracer == nil {
		tracer = NopTracer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		fetcher: fetcher,
		tracer:  tracer,
		logger:  logger,
		cache:   make(map[TemplateKey]*ResolvedTemplate),
		usage:   make(map[string]int),
		refs:    graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
	}
}

// Resolve returns the template ref points to, seen from level and scope.
func (r *Resolver) Resolve(ctx context.Context, ref, version string, level Level, scope Scope) (ResolvedTemplate, error) {
	return r.resolve(ctx, frame{}, ref, version, level, scope)
}

func (r *Resolver) resolve(ctx context.Context, fr frame, ref, version string, level Level, scope Scope) (ResolvedTemplate, error) {
	key, err := NewTemplateKey(ref, version, level, scope)
	if err != nil {
		return ResolvedTemplate{}, &ResolutionError{Ref: ref, Err: err}
	}
	if err := r.link(fr.parent, key.String()); err != nil {
		return ResolvedTemplate{}, &ResolutionError{Ref: ref, Err: err}
	}

	if t, ok := r.hit(key, ref); ok {
		fr.record(key, ref)
		r.tracer.TemplateResolved(ctx, TemplateEvent{Pipeline: fr.pipeline, Ref: ref, Key: key, Hit: true, CI: t.CI, Count: t.Count})
		return t, nil
	}

	// fresh is set only in the goroutine that performs the load.
	var fresh bool
	v, err, _ := r.flight.Do(key.String(), func() (any, error) {
		r.mu.Lock()
		cached, ok := r.cache[key]
		r.mu.Unlock()
		if ok {
			return cached, nil
		}
		fresh = true
		return r.load(ctx, fr, key)
	})
	if err != nil {
		var re *ResolutionError
		if errors.As(err, &re) {
			return ResolvedTemplate{}, err
		}
		return ResolvedTemplate{}, &ResolutionError{Ref: ref, Err: err}
	}

	loaded := v.(*ResolvedTemplate)
	r.mu.Lock()
	if fresh {
		// The load already counted the references nested in the body.
		loaded.Count++
		r.usage[ref]++
	} else {
		r.count(loaded, ref)
	}
	t := *loaded
	r.mu.Unlock()
	fr.record(key, ref)

	r.tracer.TemplateResolved(ctx, TemplateEvent{Pipeline: fr.pipeline, Ref: ref, Key: key, CI: t.CI, Count: t.Count})
	return t, nil
}

// hit bumps the counters of an already cached key.
func (r *Resolver) hit(key TemplateKey, ref string) (ResolvedTemplate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.cache[key]
	if !ok {
		return ResolvedTemplate{}, false
	}
	r.count(t, ref)
	return *t, true
}

// count records one more reference to t and, transitively, to every template
// referenced in its body. Callers hold r.mu.
func (r *Resolver) count(t *ResolvedTemplate, ref string) {
	t.Count++
	r.usage[ref]++
	for _, n := range t.refs {
		if child, ok := r.cache[n.key]; ok {
			r.count(child, n.ref)
		}
	}
}

func (fr frame) record(key TemplateKey, ref string) {
	if fr.refs != nil {
		*fr.refs = append(*fr.refs, usageRef{key: key, ref: ref})
	}
}

// load fetches key and walks its stages. Failures are not cached.
func (r *Resolver) load(ctx context.Context, fr frame, key TemplateKey) (*ResolvedTemplate, error) {
	body, err := r.fetcher.FetchTemplate(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}

	var refs []usageRef
	w := &Walker{resolver: r, tracer: r.tracer}
	nested, err := w.walk(ctx, frame{pipeline: fr.pipeline, parent: key.String(), refs: &refs}, body.Stages, key.Level, key.Scope())
	if err != nil {
		return nil, err
	}

	infra := nested.Infra.Clone()
	t := &ResolvedTemplate{Key: key, Type: body.Type, Nested: nested, refs: refs}
	if body.IsCIStage() {
		t.CI = true
		infra.Add(body.InfraLabel())
	}
	t.Infra = Classify(infra)

	r.mu.Lock()
	r.cache[key] = t
	r.fetches++
	r.mu.Unlock()

	r.logger.Debug("template loaded",
		slog.String("key", key.String()),
		slog.String("type", body.Type),
		slog.Bool("ci", t.CI),
		slog.Int("nested_ci_stages", nested.CIStages))
	return t, nil
}

// link records that parent's body references child. It fails if the edge
// would close a cycle.
func (r *Resolver) link(parent, child string) error {
	if parent == "" {
		return nil
	}
	r.refsMu.Lock()
	defer r.refsMu.Unlock()

	for _, v := range []string{parent, child} {
		if err := r.refs.AddVertex(v); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return fmt.Errorf("track template %s: %w", v, err)
		}
	}
	err := r.refs.AddEdge(parent, child)
	switch {
	case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return fmt.Errorf("%w: %s -> %s", ErrTemplateCycle, parent, child)
	default:
		return fmt.Errorf("track reference %s -> %s: %w", parent, child, err)
	}
}

// Lookup returns the cached template for key without touching counters.
func (r *Resolver) Lookup(key TemplateKey) (ResolvedTemplate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.cache[key]
	if !ok {
		return ResolvedTemplate{}, false
	}
	return *t, true
}

// Usage returns how many times each template reference was resolved.
func (r *Resolver) Usage() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.usage))
	for ref, n := range r.usage {
		out[ref] = n
	}
	return out
}

// Fetches returns the number of templates fetched from the remote platform.
func (r *Resolver) Fetches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches
}
