package inventory

import "context"

// Walker interprets stage lists, expanding template references through a Resolver.
type Walker struct {
	resolver *Resolver
	tracer   Tracer
}

// NewWalker creates a walker sharing resolver's cache. A nil tracer falls
// back to the resolver's.
func NewWalker(resolver *Resolver, tracer Tracer) *Walker {
	if tracer == nil {
		tracer = resolver.tracer
	}
	return &Walker{resolver: resolver, tracer: tracer}
}

// Walk summarizes stages of pipeline as seen from level and scope. The
// returned infrastructure set is classified.
func (w *Walker) Walk(ctx context.Context, pipeline string, stages []Stage, level Level, scope Scope) (WalkResult, error) {
	res, err := w.walk(ctx, frame{pipeline: pipeline}, stages, level, scope)
	if err != nil {
		return WalkResult{}, err
	}
	res.Infra = Classify(res.Infra)
	return res, nil
}

// walk returns raw label sets so callers can still see mixes across branches.
func (w *Walker) walk(ctx context.Context, fr frame, stages []Stage, level Level, scope Scope) (WalkResult, error) {
	acc := newWalkResult()
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return WalkResult{}, err
		}

		switch s := st.(type) {
		case SimpleStage:
			ci := s.IsCI()
			w.tracer.StageVisited(ctx, StageEvent{Pipeline: fr.pipeline, Level: level, Kind: s.stageKind(), Name: s.Name, Type: s.Type, CI: ci})
			if !ci {
				continue
			}
			acc.CIStages++
			// A stage without a spec block has no infrastructure to report.
			if s.HasSpec {
				acc.Infra.Add(s.InfraLabel())
			}

		case TemplateStage:
			w.tracer.StageVisited(ctx, StageEvent{Pipeline: fr.pipeline, Level: level, Kind: s.stageKind(), Name: s.Name})
			t, err := w.resolver.resolve(ctx, fr, s.Ref, s.Version, level, scope)
			if err != nil {
				return WalkResult{}, err
			}
			acc.absorb(t.contribution(s.Ref))

		case ParallelStage:
			w.tracer.StageVisited(ctx, StageEvent{Pipeline: fr.pipeline, Level: level, Kind: s.stageKind()})
			sub, err := w.walk(ctx, fr, s.Stages, level, scope)
			if err != nil {
				return WalkResult{}, err
			}
			acc.absorb(sub)
		}
	}
	return acc, nil
}
