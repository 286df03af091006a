package inventory

import (
	"context"
	"log/slog"
)

// StageEvent describes one stage visited by the walker.
type StageEvent struct {
	Pipeline string
	Level    Level
	Kind     string
	Name     string
	Type     string
	CI       bool
}

// TemplateEvent describes one template resolution.
type TemplateEvent struct {
	Pipeline string
	Ref      string
	Key      TemplateKey
	Hit      bool
	CI       bool
	Count    int
}

// Tracer receives diagnostics from the walker and resolver. Implementations
// must be safe for concurrent use.
type Tracer interface {
	StageVisited(ctx context.Context, ev StageEvent)
	TemplateResolved(ctx context.Context, ev TemplateEvent)
}

// NopTracer discards all events.
type NopTracer struct{}

func (NopTracer) StageVisited(context.Context, StageEvent)        {}
func (NopTracer) TemplateResolved(context.Context, TemplateEvent) {}

// LogTracer writes events at debug level. When Pipeline is set only events
// for that pipeline are written.
type LogTracer struct {
	Logger   *slog.Logger
	Pipeline string
}

func (t LogTracer) enabled(pipeline string) bool {
	return t.Logger != nil && (t.Pipeline == "" || t.Pipeline == pipeline)
}

func (t LogTracer) StageVisited(ctx context.Context, ev StageEvent) {
	if !t.enabled(ev.Pipeline) {
		return
	}
	t.Logger.DebugContext(ctx, "stage visited",
		slog.String("pipeline", ev.Pipeline),
		slog.String("level", string(ev.Level)),
		slog.String("kind", ev.Kind),
		slog.String("name", ev.Name),
		slog.String("type", ev.Type),
		slog.Bool("ci", ev.CI))
}

func (t LogTracer) TemplateResolved(ctx context.Context, ev TemplateEvent) {
	if !t.enabled(ev.Pipeline) {
		return
	}
	t.Logger.DebugContext(ctx, "template resolved",
		slog.String("pipeline", ev.Pipeline),
		slog.String("ref", ev.Ref),
		slog.String("key", ev.Key.String()),
		slog.Bool("cache_hit", ev.Hit),
		slog.Bool("ci", ev.CI),
		slog.Int("count", ev.Count))
}
