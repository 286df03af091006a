package job

import (
	"context"
	"log/slog"

	"github.com/maraichr/pipescope/internal/inventory"
)

// GraphSyncer is implemented by *graph.Client.
type GraphSyncer interface {
	SyncReport(ctx context.Context, runID string, r *inventory.Report) error
}

// GraphStage mirrors template usage into the graph. Sync failures are logged
// and do not fail the run.
type GraphStage struct {
	graph  GraphSyncer
	logger *slog.Logger
}

func NewGraphStage(g GraphSyncer, logger *slog.Logger) *GraphStage {
	return &GraphStage{graph: g, logger: logger}
}

func (s *GraphStage) Name() string { return "graph" }

func (s *GraphStage) Execute(ctx context.Context, rc *RunContext) error {
	if err := s.graph.SyncReport(ctx, rc.RunID.String(), rc.Report); err != nil {
		s.logger.Warn("graph sync failed",
			slog.String("run_id", rc.RunID.String()),
			slog.String("error", err.Error()))
	}
	return nil
}
