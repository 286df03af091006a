package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/maraichr/pipescope/internal/inventory"
	"github.com/maraichr/pipescope/internal/queue"
)

// RunStore records run status. Implemented by *store.Store.
type RunStore interface {
	StartRun(ctx context.Context, id uuid.UUID) error
	FailRun(ctx context.Context, id uuid.UUID, message string) error
	SaveReport(ctx context.Context, runID uuid.UUID, r *inventory.Report, artifacts []string) error
}

// Pipeline runs the stages for each queued run and persists the result.
type Pipeline struct {
	store  RunStore
	stages []Stage
	logger *slog.Logger
}

func NewPipeline(s RunStore, stages []Stage, logger *slog.Logger) *Pipeline {
	return &Pipeline{store: s, stages: stages, logger: logger}
}

// Run processes one run message. A stage failure marks the run failed.
func (p *Pipeline) Run(ctx context.Context, msg queue.RunMessage) error {
	log := p.logger.With(slog.String("run_id", msg.RunID.String()))
	log.Info("run started", slog.String("trigger", msg.Trigger))

	if err := p.store.StartRun(ctx, msg.RunID); err != nil {
		return fmt.Errorf("update status to running: %w", err)
	}

	rc := &RunContext{
		RunID:        msg.RunID,
		Trigger:      msg.Trigger,
		OnlyPipeline: msg.OnlyPipeline,
	}

	for _, stage := range p.stages {
		log.Info("stage started", slog.String("stage", stage.Name()))
		if err := stage.Execute(ctx, rc); err != nil {
			p.fail(ctx, msg.RunID, err)
			return fmt.Errorf("stage %s failed: %w", stage.Name(), err)
		}
		log.Info("stage completed", slog.String("stage", stage.Name()))
	}

	if rc.Report == nil {
		err := errors.New("no report produced")
		p.fail(ctx, msg.RunID, err)
		return err
	}
	if err := p.store.SaveReport(ctx, msg.RunID, rc.Report, rc.Artifacts()); err != nil {
		p.fail(ctx, msg.RunID, err)
		return fmt.Errorf("save report: %w", err)
	}

	log.Info("run completed",
		slog.Int("pipelines", rc.Report.Account.Pipelines),
		slog.Int("failed", rc.Report.Account.FailedPipelines),
		slog.Int("artifacts", len(rc.Artifacts())))
	return nil
}

func (p *Pipeline) fail(ctx context.Context, id uuid.UUID, cause error) {
	// The run context may be cancelled already; the status update must still land.
	if err := p.store.FailRun(context.WithoutCancel(ctx), id, cause.Error()); err != nil {
		p.logger.Error("mark run failed", slog.String("run_id", id.String()), slog.String("error", err.Error()))
	}
}
