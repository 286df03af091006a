package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maraichr/pipescope/internal/inventory"
)

// InventoryStage walks the account and stores the report on the run context.
type InventoryStage struct {
	fetcher inventory.Fetcher
	opts    inventory.EngineOptions
	logger  *slog.Logger
}

func NewInventoryStage(fetcher inventory.Fetcher, opts inventory.EngineOptions, logger *slog.Logger) *InventoryStage {
	return &InventoryStage{fetcher: fetcher, opts: opts, logger: logger}
}

func (s *InventoryStage) Name() string { return "inventory" }

func (s *InventoryStage) Execute(ctx context.Context, rc *RunContext) error {
	opts := s.opts
	if rc.OnlyPipeline != "" {
		opts.OnlyPipeline = rc.OnlyPipeline
	}
	report, err := inventory.NewEngine(s.fetcher, opts, s.logger).Run(ctx)
	if err != nil {
		return fmt.Errorf("run inventory: %w", err)
	}
	rc.Report = report
	return nil
}
