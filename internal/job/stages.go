package job

import (
	"context"

	"github.com/google/uuid"

	"github.com/maraichr/pipescope/internal/inventory"
)

// Stage represents a step of an inventory run.
type Stage interface {
	Name() string
	Execute(ctx context.Context, rc *RunContext) error
}

// RunContext carries state through the pipeline stages.
type RunContext struct {
	RunID        uuid.UUID
	Trigger      string
	OnlyPipeline string

	// Set by inventory stage
	Report *inventory.Report

	// Set by export stage
	Files []string

	// Set by publish stage
	Objects []string
}

// Artifacts are the object names when published, else the local files.
func (rc *RunContext) Artifacts() []string {
	if len(rc.Objects) > 0 {
		return rc.Objects
	}
	return rc.Files
}

// Stages assembles the worker pipeline; publisher and g may be nil.
func Stages(inv *InventoryStage, export *ExportStage, publisher *PublishStage, g *GraphStage) []Stage {
	stages := []Stage{inv, export}
	if publisher != nil {
		stages = append(stages, publisher)
	}
	if g != nil {
		stages = append(stages, g)
	}
	return stages
}
