package job

import (
	"context"
	"path/filepath"

	"github.com/maraichr/pipescope/internal/report"
)

// ExportStage writes the report files into <dir>/<run id>.
type ExportStage struct {
	exporter *report.Exporter
	dir      string
}

func NewExportStage(exporter *report.Exporter, dir string) *ExportStage {
	return &ExportStage{exporter: exporter, dir: dir}
}

func (s *ExportStage) Name() string { return "export" }

func (s *ExportStage) Execute(_ context.Context, rc *RunContext) error {
	files, err := s.exporter.ExportTo(filepath.Join(s.dir, rc.RunID.String()), rc.Report)
	if err != nil {
		return err
	}
	rc.Files = files
	return nil
}

// PublishStage uploads the exported files to object storage.
type PublishStage struct {
	publisher *report.Publisher
}

func NewPublishStage(publisher *report.Publisher) *PublishStage {
	return &PublishStage{publisher: publisher}
}

func (s *PublishStage) Name() string { return "publish" }

func (s *PublishStage) Execute(ctx context.Context, rc *RunContext) error {
	objects, err := s.publisher.Publish(ctx, rc.RunID.String(), rc.Files)
	if err != nil {
		return err
	}
	rc.Objects = objects
	return nil
}
