package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/maraichr/pipescope/internal/config"
	"github.com/maraichr/pipescope/internal/inventory"
)

// Exporter renders a report into CSV files plus an optional workbook.
type Exporter struct {
	dir      string
	workbook string
	logger   *slog.Logger
}

func NewExporter(cfg config.ReportConfig, logger *slog.Logger) *Exporter {
	return &Exporter{dir: cfg.OutputDir, workbook: cfg.Workbook, logger: logger}
}

// Export writes into the configured output directory.
func (e *Exporter) Export(r *inventory.Report) ([]string, error) {
	return e.ExportTo(e.dir, r)
}

// ExportTo writes every table as CSV into dir, then the workbook if one is
// configured, and returns the written paths.
func (e *Exporter) ExportTo(dir string, r *inventory.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	tables := Tables(r)
	var files []string
	for _, t := range tables {
		p, err := writeCSVFile(dir, t)
		if err != nil {
			return files, err
		}
		files = append(files, p)
	}

	if e.workbook != "" {
		p := filepath.Join(dir, e.workbook)
		if err := WriteWorkbook(p, tables); err != nil {
			return files, err
		}
		files = append(files, p)
	}

	e.logger.Info("report exported", slog.String("dir", dir), slog.Int("files", len(files)))
	return files, nil
}

// Uploader stores one object. Implemented by the MinIO and S3 clients.
type Uploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64) error
}

// Publisher uploads exported files under <prefix>/<run id>/.
type Publisher struct {
	uploader Uploader
	prefix   string
	logger   *slog.Logger
}

func NewPublisher(uploader Uploader, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{uploader: uploader, prefix: prefix, logger: logger}
}

// Publish uploads files and returns their object names.
func (p *Publisher) Publish(ctx context.Context, runID string, files []string) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, file := range files {
		key := path.Join(p.prefix, runID, filepath.Base(file))
		if err := p.upload(ctx, key, file); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	p.logger.Info("report published", slog.String("run_id", runID), slog.Int("objects", len(keys)))
	return keys, nil
}

func (p *Publisher) upload(ctx context.Context, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", file, err)
	}
	if err := p.uploader.UploadFile(ctx, key, f, info.Size()); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
