package report

import (
	"context"
	"fmt"

	"github.com/maraichr/pipescope/internal/config"
	minioclient "github.com/maraichr/pipescope/internal/store/minio"
	s3client "github.com/maraichr/pipescope/internal/store/s3"
)

// NewUploader returns the uploader selected by target ("minio" or "s3"), or
// nil when target is empty.
func NewUploader(ctx context.Context, target string, cfg *config.Config) (Uploader, error) {
	switch target {
	case "":
		return nil, nil
	case "minio":
		mc, err := minioclient.NewClient(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		if err := mc.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return mc, nil
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for s3 uploads")
		}
		sc, err := s3client.NewClient(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return sc, nil
	default:
		return nil, fmt.Errorf("unknown upload target %q", target)
	}
}
