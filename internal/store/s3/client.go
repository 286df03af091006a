package s3

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/maraichr/pipescope/internal/config"
	"github.com/maraichr/pipescope/internal/store/minio"
)

// Client uploads reports to an S3-compatible bucket. Works with both AWS S3 and MinIO.
type Client struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewClient(ctx context.Context, cfg appconfig.S3Config) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			o.UsePathStyle = true
		}
	})

	return &Client{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// UploadFile stores reader under the configured prefix.
func (c *Client) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64) error {
	key := c.Key(objectName)
	contentType := minio.ContentType(objectName)
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &c.bucket,
		Key:           &key,
		Body:          reader,
		ContentLength: &size,
		ContentType:   &contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Key applies the bucket prefix to objectName.
func (c *Client) Key(objectName string) string {
	if c.prefix == "" {
		return objectName
	}
	return path.Join(c.prefix, objectName)
}
