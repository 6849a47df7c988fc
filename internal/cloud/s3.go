package cloud

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// S3Backend uploads to AWS S3 and S3-compatible services (MinIO, B2).
type S3Backend struct {
	uploader *manager.Uploader
	bucket   string
	provider string
}

// NewS3Backend creates a new S3 backend
func NewS3Backend(ctx context.Context, cfg *Config) (*S3Backend, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(regionOrDefault(cfg.Region))}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	// Otherwise the default chain applies (environment, shared config, IAM role).
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &S3Backend{
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		provider: cfg.Provider,
	}, nil
}

func (s *S3Backend) Name() string {
	return s.provider
}

// Put streams r through the multipart upload manager, which switches to
// multipart uploads for large bodies on its own.
func (s *S3Backend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.Wrapf(err, "uploading s3://%s/%s", s.bucket, key)
	}
	return nil
}

// regionOrDefault lets S3-compatible endpoints work without a region.
func regionOrDefault(region string) string {
	if region == "" {
		return "us-east-1"
	}
	return region
}
