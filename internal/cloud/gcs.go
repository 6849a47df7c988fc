package cloud

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// GCSBackend uploads objects to Google Cloud Storage.
type GCSBackend struct {
	client     *storage.Client
	bucketName string
}

// NewGCSBackend creates a new Google Cloud Storage backend. AccessKey, when
// set, is a service account JSON key file; otherwise Application Default
// Credentials apply. A custom endpoint targets an emulator without auth.
func NewGCSBackend(ctx context.Context, cfg *Config) (*GCSBackend, error) {
	var opts []option.ClientOption
	switch {
	case cfg.Endpoint != "":
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	case cfg.AccessKey != "":
		opts = append(opts, option.WithCredentialsFile(cfg.AccessKey))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating GCS client")
	}
	return &GCSBackend{client: client, bucketName: cfg.Bucket}, nil
}

func (g *GCSBackend) Name() string {
	return "gcs"
}

func (g *GCSBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	w := g.client.Bucket(g.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return errors.Wrapf(err, "uploading gs://%s/%s", g.bucketName, key)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "finishing gs://%s/%s", g.bucketName, key)
	}
	return nil
}
