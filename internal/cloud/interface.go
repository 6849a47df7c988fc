// Package cloud uploads generated reports to object storage.
package cloud

import (
	"context"
	"io"
	"os"
	"strings"

	"rbkoracle/internal/errs"
)

// Backend stores one object per upload.
type Backend interface {
	// Put writes size bytes from r to key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Name returns the backend name (e.g., "s3", "azure", "gcs")
	Name() string
}

// Config contains common configuration for cloud backends
type Config struct {
	Provider  string // "s3", "minio", "azure", "gs", "b2"
	Bucket    string // Bucket or container name
	Region    string // Region (for S3)
	Endpoint  string // Custom endpoint (for MinIO, S3-compatible, emulators)
	AccessKey string // Access key, account name, or GCS credentials file
	SecretKey string // Secret key or account key
	PathStyle bool   // Use path-style addressing (for MinIO)
}

// Environment variables consulted for credentials the URI cannot carry.
const (
	EnvAccessKey = "RBK_CLOUD_ACCESS_KEY"
	EnvSecretKey = "RBK_CLOUD_SECRET_KEY"
	EnvRegion    = "RBK_CLOUD_REGION"
	EnvEndpoint  = "RBK_CLOUD_ENDPOINT"
)

// FromEnv fills unset credentials and endpoint from the environment.
func (c *Config) FromEnv() {
	if c.AccessKey == "" {
		c.AccessKey = os.Getenv(EnvAccessKey)
	}
	if c.SecretKey == "" {
		c.SecretKey = os.Getenv(EnvSecretKey)
	}
	if c.Region == "" {
		c.Region = os.Getenv(EnvRegion)
	}
	if c.Endpoint == "" {
		c.Endpoint = os.Getenv(EnvEndpoint)
	}
	if c.Provider == "azure" {
		if c.AccessKey == "" {
			c.AccessKey = os.Getenv("AZURE_STORAGE_ACCOUNT")
		}
		if c.SecretKey == "" {
			c.SecretKey = os.Getenv("AZURE_STORAGE_KEY")
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errs.Config("upload destination needs a bucket or container name")
	}
	switch c.Provider {
	case "s3":
		if c.Region == "" && c.Endpoint == "" {
			return errs.Config("region or endpoint is required for S3 (set %s)", EnvRegion)
		}
	case "minio", "b2":
		if c.Endpoint == "" {
			return errs.Config("endpoint is required for %s (set %s or put it in the URI)", c.Provider, EnvEndpoint)
		}
	case "azure":
		if c.AccessKey == "" || c.SecretKey == "" {
			return errs.Config("Azure upload requires an account name and key (AZURE_STORAGE_ACCOUNT, AZURE_STORAGE_KEY)")
		}
	case "gs":
	default:
		return errs.Config("unsupported cloud provider: %s (supported: s3, minio, b2, azure, gs)", c.Provider)
	}
	return nil
}

// NewBackend creates a new cloud storage backend based on the provider
func NewBackend(ctx context.Context, cfg *Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "s3":
		return NewS3Backend(ctx, cfg)
	case "minio":
		cfg.PathStyle = true
		return NewS3Backend(ctx, cfg)
	case "b2":
		return NewS3Backend(ctx, cfg)
	case "azure":
		return NewAzureBackend(cfg)
	case "gs":
		return NewGCSBackend(ctx, cfg)
	}
	return nil, errs.Config("unsupported cloud provider: %s", cfg.Provider)
}

// ContentTypeFor guesses a report content type from its extension.
func ContentTypeFor(key string) string {
	switch {
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	case strings.HasSuffix(key, ".csv"):
		return "text/csv"
	}
	return "text/plain; charset=utf-8"
}
