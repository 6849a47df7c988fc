package cloud

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/pkg/errors"
)

// AzureBackend uploads block blobs to Azure Blob Storage.
type AzureBackend struct {
	client        *azblob.Client
	containerName string
}

// NewAzureBackend creates a new Azure Blob Storage backend. A custom
// endpoint (Azurite) gets the account name appended as its path.
func NewAzureBackend(cfg *Config) (*AzureBackend, error) {
	cred, err := azblob.NewSharedKeyCredential(cfg.AccessKey, cfg.SecretKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating Azure credential")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccessKey)
	if cfg.Endpoint != "" {
		serviceURL = cfg.Endpoint
		if !strings.Contains(serviceURL, cfg.AccessKey) {
			serviceURL = strings.TrimSuffix(serviceURL, "/") + "/" + cfg.AccessKey
		}
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating Azure client")
	}
	return &AzureBackend{client: client, containerName: cfg.Bucket}, nil
}

func (a *AzureBackend) Name() string {
	return "azure"
}

func (a *AzureBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := a.client.UploadStream(ctx, a.containerName, key, r, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
	})
	if err != nil {
		return errors.Wrapf(err, "uploading azure://%s/%s", a.containerName, key)
	}
	return nil
}
