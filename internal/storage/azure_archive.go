package storage

import (
	"context"
	"fmt"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// Archive keeps a copy of uploads and detection outputs outside the
// working directory.
type Archive interface {
	Put(ctx context.Context, name string, data []byte) error
	Name() string
}

type azureArchive struct {
	client    *azblob.Client
	container string
	prefix    string
}

// NewAzureArchive creates an archive writing block blobs into container.
// Blob names are prefixed with prefix when it is not empty.
func NewAzureArchive(accountName, accountKey, container, prefix string) (Archive, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create azure client: %w", err)
	}

	return &azureArchive{client: client, container: container, prefix: prefix}, nil
}

func (a *azureArchive) Put(ctx context.Context, name string, data []byte) error {
	blobName := name
	if a.prefix != "" {
		blobName = path.Join(a.prefix, name)
	}
	if _, err := a.client.UploadBuffer(ctx, a.container, blobName, data, nil); err != nil {
		return fmt.Errorf("upload %s failed: %w", blobName, err)
	}
	return nil
}

func (a *azureArchive) Name() string {
	return "azure:" + a.container
}

type noopArchive struct{}

// NewNoopArchive returns an archive that discards everything
func NewNoopArchive() Archive {
	return noopArchive{}
}

func (noopArchive) Put(context.Context, string, []byte) error { return nil }

func (noopArchive) Name() string { return "none" }
