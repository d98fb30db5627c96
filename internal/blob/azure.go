package blob

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/dvloznov/finance-health/internal/azure"
	"github.com/dvloznov/finance-health/internal/logger"
)

// Azure stores blobs in one Azure Blob Storage container.
type Azure struct {
	client    *azblob.Client
	container string
}

// NewAzure connects to serviceURL. Plain http URLs are treated as Azurite and
// use the emulator's shared key; anything else uses the default credential chain.
func NewAzure(ctx context.Context, serviceURL, container string) (*Azure, error) {
	log := logger.FromContext(ctx)
	if serviceURL == "" {
		return nil, fmt.Errorf("blob service url is required")
	}

	var client *azblob.Client
	if azure.IsLocal(serviceURL) {
		log.Info().Str("blob_url", serviceURL).Msg("using Azurite shared key credentials for blob store")
		cred, err := azblob.NewSharedKeyCredential(azure.AzuriteAccountName, azure.AzuriteAccountKey)
		if err != nil {
			return nil, fmt.Errorf("create shared key credential: %w", err)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create blob client with shared key: %w", err)
		}
	} else {
		cred, err := azure.DefaultCredential()
		if err != nil {
			return nil, fmt.Errorf("create default azure credential: %w", err)
		}
		client, err = azblob.NewClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create blob client: %w", err)
		}
	}

	if _, err := client.CreateContainer(ctx, container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		log.Warn().Err(err).Str("container", container).Msg("failed to create container")
	}
	return &Azure{client: client, container: container}, nil
}

func (s *Azure) Put(ctx context.Context, key string, data []byte) error {
	k, err := cleanKey(key)
	if err != nil {
		return fmt.Errorf("Azure.Put: %w", err)
	}
	if _, err := s.client.UploadBuffer(ctx, s.container, k, data, nil); err != nil {
		return fmt.Errorf("Azure.Put: upload %s/%s: %w", s.container, k, err)
	}
	return nil
}

func (s *Azure) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, fmt.Errorf("Azure.Get: %w", err)
	}
	resp, err := s.client.DownloadStream(ctx, s.container, k, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Azure.Get: download %s/%s: %w", s.container, k, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Azure.Get: read %s/%s: %w", s.container, k, err)
	}
	return data, nil
}

func (s *Azure) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("Azure.List: %w", err)
		}
		for _, item := range resp.Segment.BlobItems {
			if item.Name != nil {
				keys = append(keys, *item.Name)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Azure) Delete(ctx context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return fmt.Errorf("Azure.Delete: %w", err)
	}
	if _, err := s.client.DeleteBlob(ctx, s.container, k, nil); err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("Azure.Delete: %s/%s: %w", s.container, k, err)
	}
	return nil
}

func (s *Azure) Close() error { return nil }
