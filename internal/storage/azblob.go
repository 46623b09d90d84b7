package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// Azure credential modes.
const (
	AzureCredentialDefault = "default"
	AzureCredentialNone    = "none"
)

// AzureOptions configures a Blob Storage container.
type AzureOptions struct {
	// AccountURL is the service URL, e.g. https://acct.blob.core.windows.net.
	// With credential "none" it may carry a SAS query string.
	AccountURL string `mapstructure:"account_url"`
	Container  string `mapstructure:"container"`
	// Credential is "default" (azidentity.DefaultAzureCredential) or "none".
	Credential string `mapstructure:"credential"`
	// ConnectionString takes precedence over AccountURL and Credential.
	ConnectionString string `mapstructure:"connection_string"`
}

// AzureStore stores objects as block blobs in one container.
type AzureStore struct {
	client    *azblob.Client
	container string
	baseURL   string
}

// NewAzureStore creates a client for opts.
func NewAzureStore(opts AzureOptions) (*AzureStore, error) {
	if opts.Container == "" {
		return nil, errors.New("storage: azure container is required")
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case opts.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(opts.ConnectionString, nil)
	case opts.AccountURL == "":
		return nil, errors.New("storage: azure account_url or connection_string is required")
	case opts.Credential == AzureCredentialNone:
		client, err = azblob.NewClientWithNoCredential(opts.AccountURL, nil)
	case opts.Credential == "" || opts.Credential == AzureCredentialDefault:
		var cred *azidentity.DefaultAzureCredential
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("storage: azure credential: %w", err)
		}
		client, err = azblob.NewClient(opts.AccountURL, cred, nil)
	default:
		return nil, fmt.Errorf("storage: unknown azure credential %q", opts.Credential)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: azure client: %w", err)
	}

	base := client.URL()
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	return &AzureStore{
		client:    client,
		container: opts.Container,
		baseURL:   strings.TrimSuffix(base, "/"),
	}, nil
}

// Upload streams r into a block blob with If-None-Match: *.
func (s *AzureStore) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	_, err := s.client.UploadStream(ctx, s.container, key, r, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType(key))},
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
		},
	})
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
			return "", fmt.Errorf("%w: %s", ErrAlreadyExists, s.URI(key))
		}
		return "", uploadFailed(key, err)
	}
	return s.URI(key), nil
}

// Exists reads the blob's properties.
func (s *AzureStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	_, err := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(key).GetProperties(ctx, nil)
	if err == nil {
		return true, nil
	}
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return false, nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == 404 {
		return false, nil
	}
	return false, fmt.Errorf("storage: get properties %s: %w", key, err)
}

// List pages through the container's flat listing.
func (s *AzureStore) List(ctx context.Context, prefix string) ([]string, error) {
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix: to.Ptr(prefix),
	})

	var keys []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", prefix, err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				keys = append(keys, *item.Name)
			}
		}
	}
	return keys, nil
}

// URI returns the blob's https URL without any SAS token.
func (s *AzureStore) URI(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.container, key)
}

// Close releases resources.
func (s *AzureStore) Close() error {
	return nil
}
