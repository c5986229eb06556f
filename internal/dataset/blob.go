package dataset

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

//go:generate go tool mockgen -source=blob.go -destination=mock_blob_test.go -package=dataset

// blobHostSuffix identifies Azure Blob Storage URLs.
const blobHostSuffix = ".blob.core.windows.net"

// blobDownloader is just an interface over [*azblob.Client]
type blobDownloader interface {
	// DownloadStream maps to [azblob.Client.DownloadStream]
	DownloadStream(ctx context.Context, containerName string, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
}

// IsBlobURL reports whether location is an https Azure Blob Storage URL.
func IsBlobURL(location string) bool {
	u, err := url.Parse(location)
	return err == nil && u.Scheme == "https" && strings.HasSuffix(u.Hostname(), blobHostSuffix)
}

// blobLocation is a blob URL split into the parts the client needs.
type blobLocation struct {
	// serviceURL is the account endpoint, carrying the SAS query if any.
	serviceURL string
	container  string
	blob       string
}

func parseBlobURL(location string) (blobLocation, error) {
	u, err := url.Parse(location)
	if err != nil {
		return blobLocation{}, fmt.Errorf("blob: %w", err)
	}
	container, blob, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if container == "" || blob == "" {
		return blobLocation{}, fmt.Errorf("blob: %q has no container/blob path", location)
	}
	svc := u.Scheme + "://" + u.Host + "/"
	if u.RawQuery != "" {
		svc += "?" + u.RawQuery
	}
	return blobLocation{serviceURL: svc, container: container, blob: blob}, nil
}

// newAzureBlobClient authenticates with DefaultAzureCredential unless the
// service URL carries a SAS token.
func newAzureBlobClient(serviceURL string) (blobDownloader, error) {
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: 3},
		},
	}
	if strings.Contains(serviceURL, "?") {
		client, err := azblob.NewClientWithNoCredential(serviceURL, opts)
		if err != nil {
			return nil, fmt.Errorf("blob: creating client: %w", err)
		}
		return client, nil
	}

	var cred azcore.TokenCredential
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("blob: acquiring credential: %w", err)
	}
	client, err := azblob.NewClient(serviceURL, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("blob: creating client: %w", err)
	}
	return client, nil
}

func (l *Loader) openBlob(ctx context.Context, location string) (io.ReadCloser, error) {
	loc, err := parseBlobURL(location)
	if err != nil {
		return nil, err
	}
	client, err := l.newBlobClient(loc.serviceURL)
	if err != nil {
		return nil, err
	}
	resp, err := client.DownloadStream(ctx, loc.container, loc.blob, nil)
	if err != nil {
		return nil, fmt.Errorf("blob: downloading %s/%s: %w", loc.container, loc.blob, err)
	}
	return resp.Body, nil
}
