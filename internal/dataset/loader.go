package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// StdinLocation makes Load read from standard input.
const StdinLocation = "-"

// Loader opens dataset locations: local paths, "-" for stdin, and Azure Blob
// Storage URLs.
type Loader struct {
	newBlobClient func(serviceURL string) (blobDownloader, error)
	stdin         io.Reader
}

// NewLoader returns a Loader using Azure credentials from the environment.
func NewLoader() *Loader {
	return &Loader{
		newBlobClient: newAzureBlobClient,
		stdin:         os.Stdin,
	}
}

// WithStdin makes "-" read from r instead of os.Stdin.
func (l *Loader) WithStdin(r io.Reader) *Loader {
	l.stdin = r
	return l
}

// Load opens location and parses it. With FormatAuto the layout comes from
// the location's extension.
func (l *Loader) Load(ctx context.Context, location string, format Format) (*Table, error) {
	rc, err := l.open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	if format == FormatAuto {
		format = DetectFormat(location)
	}
	slog.Debug("loading dataset", "location", location, "format", format)

	t, err := Parse(rc, format)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", location, err)
	}
	t.Source = location
	slog.Debug("loaded dataset",
		"examinees", t.Dataset.Examinees,
		"items", t.Dataset.Items,
		"responses", len(t.Dataset.Responses))
	return t, nil
}

func (l *Loader) open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch {
	case location == StdinLocation:
		return io.NopCloser(l.stdin), nil
	case IsBlobURL(location):
		return l.openBlob(ctx, location)
	}
	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	return f, nil
}
