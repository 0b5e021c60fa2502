// Package files is the object-storage port behind import uploads and message
// attachments. Adapters exist for S3-compatible stores and a local
// directory; callers hold opaque URIs and never touch the backend directly.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned when no object exists at the given URI.
var ErrNotFound = errors.New("stored object not found")

// Info describes a stored object.
type Info struct {
	Size        int64
	ContentType string
}

// Service stores and retrieves opaque objects by URI.
type Service interface {
	// Write stores the content under key and returns its URI.
	Write(ctx context.Context, key string, r io.Reader, contentType string) (string, error)

	// Read opens the object for streaming. The caller closes the reader.
	Read(ctx context.Context, uri string) (io.ReadCloser, error)

	// Exists checks object existence without reading it.
	Exists(ctx context.Context, uri string) (bool, error)

	// Stat returns object metadata.
	Stat(ctx context.Context, uri string) (Info, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, uri string) error

	// DownloadURL returns a URL an external network can fetch the object
	// from, either a public base URL join or a presigned link.
	DownloadURL(ctx context.Context, uri string) (string, error)
}

// parseS3URI splits s3://bucket/key.
func parseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 uri: %s", uri)
	}
	return bucket, key, nil
}
