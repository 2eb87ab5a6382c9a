// Package storage declares the blob store the ingestion pipeline hands
// uploaded bytes to. The minio subpackage is the S3-compatible implementation.
package storage

import (
	"context"
	"io"
)

// Object is one blob to be written.
//
// Size is the declared byte length, or -1 when unknown. Body is consumed
// exactly once.
type Object struct {
	Folder      string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// BlobStore writes binary objects and returns a stable, publicly fetchable
// URL for each. Failures are transient and wrap apperror.ErrUnavailable.
//
// There is no delete: images removed from the catalogue keep their blobs.
type BlobStore interface {
	Put(ctx context.Context, obj Object) (string, error)
}
