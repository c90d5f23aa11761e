package storage

import (
	"context"
	"errors"
	"io"
)

// DefaultContentType is served when an object carries no content type.
const DefaultContentType = "application/octet-stream"

// ErrObjectNotFound is returned when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// PutOptions describes upload options for object storage.
type PutOptions struct {
	ContentType string
}

// ObjectInfo is the metadata returned alongside object content.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Store abstracts the object bucket. Keys are full `users/<id>/...` paths.
type Store interface {
	PutObject(ctx context.Context, key string, reader io.Reader, size int64, opts PutOptions) error
	// GetObject returns ErrObjectNotFound for missing keys.
	GetObject(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	RemoveObject(ctx context.Context, key string) error
}
