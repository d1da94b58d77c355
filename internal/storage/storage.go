package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

// Blob describes an object after upload.
type Blob struct {
	Key  string
	URL  string
	Size int64
}

// Storage is a single-bucket blob store. Uploading to an existing key
// overwrites it.
type Storage interface {
	Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) (*Blob, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
