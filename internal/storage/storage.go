package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("file not found")

// IFileStore keeps rendered export files.
type IFileStore interface {
	// Save writes body under key and returns the number of bytes stored.
	// A failed Save leaves nothing behind under key.
	Save(ctx context.Context, key string, body io.Reader, contentType string) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// IPresigner is implemented by stores that can hand out direct download links.
type IPresigner interface {
	PresignGet(ctx context.Context, key, fileName string, expires time.Duration) (string, error)
}
