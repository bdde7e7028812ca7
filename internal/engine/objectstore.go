package engine

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Name      string
	Size      int64
	CreatedAt time.Time
}

// ObjectStore provides an interface for opaque blob storage against a
// bucket-style backend. All operations use io.Reader/io.Writer for streaming
// so large artifacts need not be buffered twice. Implementations surface
// failures as *ObjectStoreError.
type ObjectStore interface {
	// Upload stores the bytes read from r at path, replacing any existing
	// object. size is the number of bytes that will be read from r.
	Upload(ctx context.Context, path string, r io.Reader, size int64) error

	// Download retrieves the object at path and writes it to w.
	// Returns an ObjectStoreError with kind ObjectNotFound if absent.
	Download(ctx context.Context, path string, w io.Writer) error

	// List returns objects whose names start with prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Delete removes the object at path. Deleting a missing object is not
	// an error.
	Delete(ctx context.Context, path string) error

	// SignedURL returns a time-limited access URL for the object at path.
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)

	// ValidateSetup verifies that the store is accessible and properly
	// configured.
	ValidateSetup(ctx context.Context) error
}
