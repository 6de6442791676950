package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotExist is returned by Get when no object lives under the requested key.
// Implementations wrap their backend-specific miss into this error.
var ErrNotExist = errors.New("storage: object does not exist")

// PutObjectOptions define optional parameters for storing objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and
// the implementation will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Storage is the backend holding document bytes. Keys use forward slashes;
// a key prefix ending in "/" addresses a page directory. Implementations must
// be safe for concurrent use; the service relies on documents being written
// once at creation and never modified, so no locking is done above this layer.
type Storage interface {
	// Put stores an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	// Returns an error wrapping ErrNotExist when the key is absent.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns the objects directly under prefix in ascending key order.
	// An absent prefix yields an empty slice, not an error.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// RemoveAll deletes every object under prefix. Used to discard a
	// partially-populated page directory after a failed extraction.
	RemoveAll(ctx context.Context, prefix string) error
}
