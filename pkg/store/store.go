// Package store defines abstractions for the destination object store.
//
// Stores implement a minimal surface area focused on metadata probes and
// object writes. Authentication uses SDK default credential chains -
// stores should not implement custom auth logic.
package store

import (
	"context"
	"io"
	"time"
)

// Store abstracts destination object storage.
//
// Implementations should:
//   - Use SDK default credential chains
//   - Return ErrNotFound from Head for absent keys
//   - Be safe for concurrent use
type Store interface {
	// Head returns metadata for a single object.
	// Returns ErrNotFound if the object does not exist.
	Head(ctx context.Context, key string) (*ObjectMeta, error)

	// Put creates or overwrites the object at in.Key.
	Put(ctx context.Context, in PutInput) error

	// Close releases any resources held by the store.
	Close() error
}

// ObjectMeta contains metadata for a single stored object.
// Returned by Head operations.
type ObjectMeta struct {
	// Key is the full object key in the bucket.
	Key string

	// Size is the object size in bytes.
	Size int64

	// ETag is the entity tag, typically an MD5 hash of the object.
	ETag string

	// ContentType is the MIME type of the object.
	ContentType string

	// LastModified is when the object was last written.
	LastModified time.Time

	// Metadata contains user-defined metadata key-value pairs.
	Metadata map[string]string
}

// PutInput describes one object write.
type PutInput struct {
	// Key is the destination object key.
	Key string

	// Body is the object content. Implementations may require it to be
	// an io.ReadSeeker for SDK-level retries; the engine stages content
	// to a local file first, which satisfies that.
	Body io.Reader

	// ContentLength is the exact body length in bytes.
	ContentLength int64

	// ContentType is the MIME type to record on the object.
	ContentType string

	// Metadata is attached to the object as user-defined metadata.
	Metadata map[string]string
}
