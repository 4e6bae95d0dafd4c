// Package catalog defines abstractions for enumerating a remote media
// asset catalog.
//
// Sources implement a minimal surface area focused on cursor-paginated
// listing and direct batched lookup. Authentication is the source
// implementation's concern - callers only see descriptors and cursors.
package catalog

import (
	"context"
	"time"
)

// Source abstracts a remote asset catalog.
//
// Implementations should:
//   - Support pagination via opaque cursor tokens
//   - Be safe for concurrent use
//   - Return descriptors with tags and context populated
type Source interface {
	// ListPage returns one page of asset descriptors.
	// Use Cursor from ListResult for subsequent pages.
	ListPage(ctx context.Context, opts ListOptions) (*ListResult, error)

	// GetByIDs returns descriptors for an explicit set of public IDs.
	// The caller is responsible for chunking to MaxLookupIDs per call.
	GetByIDs(ctx context.Context, ids []string, filters Filters) ([]AssetDescriptor, error)

	// Close releases any resources held by the source.
	Close() error
}

// MaxPageSize is the hard cap on page size imposed by the catalog API.
const MaxPageSize = 500

// MaxLookupIDs is the maximum number of public IDs per direct lookup call.
const MaxLookupIDs = 100

// ListOptions configures a ListPage operation.
type ListOptions struct {
	// Filters narrow the enumeration.
	Filters Filters

	// Cursor resumes listing from a previous ListResult.
	// Empty string starts from the beginning.
	Cursor string

	// PageSize limits the number of descriptors returned per page.
	// Zero uses MaxPageSize. Values above MaxPageSize are clamped.
	PageSize int
}

// ListResult contains one page of descriptors from a ListPage operation.
type ListResult struct {
	// Assets contains the descriptors for this page.
	Assets []AssetDescriptor

	// Cursor is used to retrieve the next page.
	// Empty string indicates no more pages.
	Cursor string
}

// Filters narrow catalog enumeration.
//
// When PublicIDs is non-empty, enumeration short-circuits to direct
// batched lookups and the cursor-pagination fields are ignored.
type Filters struct {
	// ResourceType selects the asset category: "image", "video" or "raw".
	ResourceType string

	// DeliveryType selects the delivery/visibility class (e.g. "upload").
	DeliveryType string

	// Prefix restricts enumeration to public IDs starting with this value.
	Prefix string

	// StartAt restricts enumeration to assets created at or after this time.
	StartAt time.Time

	// PublicIDs is an explicit identifier list for targeted re-runs.
	PublicIDs []string
}

// AssetDescriptor describes one asset as reported by the source catalog.
//
// Descriptors are immutable once fetched: the engine never mutates them,
// it only derives target keys and destination metadata from them.
type AssetDescriptor struct {
	// PublicID is the asset's unique identifier within the source.
	PublicID string `json:"public_id"`

	// Format is the file format/extension (e.g. "jpg", "mp4").
	Format string `json:"format"`

	// Bytes is the asset size in bytes as reported by the catalog.
	Bytes int64 `json:"bytes"`

	// Width and Height are pixel dimensions, zero for non-visual assets.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// CreatedAt is when the asset was created in the source.
	CreatedAt time.Time `json:"created_at"`

	// Folder is the grouping path within the source, if any.
	Folder string `json:"folder,omitempty"`

	// Tags are the labels attached to the asset.
	Tags []string `json:"tags,omitempty"`

	// Context holds free-form key-value metadata attached to the asset.
	Context map[string]string `json:"context,omitempty"`

	// DeliveryURL is the URL the asset's content is fetched from.
	DeliveryURL string `json:"delivery_url"`

	// ResourceType is the asset category ("image", "video", "raw").
	ResourceType string `json:"resource_type"`

	// DeliveryType is the delivery/visibility class ("upload", etc).
	DeliveryType string `json:"delivery_type,omitempty"`
}
