package migrate

import (
	"strconv"
	"strings"
	"time"

	"github.com/skylarkhq/assetferry/pkg/catalog"
)

// DefaultKeyPrefix is the destination namespace for migrated assets.
//
// The same derivation is used by migration and verification: the key for
// an asset is always prefix + public ID + "." + format, so re-runs and
// verification probes always land on the same object.
const DefaultKeyPrefix = "cloudinary/"

// TargetKey derives the destination object key for an asset.
//
// The derivation is deterministic: identical public ID and format always
// produce the identical key, which is what makes skip-existing re-runs
// idempotent.
func TargetKey(prefix string, a catalog.AssetDescriptor) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if a.Format == "" {
		return prefix + a.PublicID
	}
	return prefix + a.PublicID + "." + a.Format
}

// contentTypes maps file formats to MIME types for destination writes.
var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"avif": "image/avif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"ico":  "image/x-icon",
	"svg":  "image/svg+xml",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"aac":  "audio/aac",
	"flac": "audio/flac",
	"pdf":  "application/pdf",
	"zip":  "application/zip",
	"json": "application/json",
	"csv":  "text/csv",
	"txt":  "text/plain",
}

// GenericContentType is used for formats not present in the table.
const GenericContentType = "application/octet-stream"

// ContentTypeFor returns the MIME type for a format, falling back to a
// generic binary type for unknown formats.
func ContentTypeFor(format string) string {
	if ct, ok := contentTypes[strings.ToLower(format)]; ok {
		return ct
	}
	return GenericContentType
}

// Destination metadata keys derived from the source descriptor.
const (
	metaPublicID     = "source-public-id"
	metaResourceType = "source-resource-type"
	metaCreatedAt    = "source-created-at"
	metaBytes        = "source-bytes"
	metaWidth        = "source-width"
	metaHeight       = "source-height"
	metaTags         = "source-tags"
)

// ContextKeyPrefix namespaces the asset's free-form context entries in
// destination metadata so they can never collide with the derived
// source-* keys, and so the original keys are recoverable by stripping
// the prefix.
const ContextKeyPrefix = "ctx-"

// MetadataFor builds the destination metadata map for an asset.
//
// The mapping is pure: derived source-* entries plus one prefixed entry
// per context key. ContextFromMetadata inverts the context portion.
func MetadataFor(a catalog.AssetDescriptor) map[string]string {
	md := map[string]string{
		metaPublicID:     a.PublicID,
		metaResourceType: a.ResourceType,
		metaBytes:        strconv.FormatInt(a.Bytes, 10),
	}
	if !a.CreatedAt.IsZero() {
		md[metaCreatedAt] = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	if a.Width > 0 && a.Height > 0 {
		md[metaWidth] = strconv.Itoa(a.Width)
		md[metaHeight] = strconv.Itoa(a.Height)
	}
	if len(a.Tags) > 0 {
		md[metaTags] = strings.Join(a.Tags, ",")
	}
	for k, v := range a.Context {
		md[ContextKeyPrefix+k] = v
	}
	return md
}

// ContextFromMetadata recovers the asset's original context map from
// destination metadata by stripping the context key prefix.
func ContextFromMetadata(md map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range md {
		if strings.HasPrefix(k, ContextKeyPrefix) {
			out[strings.TrimPrefix(k, ContextKeyPrefix)] = v
		}
	}
	return out
}
