// Package manifest provides loading and validation of assetferry job
// manifests.
//
// A job manifest is a YAML or JSON file that configures all aspects of
// a migration run: source catalog, destination bucket, candidate
// filtering, transfer behavior, and output.
//
// Manifests are validated against a JSON Schema to ensure correctness
// before execution. The schema enforces strict typing and disallows
// unknown properties. Credentials never live in the manifest; they are
// resolved from the environment at run time.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	source:
//	  cloud_name: demo-cloud
//	target:
//	  bucket: media-archive
//	  region: us-east-1
//	filters:
//	  prefix: "events/"
//	match:
//	  excludes:
//	    - "**/drafts/**"
//	migration:
//	  concurrency: 10
//	  skip_existing: true
//	output:
//	  destination: "file:./migration.jsonl"
package manifest

// Manifest represents a validated migration job manifest.
//
// Required fields are Version, Source, and Target. The remaining
// sections are optional with sensible defaults.
type Manifest struct {
	// Schema is an optional JSON Schema reference for editor support.
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Source configures the asset catalog to migrate from.
	Source SourceConfig `json:"source" yaml:"source"`

	// Target configures the destination object store.
	Target TargetConfig `json:"target" yaml:"target"`

	// Filters narrows enumeration server-side (optional).
	Filters FiltersConfig `json:"filters,omitempty" yaml:"filters,omitempty"`

	// Match narrows candidates client-side by glob patterns (optional).
	Match MatchConfig `json:"match,omitempty" yaml:"match,omitempty"`

	// Migration configures transfer behavior (optional).
	Migration MigrationConfig `json:"migration,omitempty" yaml:"migration,omitempty"`

	// Verify configures verification behavior (optional).
	Verify VerifyConfig `json:"verify,omitempty" yaml:"verify,omitempty"`

	// Output configures output destination and format (optional).
	Output OutputConfig `json:"output,omitempty" yaml:"output,omitempty"`
}

// SourceConfig configures the source asset catalog.
//
// API credentials are deliberately absent: they come from the
// CLOUDINARY_URL environment variable or its key/secret split form.
type SourceConfig struct {
	// CloudName is the catalog account to enumerate.
	CloudName string `json:"cloud_name" yaml:"cloud_name"`

	// BaseURL overrides the catalog API endpoint. Optional, for testing
	// against a local stand-in.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// ResourceType selects the asset class to enumerate.
	// Values: "image" | "video" | "raw". Default: "image".
	ResourceType string `json:"resource_type,omitempty" yaml:"resource_type,omitempty"`

	// DeliveryType selects the delivery type to enumerate.
	// Values: "upload" | "private" | "authenticated". Default: "upload".
	DeliveryType string `json:"delivery_type,omitempty" yaml:"delivery_type,omitempty"`
}

// TargetConfig configures the destination object store.
type TargetConfig struct {
	// Bucket is the destination bucket name.
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region (e.g., "us-east-1"). Optional.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint is a custom endpoint URL for S3-compatible storage. Optional.
	// Example: "https://s3.wasabisys.com"
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Profile is the AWS credential profile name. Optional.
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty"`

	// ForcePathStyle enables path-style addressing for S3-compatible
	// endpoints (e.g., MinIO). Optional.
	ForcePathStyle bool `json:"force_path_style,omitempty" yaml:"force_path_style,omitempty"`

	// KeyPrefix is the destination namespace for migrated assets.
	// Default: "cloudinary/".
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

// FiltersConfig narrows catalog enumeration server-side.
// All filters are optional and compose with AND semantics.
type FiltersConfig struct {
	// Prefix restricts enumeration to public IDs under a prefix.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// StartAt restricts enumeration to assets created at or after this
	// time. ISO 8601: "2024-01-15" or "2024-01-15T10:30:00Z".
	StartAt string `json:"start_at,omitempty" yaml:"start_at,omitempty"`

	// PublicIDs switches enumeration to explicit-ID lookup, e.g. to
	// replay the failed list of a previous run.
	PublicIDs []string `json:"public_ids,omitempty" yaml:"public_ids,omitempty"`
}

// MatchConfig narrows candidates client-side by glob patterns.
type MatchConfig struct {
	// Includes is a list of glob patterns public IDs must match (at
	// least one). Optional: empty includes everything.
	Includes []string `json:"includes,omitempty" yaml:"includes,omitempty"`

	// Excludes is a list of glob patterns for public IDs to exclude. Optional.
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`
}

// MigrationConfig configures transfer behavior.
//
// All fields are optional with sensible defaults applied during loading.
type MigrationConfig struct {
	// Concurrency is the number of concurrent transfer workers.
	// Range: 1-64. Default: 10.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`

	// BatchSize is the catalog page size. Range: 1-500. Default: 100.
	BatchSize int `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`

	// SkipExisting avoids re-transferring assets already present at the
	// destination. Default: true.
	SkipExisting *bool `json:"skip_existing,omitempty" yaml:"skip_existing,omitempty"`

	// ForceOverwrite always transfers, bypassing the existence check.
	// Default: false.
	ForceOverwrite bool `json:"force_overwrite,omitempty" yaml:"force_overwrite,omitempty"`

	// RateLimit is the maximum catalog requests per second (0 = unlimited).
	// Default: 0.
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// VerifyConfig configures verification behavior.
type VerifyConfig struct {
	// Sample caps the number of assets checked (0 = whole catalog).
	Sample int64 `json:"sample,omitempty" yaml:"sample,omitempty"`
}

// OutputConfig configures output destination and format.
//
// All fields are optional with sensible defaults applied during loading.
type OutputConfig struct {
	// Destination is the output target.
	// Values: "stdout" or "file:/path/to/output.jsonl"
	// Default: "stdout".
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`

	// Progress enables per-batch progress record emission.
	// Default: true.
	Progress *bool `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// Default values for optional configuration fields.
const (
	// DefaultVersion is the current manifest schema version.
	DefaultVersion = "1.0"

	// DefaultResourceType is the default asset class.
	DefaultResourceType = "image"

	// DefaultDeliveryType is the default delivery type.
	DefaultDeliveryType = "upload"

	// DefaultKeyPrefix is the default destination namespace.
	DefaultKeyPrefix = "cloudinary/"

	// DefaultConcurrency is the default number of transfer workers.
	DefaultConcurrency = 10

	// DefaultBatchSize is the default catalog page size.
	DefaultBatchSize = 100

	// DefaultSkipExisting is the default for skip-existing policy.
	DefaultSkipExisting = true

	// DefaultRateLimit is the default rate limit (0 = unlimited).
	DefaultRateLimit = 0.0

	// DefaultDestination is the default output destination.
	DefaultDestination = "stdout"

	// DefaultProgress is the default value for progress emission.
	DefaultProgress = true
)

// ApplyDefaults fills in default values for optional fields.
//
// This should be called after loading and validating the manifest to
// ensure all optional fields have sensible values.
func (m *Manifest) ApplyDefaults() {
	if m.Source.ResourceType == "" {
		m.Source.ResourceType = DefaultResourceType
	}
	if m.Source.DeliveryType == "" {
		m.Source.DeliveryType = DefaultDeliveryType
	}

	if m.Target.KeyPrefix == "" {
		m.Target.KeyPrefix = DefaultKeyPrefix
	}

	if m.Migration.Concurrency == 0 {
		m.Migration.Concurrency = DefaultConcurrency
	}
	if m.Migration.BatchSize == 0 {
		m.Migration.BatchSize = DefaultBatchSize
	}
	if m.Migration.SkipExisting == nil {
		defaultSkip := DefaultSkipExisting
		m.Migration.SkipExisting = &defaultSkip
	}
	// RateLimit: 0 is a valid value (unlimited), so no default needed

	if m.Output.Destination == "" {
		m.Output.Destination = DefaultDestination
	}
	if m.Output.Progress == nil {
		defaultProgress := DefaultProgress
		m.Output.Progress = &defaultProgress
	}
}

// SkipExistingEnabled returns the skip-existing policy, defaulting when
// not set.
func (c *MigrationConfig) SkipExistingEnabled() bool {
	if c.SkipExisting == nil {
		return DefaultSkipExisting
	}
	return *c.SkipExisting
}

// ProgressEnabled returns whether progress records should be emitted.
// Returns the configured value, or DefaultProgress if not set.
func (o *OutputConfig) ProgressEnabled() bool {
	if o.Progress == nil {
		return DefaultProgress
	}
	return *o.Progress
}
