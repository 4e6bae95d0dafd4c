package migrate

import (
	"time"

	"github.com/skylarkhq/assetferry/pkg/catalog"
)

// Status is the tagged outcome of one transfer worker invocation.
type Status int

const (
	// StatusMigrated means the asset was fetched and persisted.
	StatusMigrated Status = iota

	// StatusSkipped means policy avoided the transfer (e.g. the target
	// key already exists).
	StatusSkipped

	// StatusFailed means the transfer failed; the asset is recorded in
	// the failed list for a targeted follow-up run.
	StatusFailed
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusMigrated:
		return "migrated"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Skip reasons.
const (
	// ReasonAlreadyExists means the target key was present and
	// skip-existing policy was in effect.
	ReasonAlreadyExists = "already_exists"
)

// Outcome is produced exactly once per transfer worker invocation.
type Outcome struct {
	// Asset is the descriptor the worker operated on.
	Asset catalog.AssetDescriptor

	// TargetKey is the derived destination key.
	TargetKey string

	// Status tags the variant; Reason and Error qualify Skipped and
	// Failed respectively.
	Status Status
	Reason string
	Error  string

	// Bytes is the content size actually transferred (migrated only).
	Bytes int64
}

// AssetResult identifies one asset in a summary list.
type AssetResult struct {
	// PublicID is the asset's source identifier. A failed list of these
	// can be replayed as an explicit-ID filter on a follow-up run.
	PublicID string

	// TargetKey is the derived destination key.
	TargetKey string

	// Detail is the skip reason or failure message.
	Detail string
}

// Summary aggregates the outcomes of one migration run.
//
// A Summary is built fresh per run by the orchestrator's aggregator and
// never mutated after the run completes.
type Summary struct {
	// Total is the number of candidate assets processed.
	Total int64

	// Migrated, Skipped and Failed counters always sum to Total.
	Migrated int64
	Skipped  int64
	Failed   int64

	// BytesTransferred is the cumulative size of migrated content.
	BytesTransferred int64

	// SkippedAssets and FailedAssets itemize the non-migrated outcomes.
	SkippedAssets []AssetResult
	FailedAssets  []AssetResult

	// Batches is the number of catalog pages processed.
	Batches int

	// Duration is the total run duration.
	Duration time.Duration

	// Partial indicates enumeration failed before the catalog was
	// exhausted; counts cover what was processed up to that point.
	Partial bool
}

// add folds one worker outcome into the summary. Called only from the
// orchestrator's single aggregation goroutine.
func (s *Summary) add(o Outcome) {
	s.Total++
	switch o.Status {
	case StatusMigrated:
		s.Migrated++
		s.BytesTransferred += o.Bytes
	case StatusSkipped:
		s.Skipped++
		s.SkippedAssets = append(s.SkippedAssets, AssetResult{
			PublicID:  o.Asset.PublicID,
			TargetKey: o.TargetKey,
			Detail:    o.Reason,
		})
	case StatusFailed:
		s.Failed++
		s.FailedAssets = append(s.FailedAssets, AssetResult{
			PublicID:  o.Asset.PublicID,
			TargetKey: o.TargetKey,
			Detail:    o.Error,
		})
	}
}
