// Package output provides JSONL artifact logs for migration and
// verification runs.
//
// Output is structured as typed record envelopes containing per-asset
// outcomes, progress updates and run summaries. Each line is a
// self-contained JSON object that can be parsed independently, so a
// failed-asset log can be fed straight back into a follow-up run.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: assetferry.<type>.v<version>
const (
	// TypeMigrated identifies successful transfer records.
	TypeMigrated = "assetferry.migrated.v1"

	// TypeSkipped identifies records for assets skipped by policy.
	TypeSkipped = "assetferry.skipped.v1"

	// TypeFailed identifies per-asset failure records.
	TypeFailed = "assetferry.failed.v1"

	// TypeProgress identifies per-batch progress records.
	TypeProgress = "assetferry.progress.v1"

	// TypeSummary identifies final run summary records.
	TypeSummary = "assetferry.summary.v1"

	// TypeDiscrepancy identifies verification discrepancy records.
	TypeDiscrepancy = "assetferry.discrepancy.v1"

	// TypeVerifySummary identifies verification report summary records.
	TypeVerifySummary = "assetferry.verify_summary.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line of JSONL output contains a Record with a type-specific
// payload in the Data field. The type field determines how to
// interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "assetferry.migrated.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// RunID is the correlation ID for this migration or verification run.
	RunID string `json:"run_id"`

	// Cloud identifies the source catalog account.
	Cloud string `json:"cloud"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// AssetRecord is the per-asset data payload shared by migrated, skipped
// and failed records.
type AssetRecord struct {
	// PublicID is the asset's identifier in the source catalog.
	PublicID string `json:"public_id"`

	// TargetKey is the derived destination object key.
	TargetKey string `json:"target_key"`

	// Bytes is the asset size reported by the catalog.
	Bytes int64 `json:"bytes,omitempty"`

	// Reason explains why the asset was skipped (skipped records only).
	Reason string `json:"reason,omitempty"`

	// Error is the failure message (failed records only).
	Error string `json:"error,omitempty"`
}

// ProgressRecord is the data payload for per-batch progress updates.
type ProgressRecord struct {
	// Batch is the 1-based index of the batch just completed.
	Batch int `json:"batch"`

	// Processed is the total number of assets processed so far.
	Processed int64 `json:"processed"`

	// Migrated, Skipped and Failed are running outcome counts.
	Migrated int64 `json:"migrated"`
	Skipped  int64 `json:"skipped"`
	Failed   int64 `json:"failed"`
}

// SummaryRecord is the data payload for final migration summaries.
type SummaryRecord struct {
	// Total is the number of assets enumerated and processed.
	Total int64 `json:"total"`

	// Migrated, Skipped and Failed are final outcome counts.
	Migrated int64 `json:"migrated"`
	Skipped  int64 `json:"skipped"`
	Failed   int64 `json:"failed"`

	// BytesTransferred is the cumulative size of migrated content.
	BytesTransferred int64 `json:"bytes_transferred"`

	// Duration is the total run duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`

	// Partial indicates the run ended early on an enumeration failure.
	Partial bool `json:"partial,omitempty"`
}

// DiscrepancyRecord is the data payload for verification discrepancies.
type DiscrepancyRecord struct {
	// PublicID is the asset's identifier in the source catalog.
	PublicID string `json:"public_id"`

	// TargetKey is the destination key that was probed.
	TargetKey string `json:"target_key"`

	// Status is "missing" or "size_mismatch".
	Status string `json:"status"`

	// ExpectedBytes is the size reported by the source catalog.
	ExpectedBytes int64 `json:"expected_bytes"`

	// ActualBytes is the size found at the destination (size mismatches only).
	ActualBytes int64 `json:"actual_bytes,omitempty"`
}

// VerifySummaryRecord is the data payload for verification report summaries.
type VerifySummaryRecord struct {
	// Checked is the number of assets compared.
	Checked int64 `json:"checked"`

	// Verified, Missing and SizeMismatched are outcome counts.
	Verified       int64 `json:"verified"`
	Missing        int64 `json:"missing"`
	SizeMismatched int64 `json:"size_mismatched"`

	// SuccessRate is verified/checked as a percentage, two decimals.
	SuccessRate float64 `json:"success_rate"`

	// Duration is the total verification duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
