package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Writer outputs JSONL records for migration and verification runs.
//
// Implementations must be safe for concurrent use from multiple
// goroutines. Each Write* method emits a complete record as a
// single line of JSON followed by a newline.
type Writer interface {
	// WriteMigrated emits a record for a successfully transferred asset.
	WriteMigrated(ctx context.Context, rec *AssetRecord) error

	// WriteSkipped emits a record for an asset skipped by policy.
	WriteSkipped(ctx context.Context, rec *AssetRecord) error

	// WriteFailed emits a record for an asset that failed to transfer.
	WriteFailed(ctx context.Context, rec *AssetRecord) error

	// WriteProgress emits a per-batch progress record.
	WriteProgress(ctx context.Context, prog *ProgressRecord) error

	// WriteSummary emits the final run summary record.
	WriteSummary(ctx context.Context, sum *SummaryRecord) error

	// WriteDiscrepancy emits a verification discrepancy record.
	WriteDiscrepancy(ctx context.Context, disc *DiscrepancyRecord) error

	// WriteVerifySummary emits the verification report summary record.
	WriteVerifySummary(ctx context.Context, sum *VerifySummaryRecord) error

	// Close flushes any buffered output and releases resources.
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON to an io.Writer.
//
// JSONLWriter is safe for concurrent use. Writes are serialized using
// a mutex to ensure atomic line writes (no interleaved output).
type JSONLWriter struct {
	w     io.Writer
	runID string
	cloud string
	mu    sync.Mutex

	// closed indicates the writer has been closed.
	closed bool
}

// NewJSONLWriter creates a new JSONL writer.
//
// Parameters:
//   - w: The underlying writer (stdout, file, etc.)
//   - runID: Correlation ID for this run
//   - cloud: Source catalog account identifier
func NewJSONLWriter(w io.Writer, runID, cloud string) *JSONLWriter {
	return &JSONLWriter{
		w:     w,
		runID: runID,
		cloud: cloud,
	}
}

// WriteMigrated emits a record for a successfully transferred asset.
func (jw *JSONLWriter) WriteMigrated(ctx context.Context, rec *AssetRecord) error {
	return jw.writeRecord(ctx, TypeMigrated, rec)
}

// WriteSkipped emits a record for an asset skipped by policy.
func (jw *JSONLWriter) WriteSkipped(ctx context.Context, rec *AssetRecord) error {
	return jw.writeRecord(ctx, TypeSkipped, rec)
}

// WriteFailed emits a record for an asset that failed to transfer.
func (jw *JSONLWriter) WriteFailed(ctx context.Context, rec *AssetRecord) error {
	return jw.writeRecord(ctx, TypeFailed, rec)
}

// WriteProgress emits a per-batch progress record.
func (jw *JSONLWriter) WriteProgress(ctx context.Context, prog *ProgressRecord) error {
	return jw.writeRecord(ctx, TypeProgress, prog)
}

// WriteSummary emits the final run summary record.
func (jw *JSONLWriter) WriteSummary(ctx context.Context, sum *SummaryRecord) error {
	return jw.writeRecord(ctx, TypeSummary, sum)
}

// WriteDiscrepancy emits a verification discrepancy record.
func (jw *JSONLWriter) WriteDiscrepancy(ctx context.Context, disc *DiscrepancyRecord) error {
	return jw.writeRecord(ctx, TypeDiscrepancy, disc)
}

// WriteVerifySummary emits the verification report summary record.
func (jw *JSONLWriter) WriteVerifySummary(ctx context.Context, sum *VerifySummaryRecord) error {
	return jw.writeRecord(ctx, TypeVerifySummary, sum)
}

// Close marks the writer as closed.
//
// If the underlying writer implements io.Closer, it is NOT closed.
// The caller is responsible for closing the underlying writer.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	jw.closed = true
	return nil
}

// writeRecord marshals data and writes a complete record line.
//
// This method holds the mutex for the entire write to ensure atomic
// line output. The record is written as a single line of JSON followed
// by a newline character.
func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	// Check context cancellation before acquiring lock
	if err := ctx.Err(); err != nil {
		return err
	}

	// Marshal the data payload first (outside the lock for better concurrency)
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrWriterClosed
	}

	// Check context again after acquiring lock
	if err := ctx.Err(); err != nil {
		return err
	}

	record := Record{
		Type:  recordType,
		TS:    time.Now().UTC(),
		RunID: jw.runID,
		Cloud: jw.cloud,
		Data:  dataBytes,
	}

	recordBytes, err := json.Marshal(record)
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	// Write the record followed by newline.
	// We must handle short writes: io.Writer is allowed to return n < len(p)
	// with nil error, which would silently truncate JSONL lines and corrupt output.
	recordBytes = append(recordBytes, '\n')
	if err := writeAll(jw.w, recordBytes); err != nil {
		return &WriteError{Op: "write", Err: err}
	}

	return nil
}

// writeAll writes all bytes to w, handling short writes.
//
// io.Writer.Write may return n < len(p) with a nil error (short write).
// This function loops until all bytes are written or an error occurs,
// ensuring complete JSONL lines are emitted.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			// No progress made - avoid infinite loop
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

// Compile-time check that JSONLWriter implements Writer.
var _ Writer = (*JSONLWriter)(nil)
