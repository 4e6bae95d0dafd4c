// Package migrate implements the migration engine that copies media
// assets from a source catalog to a destination object store.
//
// The engine coordinates three roles:
//   - Enumerator: pulls batches of asset descriptors in cursor order
//   - Workers: run the per-asset transfer pipeline under a concurrency bound
//   - Aggregator: folds worker outcomes into a single run summary
//
// Batches never overlap: the next catalog page is not requested until
// every worker from the current batch has resolved, which bounds peak
// open connections and staging files to the concurrency limit.
package migrate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skylarkhq/assetferry/pkg/catalog"
	"github.com/skylarkhq/assetferry/pkg/match"
	"github.com/skylarkhq/assetferry/pkg/output"
	"github.com/skylarkhq/assetferry/pkg/store"
)

// Enumerator pulls successive batches of descriptors. A nil batch with
// nil error terminates the sequence. Satisfied by *catalog.Enumerator.
type Enumerator interface {
	Next(ctx context.Context) ([]catalog.AssetDescriptor, error)
}

// Config configures migration behavior.
type Config struct {
	// Concurrency bounds in-flight transfer workers per batch.
	// Default: 10
	Concurrency int

	// KeyPrefix is the destination namespace for target keys.
	// Default: DefaultKeyPrefix
	KeyPrefix string

	// Policy controls skip/overwrite behavior.
	Policy Policy

	// EmitProgress enables per-batch progress records.
	// Default: true
	EmitProgress bool
}

// DefaultConfig returns the default migration configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:  10,
		KeyPrefix:    DefaultKeyPrefix,
		Policy:       Policy{SkipExisting: true},
		EmitProgress: true,
	}
}

// Migrator executes one migration run.
//
// Migrator is safe for single use only. Create a new Migrator for each run.
type Migrator struct {
	enum    Enumerator
	store   store.Store
	fetcher ContentFetcher
	matcher *match.Matcher
	writer  output.Writer
	logger  *zap.Logger
	cfg     Config
}

// New creates a new Migrator.
//
// matcher may be nil (every enumerated asset is a candidate). Use
// WithLogger to attach a logger; the default discards engine warnings.
func New(enum Enumerator, st store.Store, fetcher ContentFetcher, matcher *match.Matcher, writer output.Writer, cfg Config) *Migrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}

	return &Migrator{
		enum:    enum,
		store:   st,
		fetcher: fetcher,
		matcher: matcher,
		writer:  writer,
		logger:  zap.NewNop(),
		cfg:     cfg,
	}
}

// WithLogger sets the logger used for engine warnings.
// Returns the migrator for method chaining.
func (m *Migrator) WithLogger(l *zap.Logger) *Migrator {
	if l != nil {
		m.logger = l
	}
	return m
}

// Run drives the migration until the catalog is exhausted, the context
// is cancelled, or enumeration fails.
//
// Per-asset failures never abort the run; they are counted, itemized in
// the summary and written to the failed-asset artifact log. Only an
// enumeration failure ends the run early, and even then the summary
// covers everything processed up to that point.
func (m *Migrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	sum := &Summary{}

	w := &worker{
		store:     m.store,
		fetcher:   m.fetcher,
		keyPrefix: m.cfg.KeyPrefix,
		policy:    m.cfg.Policy,
		logger:    m.logger,
	}

	for {
		if err := ctx.Err(); err != nil {
			sum.Partial = true
			m.finalize(sum, start)
			return sum, err
		}

		batch, err := m.enum.Next(ctx)
		if err != nil {
			// Enumeration failures are fatal to the run: summarize what
			// was processed so far instead of retrying a flaky upstream.
			sum.Partial = true
			m.finalize(sum, start)
			return sum, err
		}
		if batch == nil {
			break
		}

		candidates := m.filter(batch)
		if len(candidates) == 0 {
			continue
		}

		sum.Batches++
		m.runBatch(ctx, w, candidates, sum)

		if m.cfg.EmitProgress {
			_ = m.writer.WriteProgress(ctx, &output.ProgressRecord{
				Batch:     sum.Batches,
				Processed: sum.Total,
				Migrated:  sum.Migrated,
				Skipped:   sum.Skipped,
				Failed:    sum.Failed,
			})
		}
	}

	m.finalize(sum, start)
	return sum, nil
}

// filter applies the optional public-ID matcher to a batch.
func (m *Migrator) filter(batch []catalog.AssetDescriptor) []catalog.AssetDescriptor {
	if m.matcher == nil || m.matcher.Empty() {
		return batch
	}
	out := batch[:0:0]
	for _, a := range batch {
		if m.matcher.Match(a.PublicID) {
			out = append(out, a)
		}
	}
	return out
}

// runBatch schedules one batch through the bounded worker pool and
// aggregates every outcome before returning.
//
// All submissions are made up front; capacity admits new work as
// workers free up. The batch resolves only when every submitted asset
// has produced an outcome, so partial-batch success is tolerated, never
// escalated.
func (m *Migrator) runBatch(ctx context.Context, w *worker, batch []catalog.AssetDescriptor, sum *Summary) {
	workCh := make(chan catalog.AssetDescriptor)
	resultCh := make(chan Outcome)

	workers := m.cfg.Concurrency
	if workers > len(batch) {
		workers = len(batch)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range workCh {
				resultCh <- w.transfer(ctx, a)
			}
		}()
	}

	go func() {
		defer close(workCh)
		for _, a := range batch {
			workCh <- a
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Single aggregator: outcomes arrive in completion order and are
	// folded commutatively into counts and lists.
	for o := range resultCh {
		sum.add(o)
		m.writeOutcome(ctx, o)
	}
}

// writeOutcome emits the per-asset artifact record. Best effort: a
// failing artifact write must not fail the transfer it describes.
func (m *Migrator) writeOutcome(ctx context.Context, o Outcome) {
	rec := &output.AssetRecord{
		PublicID:  o.Asset.PublicID,
		TargetKey: o.TargetKey,
		Bytes:     o.Bytes,
		Reason:    o.Reason,
		Error:     o.Error,
	}

	var err error
	switch o.Status {
	case StatusMigrated:
		err = m.writer.WriteMigrated(ctx, rec)
	case StatusSkipped:
		err = m.writer.WriteSkipped(ctx, rec)
	case StatusFailed:
		err = m.writer.WriteFailed(ctx, rec)
	}
	if err != nil {
		m.logger.Warn("Failed to write outcome record",
			zap.String("public_id", o.Asset.PublicID),
			zap.Error(err))
	}
}

// finalize stamps the duration and writes the summary record. The
// summary is always emitted, even when the run ended early.
func (m *Migrator) finalize(sum *Summary, start time.Time) {
	sum.Duration = time.Since(start)

	// Use a background context: the summary must flush even when the
	// run context is already cancelled.
	_ = m.writer.WriteSummary(context.Background(), &output.SummaryRecord{
		Total:            sum.Total,
		Migrated:         sum.Migrated,
		Skipped:          sum.Skipped,
		Failed:           sum.Failed,
		BytesTransferred: sum.BytesTransferred,
		Duration:         sum.Duration,
		DurationHuman:    sum.Duration.Round(time.Millisecond).String(),
		Partial:          sum.Partial,
	})
}
