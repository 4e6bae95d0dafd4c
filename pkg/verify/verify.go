// Package verify implements post-migration verification.
//
// A verification run re-enumerates the source catalog and probes the
// destination for every asset's canonical target key, comparing
// existence and size. It never writes to the destination and is
// independent of any prior migration run's in-memory state.
package verify

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skylarkhq/assetferry/pkg/catalog"
	"github.com/skylarkhq/assetferry/pkg/match"
	"github.com/skylarkhq/assetferry/pkg/migrate"
	"github.com/skylarkhq/assetferry/pkg/output"
	"github.com/skylarkhq/assetferry/pkg/store"
)

// Enumerator pulls successive batches of descriptors. A nil batch with
// nil error terminates the sequence. Satisfied by *catalog.Enumerator.
type Enumerator interface {
	Next(ctx context.Context) ([]catalog.AssetDescriptor, error)
}

// Discrepancy statuses.
const (
	// StatusMissing means the target key does not exist at the destination.
	StatusMissing = "missing"

	// StatusSizeMismatch means the destination object's size differs from
	// the size reported by the source catalog.
	StatusSizeMismatch = "size_mismatch"
)

// Discrepancy records one asset that failed verification.
type Discrepancy struct {
	// PublicID is the asset's source identifier.
	PublicID string

	// TargetKey is the destination key that was probed.
	TargetKey string

	// Status is StatusMissing or StatusSizeMismatch.
	Status string

	// ExpectedBytes is the size reported by the source catalog.
	ExpectedBytes int64

	// ActualBytes is the destination size (size mismatches only).
	ActualBytes int64
}

// Report aggregates the outcome of one verification run.
type Report struct {
	// Checked is the number of assets compared.
	Checked int64

	// Verified, Missing and SizeMismatched counters sum to Checked.
	Verified       int64
	Missing        int64
	SizeMismatched int64

	// Discrepancies itemizes every asset that failed verification.
	Discrepancies []Discrepancy

	// Duration is the total verification duration.
	Duration time.Duration

	// Partial indicates enumeration failed before the catalog was
	// exhausted.
	Partial bool
}

// SuccessRate returns verified/checked as a percentage rounded to two
// decimals. An empty run verifies vacuously at 100%.
func (r *Report) SuccessRate() float64 {
	if r.Checked == 0 {
		return 100.0
	}
	return math.Round(float64(r.Verified)/float64(r.Checked)*100*100) / 100
}

// Clean reports whether the run found no discrepancies.
func (r *Report) Clean() bool {
	return len(r.Discrepancies) == 0
}

// Config configures verification behavior.
type Config struct {
	// Concurrency bounds in-flight destination probes per batch.
	// Default: 10
	Concurrency int

	// KeyPrefix is the destination namespace, identical to the one used
	// for migration. Default: migrate.DefaultKeyPrefix
	KeyPrefix string

	// SampleLimit caps the number of assets checked. Zero checks the
	// whole catalog.
	SampleLimit int64
}

// DefaultConfig returns the default verification configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: 10,
		KeyPrefix:   migrate.DefaultKeyPrefix,
	}
}

// Verifier executes one verification run.
//
// Verifier is safe for single use only. Create a new Verifier for each run.
type Verifier struct {
	enum    Enumerator
	store   store.Store
	matcher *match.Matcher
	writer  output.Writer
	logger  *zap.Logger
	cfg     Config
}

// New creates a new Verifier.
//
// matcher may be nil (every enumerated asset is checked). writer may be
// nil (no report records are persisted).
func New(enum Enumerator, st store.Store, matcher *match.Matcher, writer output.Writer, cfg Config) *Verifier {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}

	return &Verifier{
		enum:    enum,
		store:   st,
		matcher: matcher,
		writer:  writer,
		logger:  zap.NewNop(),
		cfg:     cfg,
	}
}

// WithLogger sets the logger used for probe warnings.
// Returns the verifier for method chaining.
func (v *Verifier) WithLogger(l *zap.Logger) *Verifier {
	if l != nil {
		v.logger = l
	}
	return v
}

// checkResult pairs one probe outcome with its optional discrepancy.
type checkResult struct {
	status      string
	discrepancy *Discrepancy
}

// Run drives the verification until the catalog is exhausted, the
// sample limit is reached, the context is cancelled, or enumeration
// fails.
//
// Report records are persisted only when at least one discrepancy was
// found; a clean run leaves no artifact behind.
func (v *Verifier) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	rep := &Report{}

	for {
		if err := ctx.Err(); err != nil {
			rep.Partial = true
			v.finalize(rep, start)
			return rep, err
		}
		if v.cfg.SampleLimit > 0 && rep.Checked >= v.cfg.SampleLimit {
			break
		}

		batch, err := v.enum.Next(ctx)
		if err != nil {
			rep.Partial = true
			v.finalize(rep, start)
			return rep, err
		}
		if batch == nil {
			break
		}

		candidates := v.filter(batch)
		if v.cfg.SampleLimit > 0 {
			remaining := v.cfg.SampleLimit - rep.Checked
			if int64(len(candidates)) > remaining {
				candidates = candidates[:remaining]
			}
		}
		if len(candidates) == 0 {
			continue
		}

		v.runBatch(ctx, candidates, rep)
	}

	v.finalize(rep, start)
	return rep, nil
}

// filter applies the optional public-ID matcher to a batch.
func (v *Verifier) filter(batch []catalog.AssetDescriptor) []catalog.AssetDescriptor {
	if v.matcher == nil || v.matcher.Empty() {
		return batch
	}
	out := batch[:0:0]
	for _, a := range batch {
		if v.matcher.Match(a.PublicID) {
			out = append(out, a)
		}
	}
	return out
}

// runBatch probes one batch under the concurrency bound and folds every
// result into the report before returning.
func (v *Verifier) runBatch(ctx context.Context, batch []catalog.AssetDescriptor, rep *Report) {
	workCh := make(chan catalog.AssetDescriptor)
	resultCh := make(chan checkResult)

	workers := v.cfg.Concurrency
	if workers > len(batch) {
		workers = len(batch)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range workCh {
				resultCh <- v.check(ctx, a)
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

	for res := range resultCh {
		rep.Checked++
		switch res.status {
		case StatusMissing:
			rep.Missing++
		case StatusSizeMismatch:
			rep.SizeMismatched++
		default:
			rep.Verified++
		}
		if res.discrepancy != nil {
			rep.Discrepancies = append(rep.Discrepancies, *res.discrepancy)
		}
	}
}

// check probes one asset's canonical target key.
//
// Probe errors other than not-found are resolved to missing with a
// warning: verification flags the doubtful case for a targeted re-check
// rather than passing it silently.
func (v *Verifier) check(ctx context.Context, a catalog.AssetDescriptor) checkResult {
	key := migrate.TargetKey(v.cfg.KeyPrefix, a)

	meta, err := v.store.Head(ctx, key)
	if err != nil {
		if !store.IsNotFound(err) {
			v.logger.Warn("Ambiguous verification probe, flagging as missing",
				zap.String("key", key),
				zap.Error(err))
		}
		return checkResult{
			status: StatusMissing,
			discrepancy: &Discrepancy{
				PublicID:      a.PublicID,
				TargetKey:     key,
				Status:        StatusMissing,
				ExpectedBytes: a.Bytes,
			},
		}
	}

	if meta.Size != a.Bytes {
		return checkResult{
			status: StatusSizeMismatch,
			discrepancy: &Discrepancy{
				PublicID:      a.PublicID,
				TargetKey:     key,
				Status:        StatusSizeMismatch,
				ExpectedBytes: a.Bytes,
				ActualBytes:   meta.Size,
			},
		}
	}

	return checkResult{status: "verified"}
}

// finalize stamps the duration and persists report records when the run
// found discrepancies. A clean run is reported in the return value only.
func (v *Verifier) finalize(rep *Report, start time.Time) {
	rep.Duration = time.Since(start)

	if v.writer == nil || rep.Clean() {
		return
	}

	ctx := context.Background()
	for _, d := range rep.Discrepancies {
		err := v.writer.WriteDiscrepancy(ctx, &output.DiscrepancyRecord{
			PublicID:      d.PublicID,
			TargetKey:     d.TargetKey,
			Status:        d.Status,
			ExpectedBytes: d.ExpectedBytes,
			ActualBytes:   d.ActualBytes,
		})
		if err != nil {
			v.logger.Warn("Failed to write discrepancy record",
				zap.String("public_id", d.PublicID),
				zap.Error(err))
		}
	}

	err := v.writer.WriteVerifySummary(ctx, &output.VerifySummaryRecord{
		Checked:        rep.Checked,
		Verified:       rep.Verified,
		Missing:        rep.Missing,
		SizeMismatched: rep.SizeMismatched,
		SuccessRate:    rep.SuccessRate(),
		Duration:       rep.Duration,
		DurationHuman:  rep.Duration.Round(time.Millisecond).String(),
	})
	if err != nil {
		v.logger.Warn("Failed to write verification summary record", zap.Error(err))
	}
}
