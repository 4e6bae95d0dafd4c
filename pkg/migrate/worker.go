package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skylarkhq/assetferry/pkg/catalog"
	"github.com/skylarkhq/assetferry/pkg/store"
)

// Policy controls how the worker treats assets already present at the
// destination.
type Policy struct {
	// SkipExisting avoids re-transferring assets whose target key already
	// exists. This is what makes re-runs cheap and idempotent.
	SkipExisting bool

	// ForceOverwrite bypasses the existence check entirely and always
	// transfers, regardless of SkipExisting.
	ForceOverwrite bool
}

// worker performs the per-asset transfer pipeline:
// existence check, fetch to staging, persist, cleanup.
type worker struct {
	store     store.Store
	fetcher   ContentFetcher
	keyPrefix string
	policy    Policy
	logger    *zap.Logger
}

// transfer runs the pipeline for one asset and produces its outcome.
// The worker never retries internally: the operator retries by
// re-running with skip-existing semantics.
func (w *worker) transfer(ctx context.Context, a catalog.AssetDescriptor) Outcome {
	key := TargetKey(w.keyPrefix, a)

	if w.policy.SkipExisting && !w.policy.ForceOverwrite {
		if w.exists(ctx, key) {
			return Outcome{Asset: a, TargetKey: key, Status: StatusSkipped, Reason: ReasonAlreadyExists}
		}
	}

	if a.DeliveryURL == "" {
		return Outcome{Asset: a, TargetKey: key, Status: StatusFailed, Error: "missing delivery URL"}
	}

	staged, err := w.fetcher.Fetch(ctx, a.DeliveryURL)
	if err != nil {
		return Outcome{Asset: a, TargetKey: key, Status: StatusFailed, Error: err.Error()}
	}
	defer func() { _ = staged.Release() }()

	body, err := staged.Reader()
	if err != nil {
		return Outcome{Asset: a, TargetKey: key, Status: StatusFailed, Error: fmt.Sprintf("staging read: %v", err)}
	}

	err = w.store.Put(ctx, store.PutInput{
		Key:           key,
		Body:          body,
		ContentLength: staged.Size(),
		ContentType:   ContentTypeFor(a.Format),
		Metadata:      MetadataFor(a),
	})
	if err != nil {
		return Outcome{Asset: a, TargetKey: key, Status: StatusFailed, Error: err.Error()}
	}

	return Outcome{Asset: a, TargetKey: key, Status: StatusMigrated, Bytes: staged.Size()}
}

// exists probes the destination for the target key.
//
// Not-found is a definitive absence. Any other probe error is resolved
// conservatively to "absent" with a warning: a false negative costs one
// redundant transfer, a false positive would silently lose data.
func (w *worker) exists(ctx context.Context, key string) bool {
	_, err := w.store.Head(ctx, key)
	if err == nil {
		return true
	}
	if store.IsNotFound(err) {
		return false
	}
	w.logger.Warn("Ambiguous existence check, proceeding with transfer",
		zap.String("key", key),
		zap.Error(err))
	return false
}
