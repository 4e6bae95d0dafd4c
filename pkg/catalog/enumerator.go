package catalog

import (
	"context"

	"golang.org/x/time/rate"
)

// Enumerator pulls batches of asset descriptors from a Source.
//
// An Enumerator produces a lazy, finite, non-restartable sequence of
// batches. Cursor state is owned entirely by the Enumerator; callers
// simply pull until Next returns a nil batch. Cancellation is the
// caller's concern: stop pulling, or cancel the context.
//
// When Filters.PublicIDs is set, enumeration short-circuits to direct
// batched lookups chunked to MaxLookupIDs per call instead of cursor
// pagination.
//
// Enumerator is safe for single use from a single goroutine.
type Enumerator struct {
	src      Source
	filters  Filters
	pageSize int
	limiter  *rate.Limiter

	// cursor pagination state
	cursor  string
	started bool

	// explicit-ID lookup state
	idPos int

	done bool
}

// NewEnumerator creates an Enumerator over src with the given filters.
//
// pageSize is clamped to [1, MaxPageSize]; zero or negative values use
// MaxPageSize. rps limits catalog requests per second; zero means
// unlimited.
func NewEnumerator(src Source, filters Filters, pageSize int, rps float64) *Enumerator {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	e := &Enumerator{
		src:      src,
		filters:  filters,
		pageSize: pageSize,
	}
	if rps > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return e
}

// Next returns the next batch of descriptors, or (nil, nil) when the
// sequence is exhausted. A non-nil error means the upstream catalog
// call failed; the sequence is terminated and further calls return
// (nil, nil).
func (e *Enumerator) Next(ctx context.Context) ([]AssetDescriptor, error) {
	if e.done {
		return nil, nil
	}

	if err := e.wait(ctx); err != nil {
		e.done = true
		return nil, err
	}

	if len(e.filters.PublicIDs) > 0 {
		return e.nextLookup(ctx)
	}
	return e.nextPage(ctx)
}

// nextPage advances cursor pagination by one page.
func (e *Enumerator) nextPage(ctx context.Context) ([]AssetDescriptor, error) {
	if e.started && e.cursor == "" {
		e.done = true
		return nil, nil
	}

	res, err := e.src.ListPage(ctx, ListOptions{
		Filters:  e.filters,
		Cursor:   e.cursor,
		PageSize: e.pageSize,
	})
	if err != nil {
		e.done = true
		return nil, err
	}

	e.started = true
	e.cursor = res.Cursor
	if res.Cursor == "" && len(res.Assets) == 0 {
		e.done = true
		return nil, nil
	}
	// A final page with assets is emitted now; the absent cursor
	// terminates the sequence on the next pull.
	return res.Assets, nil
}

// nextLookup advances the explicit-ID list one chunk of MaxLookupIDs at
// a time. Chunks whose IDs all resolve to nothing are skipped so a nil
// batch still means the sequence is exhausted.
func (e *Enumerator) nextLookup(ctx context.Context) ([]AssetDescriptor, error) {
	ids := e.filters.PublicIDs

	first := true
	for e.idPos < len(ids) {
		end := e.idPos + MaxLookupIDs
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[e.idPos:end]

		// Next already paid the rate-limit toll for the first call.
		if !first {
			if err := e.wait(ctx); err != nil {
				e.done = true
				return nil, err
			}
		}
		first = false
		e.idPos = end

		assets, err := e.src.GetByIDs(ctx, chunk, e.filters)
		if err != nil {
			e.done = true
			return nil, err
		}
		if len(assets) > 0 {
			return assets, nil
		}
	}

	e.done = true
	return nil, nil
}

// wait blocks until the rate limiter allows a request.
// Returns immediately if rate limiting is disabled.
func (e *Enumerator) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}
