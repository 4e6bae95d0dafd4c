package migrate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylarkhq/assetferry/pkg/catalog"
	"github.com/skylarkhq/assetferry/pkg/match"
	"github.com/skylarkhq/assetferry/pkg/output"
	"github.com/skylarkhq/assetferry/pkg/store"
)

// fakeEnum scripts batches for the migrator and verifies that batches
// never overlap: every pull must find zero transfers in flight.
type fakeEnum struct {
	batches [][]catalog.AssetDescriptor
	err     error
	idx     int

	inflight *int64
	overlap  bool
}

func (e *fakeEnum) Next(_ context.Context) ([]catalog.AssetDescriptor, error) {
	if e.inflight != nil && atomic.LoadInt64(e.inflight) != 0 {
		e.overlap = true
	}
	if e.idx < len(e.batches) {
		b := e.batches[e.idx]
		e.idx++
		return b, nil
	}
	if e.err != nil {
		return nil, e.err
	}
	return nil, nil
}

// fakeStore is an in-memory object store with call counting and
// concurrency tracking.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]int64
	meta    map[string]map[string]string
	ctype   map[string]string

	headCalls int64
	putCalls  int64
	putErr    error
	headErr   error

	inflight    int64
	maxInflight int64

	putDelay time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: make(map[string]int64),
		meta:    make(map[string]map[string]string),
		ctype:   make(map[string]string),
	}
}

func (s *fakeStore) Head(_ context.Context, key string) (*store.ObjectMeta, error) {
	atomic.AddInt64(&s.headCalls, 1)
	if s.headErr != nil {
		return nil, s.headErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	size, ok := s.objects[key]
	if !ok {
		return nil, &store.StoreError{Op: "head", Key: key, Err: store.ErrNotFound}
	}
	return &store.ObjectMeta{Key: key, Size: size}, nil
}

func (s *fakeStore) Put(_ context.Context, in store.PutInput) error {
	cur := atomic.AddInt64(&s.inflight, 1)
	for {
		max := atomic.LoadInt64(&s.maxInflight)
		if cur <= max || atomic.CompareAndSwapInt64(&s.maxInflight, max, cur) {
			break
		}
	}
	defer atomic.AddInt64(&s.inflight, -1)

	if s.putDelay > 0 {
		time.Sleep(s.putDelay)
	}

	atomic.AddInt64(&s.putCalls, 1)
	if s.putErr != nil {
		return s.putErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[in.Key] = in.ContentLength
	s.meta[in.Key] = in.Metadata
	s.ctype[in.Key] = in.ContentType
	return nil
}

func (s *fakeStore) Close() error { return nil }

// fakeFetcher stages a fixed payload per URL and records the staging
// file paths it created so tests can assert cleanup.
type fakeFetcher struct {
	mu      sync.Mutex
	content map[string][]byte
	err     error
	staged  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*Staging, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	body, ok := f.content[url]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: HTTP 404 from delivery URL", ErrFetchFailed)
	}

	tmp, err := os.CreateTemp("", "assetferry-test-staging-*")
	if err != nil {
		return nil, err
	}
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, err
	}

	f.mu.Lock()
	f.staged = append(f.staged, tmp.Name())
	f.mu.Unlock()

	return &Staging{f: tmp, size: int64(len(body))}, nil
}

func asset(id string) catalog.AssetDescriptor {
	return catalog.AssetDescriptor{
		PublicID:     id,
		Format:       "jpg",
		Bytes:        int64(len(id) + 8),
		DeliveryURL:  "https://res.example.com/" + id + ".jpg",
		ResourceType: "image",
	}
}

func fetcherFor(assets ...catalog.AssetDescriptor) *fakeFetcher {
	content := make(map[string][]byte)
	for _, a := range assets {
		content[a.DeliveryURL] = bytes.Repeat([]byte("x"), int(a.Bytes))
	}
	return &fakeFetcher{content: content}
}

func newTestWriter() (*output.JSONLWriter, *bytes.Buffer) {
	var buf bytes.Buffer
	return output.NewJSONLWriter(&buf, "run-test", "demo-cloud"), &buf
}

func TestMigratorMigratesEmptyDestination(t *testing.T) {
	assets := []catalog.AssetDescriptor{asset("a/one"), asset("a/two"), asset("b/three")}
	enum := &fakeEnum{batches: [][]catalog.AssetDescriptor{assets[:2], assets[2:]}}
	st := newFakeStore()
	writer, buf := newTestWriter()

	m := New(enum, st, fetcherFor(assets...), nil, writer, DefaultConfig())
	sum, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), sum.Total)
	assert.Equal(t, int64(3), sum.Migrated)
	assert.Equal(t, int64(0), sum.Skipped)
	assert.Equal(t, int64(0), sum.Failed)
	assert.Equal(t, 2, sum.Batches)
	assert.False(t, sum.Partial)

	var wantBytes int64
	for _, a := range assets {
		wantBytes += a.Bytes
	}
	assert.Equal(t, wantBytes, sum.BytesTransferred)

	// Every line of output must be a parseable envelope.
	var types []string
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var rec output.Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		assert.Equal(t, "run-test", rec.RunID)
		types = append(types, rec.Type)
	}
	// 3 migrated, 2 progress, 1 summary
	assert.Len(t, types, 6)
	assert.Equal(t, output.TypeSummary, types[len(types)-1])
}

func TestMigratorSecondRunSkipsEverything(t *testing.T) {
	assets := []catalog.AssetDescriptor{asset("p/1"), asset("p/2")}
	st := newFakeStore()
	writer, _ := newTestWriter()

	first := New(&fakeEnum{batches: [][]catalog.AssetDescriptor{assets}}, st, fetcherFor(assets...), nil, writer, DefaultConfig())
	sum, err := first.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), sum.Migrated)

	putsAfterFirst := atomic.LoadInt64(&st.putCalls)

	second := New(&fakeEnum{batches: [][]catalog.AssetDescriptor{assets}}, st, fetcherFor(assets...), nil, writer, DefaultConfig())
	sum, err = second.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), sum.Total)
	assert.Equal(t, int64(0), sum.Migrated)
	assert.Equal(t, int64(2), sum.Skipped)
	assert.Equal(t, putsAfterFirst, atomic.LoadInt64(&st.putCalls), "no content should move on a re-run")

	require.Len(t, sum.SkippedAssets, 2)
	assert.Equal(t, ReasonAlreadyExists, sum.SkippedAssets[0].Detail)
}

func TestMigratorForceOverwriteBypassesExistenceCheck(t *testing.T) {
	assets := []catalog.AssetDescriptor{asset("p/1"), asset("p/2")}
	st := newFakeStore()
	for _, a := range assets {
		st.objects[TargetKey("", a)] = 1
	}
	writer, _ := newTestWriter()

	cfg := DefaultConfig()
	cfg.Policy = Policy{SkipExisting: true, ForceOverwrite: true}
	m := New(&fakeEnum{batches: [][]catalog.AssetDescriptor{assets}}, st, fetcherFor(assets...), nil, writer, cfg)

	sum, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), sum.Migrated)
	assert.Equal(t, int64(0), sum.Skipped)
	assert.Zero(t, atomic.LoadInt64(&st.headCalls), "force overwrite must not probe existence")
}

func TestMigratorConcurrencyBound(t *testing.T) {
	var assets []catalog.AssetDescriptor
	for i := 0; i < 5; i++ {
		assets = append(assets, asset(fmt.Sprintf("bulk/%d", i)))
	}
	st := newFakeStore()
	st.putDelay = 20 * time.Millisecond
	writer, _ := newTestWriter()

	cfg := DefaultConfig()
	cfg.Concurrency = 2
	m := New(&fakeEnum{batches: [][]catalog.AssetDescriptor{assets}}, st, fetcherFor(assets...), nil, writer, cfg)

	sum, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(5), sum.Migrated)
	assert.LessOrEqual(t, atomic.LoadInt64(&st.maxInflight), int64(2))
}

func TestMigratorBatchesDoNotOverlap(t *testing.T) {
	var batches [][]catalog.AssetDescriptor
	var all []catalog.AssetDescriptor
	for b := 0; b < 3; b++ {
		var batch []catalog.AssetDescriptor
		for i := 0; i < 4; i++ {
			a := asset(fmt.Sprintf("seq/%d-%d", b, i))
			batch = append(batch, a)
			all = append(all, a)
		}
		batches = append(batches, batch)
	}
	st := newFakeStore()
	st.putDelay = 5 * time.Millisecond
	writer, _ := newTestWriter()

	enum := &fakeEnum{batches: batches, inflight: &st.inflight}
	m := New(enum, st, fetcherFor(all...), nil, writer, DefaultConfig())

	sum, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(12), sum.Migrated)
	assert.False(t, enum.overlap, "a new batch was pulled while transfers were still in flight")
}

func TestMigratorAggregateConsistency(t *testing.T) {
	existing := asset("mixed/existing")
	broken := asset("mixed/broken")
	broken.DeliveryURL = ""
	fresh := asset("mixed/fresh")

	st := newFakeStore()
	st.objects[TargetKey("", existing)] = existing.Bytes
	writer, _ := newTestWriter()

	assets := []catalog.AssetDescriptor{existing, broken, fresh}
	m := New(&fakeEnum{batches: [][]catalog.AssetDescriptor{assets}}, st, fetcherFor(fresh), nil, writer, DefaultConfig())

	sum, err := m.Run(context.Background())
	require.NoError(t, err, "per-asset failures must not abort the run")

	assert.Equal(t, int64(3), sum.Total)
	assert.Equal(t, int64(1), sum.Migrated)
	assert.Equal(t, int64(1), sum.Skipped)
	assert.Equal(t, int64(1), sum.Failed)
	assert.Equal(t, sum.Total, sum.Migrated+sum.Skipped+sum.Failed)

	require.Len(t, sum.FailedAssets, 1)
	assert.Equal(t, "mixed/broken", sum.FailedAssets[0].PublicID)
	assert.Contains(t, sum.FailedAssets[0].Detail, "missing delivery URL")
}

func TestMigratorEnumerationFailureIsPartial(t *testing.T) {
	assets := []catalog.AssetDescriptor{asset("ok/1"), asset("ok/2")}
	enum := &fakeEnum{
		batches: [][]catalog.AssetDescriptor{assets},
		err:     &catalog.CatalogError{Op: "list", Err: catalog.ErrCatalogUnavailable},
	}
	st := newFakeStore()
	writer, buf := newTestWriter()

	m := New(enum, st, fetcherFor(assets...), nil, writer, DefaultConfig())
	sum, err := m.Run(context.Background())
	require.Error(t, err)
	assert.True(t, catalog.IsUnavailable(err))

	assert.True(t, sum.Partial)
	assert.Equal(t, int64(2), sum.Migrated, "the completed batch counts toward the partial summary")

	// The summary record still flushes on early exit.
	var last output.Record
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		require.NoError(t, json.Unmarshal(sc.Bytes(), &last))
	}
	require.Equal(t, output.TypeSummary, last.Type)

	var sr output.SummaryRecord
	require.NoError(t, json.Unmarshal(last.Data, &sr))
	assert.True(t, sr.Partial)
}

func TestMigratorMatcherFiltersCandidates(t *testing.T) {
	assets := []catalog.AssetDescriptor{asset("events/a"), asset("events/b"), asset("drafts/c")}
	st := newFakeStore()
	writer, _ := newTestWriter()

	matcher, err := match.New(match.Config{Includes: []string{"events/**"}})
	require.NoError(t, err)

	m := New(&fakeEnum{batches: [][]catalog.AssetDescriptor{assets}}, st, fetcherFor(assets...), matcher, writer, DefaultConfig())
	sum, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), sum.Total)
	assert.Equal(t, int64(2), sum.Migrated)

	st.mu.Lock()
	defer st.mu.Unlock()
	assert.NotContains(t, st.objects, TargetKey("", assets[2]))
}

func TestMigratorStagingCleanup(t *testing.T) {
	assets := []catalog.AssetDescriptor{asset("clean/1"), asset("clean/2")}
	st := newFakeStore()
	writer, _ := newTestWriter()
	fetcher := fetcherFor(assets...)

	m := New(&fakeEnum{batches: [][]catalog.AssetDescriptor{assets}}, st, fetcher, nil, writer, DefaultConfig())
	_, err := m.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, fetcher.staged, 2)
	for _, path := range fetcher.staged {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "staging file %s should be removed", path)
	}
}

func TestMigratorStagingCleanupOnPutFailure(t *testing.T) {
	assets := []catalog.AssetDescriptor{asset("clean/err")}
	st := newFakeStore()
	st.putErr = &store.StoreError{Op: "put", Err: store.ErrAccessDenied}
	writer, _ := newTestWriter()
	fetcher := fetcherFor(assets...)

	m := New(&fakeEnum{batches: [][]catalog.AssetDescriptor{assets}}, st, fetcher, nil, writer, DefaultConfig())
	sum, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.Failed)

	require.Len(t, fetcher.staged, 1)
	_, statErr := os.Stat(fetcher.staged[0])
	assert.True(t, os.IsNotExist(statErr))
}

func TestMigratorAmbiguousHeadProceedsWithTransfer(t *testing.T) {
	assets := []catalog.AssetDescriptor{asset("odd/1")}
	st := newFakeStore()
	st.headErr = &store.StoreError{Op: "head", Err: store.ErrStoreUnavailable}
	writer, _ := newTestWriter()

	m := New(&fakeEnum{batches: [][]catalog.AssetDescriptor{assets}}, st, fetcherFor(assets...), nil, writer, DefaultConfig())
	sum, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), sum.Migrated, "ambiguous probe resolves to transfer, not skip")
}

func TestMigratorContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := newFakeStore()
	writer, _ := newTestWriter()
	m := New(&fakeEnum{batches: [][]catalog.AssetDescriptor{{asset("never/1")}}}, st, fetcherFor(), nil, writer, DefaultConfig())

	sum, err := m.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, sum.Partial)
	assert.Zero(t, sum.Total)
}

func TestMigratorWritesDestinationMetadata(t *testing.T) {
	a := asset("meta/one")
	a.Tags = []string{"hero"}
	a.Context = map[string]string{"alt": "Hero image"}

	st := newFakeStore()
	writer, _ := newTestWriter()
	m := New(&fakeEnum{batches: [][]catalog.AssetDescriptor{{a}}}, st, fetcherFor(a), nil, writer, DefaultConfig())

	_, err := m.Run(context.Background())
	require.NoError(t, err)

	key := TargetKey("", a)
	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Equal(t, "image/jpeg", st.ctype[key])
	assert.Equal(t, "meta/one", st.meta[key]["source-public-id"])
	assert.Equal(t, "Hero image", st.meta[key]["ctx-alt"])
	assert.Equal(t, a.Bytes, st.objects[key])
}
