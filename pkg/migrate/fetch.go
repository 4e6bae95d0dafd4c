package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrFetchFailed indicates the asset's content could not be downloaded.
var ErrFetchFailed = errors.New("asset fetch failed")

// DefaultFetchTimeout bounds each content download.
const DefaultFetchTimeout = 30 * time.Second

// ContentFetcher downloads asset content into local staging.
type ContentFetcher interface {
	// Fetch downloads url into a staging file. The caller must call
	// Release on the returned staging regardless of what follows.
	Fetch(ctx context.Context, url string) (*Staging, error)
}

// Staging is a downloaded asset spooled to a local temp file.
//
// Spooling to disk keeps peak memory bounded by the concurrency limit
// and gives the store a seekable body for SDK-level retries.
type Staging struct {
	f    *os.File
	size int64
}

// Reader returns a seekable reader positioned at the start of the content.
func (s *Staging) Reader() (io.ReadSeeker, error) {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return s.f, nil
}

// Size returns the staged content length in bytes.
func (s *Staging) Size() int64 {
	return s.size
}

// Release closes and removes the staging file. Safe to call once on
// every exit path; errors are limited to cleanup and carry no data loss.
func (s *Staging) Release() error {
	name := s.f.Name()
	closeErr := s.f.Close()
	removeErr := os.Remove(name)
	if closeErr != nil {
		return closeErr
	}
	return removeErr
}

// HTTPFetcher downloads content over HTTP with a bounded per-request
// timeout.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with the given per-request timeout.
// Zero uses DefaultFetchTimeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Ensure HTTPFetcher implements the interface.
var _ ContentFetcher = (*HTTPFetcher)(nil)

// Fetch downloads url into a staging temp file.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Staging, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from delivery URL", ErrFetchFailed, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "assetferry-staging-*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating staging file: %v", ErrFetchFailed, err)
	}

	size, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	return &Staging{f: tmp, size: size}, nil
}
