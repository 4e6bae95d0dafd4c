package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog operations.
var (
	// ErrCatalogUnavailable indicates the upstream catalog call failed.
	// Enumeration failures are fatal to the current run: the caller stops
	// pulling pages and summarizes what was processed so far.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrInvalidCredentials indicates catalog authentication failed.
	ErrInvalidCredentials = errors.New("invalid catalog credentials")

	// ErrThrottled indicates the request was rate limited by the catalog.
	ErrThrottled = errors.New("catalog request throttled")
)

// CatalogError wraps source-specific errors with context.
type CatalogError struct {
	// Op is the operation that failed (e.g. "ListPage", "GetByIDs").
	Op string

	// Cloud identifies the source account, if applicable.
	Cloud string

	// Cursor is the pagination cursor in flight, if applicable.
	Cursor string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	if e.Cursor != "" {
		return fmt.Sprintf("catalog %s: %s: cursor %s: %v", e.Op, e.Cloud, e.Cursor, e.Err)
	}
	if e.Cloud != "" {
		return fmt.Sprintf("catalog %s: %s: %v", e.Op, e.Cloud, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CatalogError) Unwrap() error {
	return e.Err
}

// IsUnavailable returns true if the error indicates an upstream catalog failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrCatalogUnavailable)
}

// IsInvalidCredentials returns true if the error indicates authentication failed.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsThrottled returns true if the error indicates the request was rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}
