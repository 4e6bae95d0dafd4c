// Package match evaluates glob patterns against asset public IDs.
//
// The migration and verification engines use a Matcher to narrow the
// candidate set client-side, on top of the server-side catalog filters
// (prefix, date, resource type).
package match

import (
	"errors"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher evaluates include/exclude patterns against public IDs.
//
//   - Include patterns: the ID must match at least one. An empty include
//     list matches everything.
//   - Exclude patterns: the ID must not match any.
//
// Patterns use doublestar glob syntax, so "events/**" matches IDs in any
// folder depth under "events/".
//
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	includes []string
	excludes []string
}

// Config configures a Matcher.
type Config struct {
	// Includes are glob patterns that public IDs must match (at least one).
	// Optional: empty means every ID is a candidate.
	Includes []string

	// Excludes are glob patterns that public IDs must not match (any).
	Excludes []string
}

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New creates a new Matcher from the given configuration.
//
// Returns an error if any pattern is invalid (cannot be compiled).
func New(cfg Config) (*Matcher, error) {
	for _, raw := range append(append([]string{}, cfg.Includes...), cfg.Excludes...) {
		if !doublestar.ValidatePattern(raw) {
			return nil, &PatternError{Pattern: raw, Err: ErrInvalidPattern}
		}
	}
	return &Matcher{
		includes: cfg.Includes,
		excludes: cfg.Excludes,
	}, nil
}

// Match reports whether the public ID passes the include/exclude patterns.
func (m *Matcher) Match(publicID string) bool {
	for _, pat := range m.excludes {
		if ok, _ := doublestar.Match(pat, publicID); ok {
			return false
		}
	}

	if len(m.includes) == 0 {
		return true
	}
	for _, pat := range m.includes {
		if ok, _ := doublestar.Match(pat, publicID); ok {
			return true
		}
	}
	return false
}

// Empty reports whether the matcher has no patterns at all, meaning
// every candidate passes.
func (m *Matcher) Empty() bool {
	return len(m.includes) == 0 && len(m.excludes) == 0
}
