// Package guard implements the optimistic staleness check that gates every
// mutation of the remote library.
//
// The check compares the whole-library version captured when a snapshot was
// loaded with the version the remote reports now. Any change, including
// unrelated ones such as emptying the trash, makes the snapshot stale. A
// writer mutating the library between Check and the first write is not
// detected; this tool assumes a single operator.
package guard

import (
	"context"
	"errors"
	"fmt"
)

// ErrStale is returned by Check when the remote library has moved on since
// the snapshot was captured.
var ErrStale = errors.New("library is out of sync; reload required")

// VersionSource reports the remote library's current version.
type VersionSource interface {
	CurrentVersion(ctx context.Context) (int64, error)
}

// Guard holds the version captured with a snapshot.
type Guard struct {
	captured int64
	source   VersionSource
}

// New creates a guard for a snapshot captured at version.
func New(captured int64, source VersionSource) *Guard {
	return &Guard{captured: captured, source: source}
}

// Captured returns the version the snapshot was taken at.
func (g *Guard) Captured() int64 {
	return g.captured
}

// IsCurrent re-queries the remote version and compares it by equality.
func (g *Guard) IsCurrent(ctx context.Context) (bool, error) {
	current, err := g.source.CurrentVersion(ctx)
	if err != nil {
		return false, fmt.Errorf("querying library version: %w", err)
	}
	return current == g.captured, nil
}

// Check returns nil when the snapshot is current and a StaleError otherwise.
func (g *Guard) Check(ctx context.Context) error {
	current, err := g.source.CurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("querying library version: %w", err)
	}
	if current != g.captured {
		return &StaleError{Captured: g.captured, Current: current}
	}
	return nil
}

// StaleError carries both versions of a failed staleness check.
type StaleError struct {
	Captured int64
	Current  int64
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("%v (snapshot version %d, library version %d)", ErrStale, e.Captured, e.Current)
}

func (e *StaleError) Unwrap() error {
	return ErrStale
}
