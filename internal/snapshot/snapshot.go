// Package snapshot holds an immutable, versioned view of a remote library and
// the checks computed over it.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/chraibi/ZoteroTidy/internal/guard"
	"github.com/chraibi/ZoteroTidy/internal/record"
	"github.com/chraibi/ZoteroTidy/internal/store"
	"github.com/rs/zerolog"
)

// Fetcher is the read side of the remote gateway needed to build a snapshot.
type Fetcher interface {
	CurrentVersion(ctx context.Context) (int64, error)
	FetchAll(ctx context.Context, total int) ([]record.Record, error)
	FetchChildren(ctx context.Context, key string) ([]record.Record, error)
}

// ChildFetcher lists children remotely when the snapshot does not hold them.
type ChildFetcher interface {
	FetchChildren(ctx context.Context, key string) ([]record.Record, error)
}

// Snapshot is the set of records read from one library at one version.
// Records are never modified in place; a mutation makes the snapshot stale
// and the next load replaces it.
type Snapshot struct {
	Library      string
	Version      int64
	LoadedAt     time.Time
	LoadDuration time.Duration
	Requested    int
	Stale        bool

	records  []record.Record
	byKey    map[string]int
	children map[string][]record.Record
	remote   ChildFetcher
	logger   zerolog.Logger
	analysis *Analysis
}

// Option configures a Snapshot.
type Option func(*Snapshot)

// WithLogger sets the logger for fetch diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Snapshot) {
		s.logger = l
	}
}

// WithRemote lets the snapshot fetch children it does not hold.
func WithRemote(r ChildFetcher) Option {
	return func(s *Snapshot) {
		s.remote = r
	}
}

// Load captures the library version, then reads up to max records (all when
// max <= 0). The version is read first so that any change made during the
// fetch makes the snapshot stale rather than silently inconsistent. On error
// no snapshot is returned.
func Load(ctx context.Context, f Fetcher, library string, max int, opts ...Option) (*Snapshot, error) {
	start := time.Now()

	version, err := f.CurrentVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("capturing library version: %w", err)
	}

	records, err := f.FetchAll(ctx, max)
	if err != nil {
		return nil, err
	}

	s := New(library, version, records, append([]Option{WithRemote(f)}, opts...)...)
	s.LoadedAt = start.UTC()
	s.LoadDuration = time.Since(start)
	s.Requested = max
	s.logger.Info().
		Int("records", len(records)).
		Int64("version", version).
		Dur("took", s.LoadDuration).
		Msg("library loaded")
	return s, nil
}

// New builds a snapshot from records already in hand.
func New(library string, version int64, records []record.Record, opts ...Option) *Snapshot {
	s := &Snapshot{
		Library:  library,
		Version:  version,
		records:  records,
		byKey:    make(map[string]int, len(records)),
		children: make(map[string][]record.Record),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for i, r := range records {
		s.byKey[r.Key] = i
		if r.ParentKey != "" {
			s.children[r.ParentKey] = append(s.children[r.ParentKey], r)
		}
	}
	return s
}

// FromState rebuilds a snapshot from the cache.
func FromState(st store.State, opts ...Option) *Snapshot {
	s := New(st.Meta.Library, st.Meta.Version, st.Records, opts...)
	s.LoadedAt = st.Meta.LoadedAt
	s.LoadDuration = st.Meta.LoadDuration
	s.Requested = st.Meta.Requested
	s.Stale = st.Meta.Stale
	return s
}

// State returns the snapshot in its cacheable form.
func (s *Snapshot) State() store.State {
	return store.State{
		Meta: store.Meta{
			Library:      s.Library,
			Version:      s.Version,
			LoadedAt:     s.LoadedAt,
			LoadDuration: s.LoadDuration,
			Requested:    s.Requested,
			Stale:        s.Stale,
		},
		Records: s.records,
	}
}

// Records returns every record in fetch order, children included.
func (s *Snapshot) Records() []record.Record {
	return s.records
}

// Len returns the number of records held.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Get returns the record with key.
func (s *Snapshot) Get(key string) (record.Record, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return record.Record{}, false
	}
	return s.records[i], true
}

// Children returns the immediate children of key. Children present in the
// snapshot are used when they account for the parent's reported child
// count; otherwise they are fetched from the remote and remembered.
func (s *Snapshot) Children(ctx context.Context, key string) ([]record.Record, error) {
	held := s.children[key]

	parent, known := s.Get(key)
	switch {
	case known && parent.NumChildren == 0:
		return nil, nil
	case known && parent.NumChildren <= len(held):
		return held, nil // includes NumChildren == -1
	case s.remote == nil:
		return held, nil
	}

	fetched, err := s.remote.FetchChildren(ctx, key)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("key", key).Int("children", len(fetched)).Msg("fetched children")
	s.children[key] = fetched
	return fetched, nil
}

// Guard returns a sync guard pinned to the snapshot's version.
func (s *Snapshot) Guard(source guard.VersionSource) *guard.Guard {
	return guard.New(s.Version, source)
}

// Analysis returns the memoized checks for this snapshot.
func (s *Snapshot) Analysis() *Analysis {
	if s.analysis == nil {
		s.analysis = &Analysis{snap: s}
	}
	return s.analysis
}
