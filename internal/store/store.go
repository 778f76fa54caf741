// Package store persists library snapshots in a local SQLite cache.
//
// The cache is disposable: it is rebuilt by every load and never treated as
// a source of truth for the remote library.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chraibi/ZoteroTidy/internal/record"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot cached; run load first")

// Meta describes a saved snapshot.
type Meta struct {
	Library      string        `json:"library"` // "user:123" or "group:456"
	Version      int64         `json:"version"`
	LoadedAt     time.Time     `json:"loaded_at"`
	LoadDuration time.Duration `json:"load_duration"`
	Requested    int           `json:"requested"` // 0 means the whole library
	Stale        bool          `json:"stale"`
}

// State is everything the cache holds for one snapshot.
type State struct {
	Meta    Meta
	Records []record.Record
}

// DB wraps a SQLite database connection.
type DB struct {
	db *sqlx.DB
}

// recordRow is the flat table layout of a record.
type recordRow struct {
	Position           int            `db:"position"`
	Key                string         `db:"key"`
	Version            int64          `db:"version"`
	ItemType           string         `db:"item_type"`
	Title              string         `db:"title"`
	DOI                string         `db:"doi"`
	ISBN               string         `db:"isbn"`
	LibraryCatalog     string         `db:"library_catalog"`
	DateAdded          sql.NullString `db:"date_added"`
	TagsJSON           string         `db:"tags_json"`
	ParentKey          string         `db:"parent_key"`
	NumChildren        int            `db:"num_children"`
	LinkAttachmentType string         `db:"link_attachment_type"`
	ContentType        sql.NullString `db:"content_type"`
	LinkMode           sql.NullString `db:"link_mode"`
	Filename           sql.NullString `db:"filename"`
	MD5                sql.NullString `db:"md5"`
}

const schema = `
	CREATE TABLE IF NOT EXISTS records (
		position INTEGER NOT NULL,
		key TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		item_type TEXT NOT NULL,
		title TEXT NOT NULL,
		doi TEXT NOT NULL,
		isbn TEXT NOT NULL,
		library_catalog TEXT NOT NULL,
		date_added TEXT,
		tags_json TEXT NOT NULL,
		parent_key TEXT NOT NULL,
		num_children INTEGER NOT NULL,
		link_attachment_type TEXT NOT NULL,
		content_type TEXT,
		link_mode TEXT,
		filename TEXT,
		md5 TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_records_parent ON records(parent_key) WHERE parent_key != '';

	CREATE TABLE IF NOT EXISTS _meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
`

// Meta keys.
const (
	metaLibrary      = "library"
	metaVersion      = "library_version"
	metaLoadedAt     = "loaded_at"
	metaLoadDuration = "load_duration_ms"
	metaRequested    = "requested"
	metaStale        = "stale"
)

// Open opens or creates the cache database at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Save replaces the cached snapshot with s in one transaction.
func (d *DB) Save(ctx context.Context, s State) error {
	return d.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
			return fmt.Errorf("clearing records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM _meta"); err != nil {
			return fmt.Errorf("clearing meta: %w", err)
		}

		const insert = `
			INSERT OR REPLACE INTO records (
				position, key, version, item_type, title, doi, isbn, library_catalog,
				date_added, tags_json, parent_key, num_children, link_attachment_type,
				content_type, link_mode, filename, md5
			) VALUES (
				:position, :key, :version, :item_type, :title, :doi, :isbn, :library_catalog,
				:date_added, :tags_json, :parent_key, :num_children, :link_attachment_type,
				:content_type, :link_mode, :filename, :md5
			)`
		stmt, err := tx.PrepareNamedContext(ctx, insert)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for i, r := range s.Records {
			row, err := toRow(i, r)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, row); err != nil {
				return fmt.Errorf("inserting record %s: %w", r.Key, err)
			}
		}

		meta := map[string]string{
			metaLibrary:      s.Meta.Library,
			metaVersion:      strconv.FormatInt(s.Meta.Version, 10),
			metaLoadedAt:     s.Meta.LoadedAt.UTC().Format(time.RFC3339Nano),
			metaLoadDuration: strconv.FormatInt(s.Meta.LoadDuration.Milliseconds(), 10),
			metaRequested:    strconv.Itoa(s.Meta.Requested),
			metaStale:        strconv.FormatBool(s.Meta.Stale),
		}
		for k, v := range meta {
			if _, err := tx.ExecContext(ctx, "INSERT INTO _meta (key, value) VALUES (?, ?)", k, v); err != nil {
				return fmt.Errorf("writing meta %s: %w", k, err)
			}
		}
		return nil
	})
}

// Load returns the cached snapshot, or ErrNoSnapshot.
func (d *DB) Load(ctx context.Context) (State, error) {
	meta, err := d.Meta(ctx)
	if err != nil {
		return State{}, err
	}

	var rows []recordRow
	if err := d.db.SelectContext(ctx, &rows, "SELECT * FROM records ORDER BY position"); err != nil {
		return State{}, fmt.Errorf("reading records: %w", err)
	}

	records := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		r, err := fromRow(row)
		if err != nil {
			return State{}, err
		}
		records = append(records, r)
	}
	return State{Meta: meta, Records: records}, nil
}

// Meta returns only the snapshot metadata.
func (d *DB) Meta(ctx context.Context) (Meta, error) {
	type kv struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	var pairs []kv
	if err := d.db.SelectContext(ctx, &pairs, "SELECT key, value FROM _meta"); err != nil {
		return Meta{}, fmt.Errorf("reading meta: %w", err)
	}
	if len(pairs) == 0 {
		return Meta{}, ErrNoSnapshot
	}

	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		values[p.Key] = p.Value
	}

	var m Meta
	m.Library = values[metaLibrary]
	if v, err := strconv.ParseInt(values[metaVersion], 10, 64); err == nil {
		m.Version = v
	} else {
		return Meta{}, fmt.Errorf("corrupt cache: %s = %q", metaVersion, values[metaVersion])
	}
	if t, err := time.Parse(time.RFC3339Nano, values[metaLoadedAt]); err == nil {
		m.LoadedAt = t
	}
	if ms, err := strconv.ParseInt(values[metaLoadDuration], 10, 64); err == nil {
		m.LoadDuration = time.Duration(ms) * time.Millisecond
	}
	m.Requested, _ = strconv.Atoi(values[metaRequested])
	m.Stale, _ = strconv.ParseBool(values[metaStale])
	return m, nil
}

// MarkStale flags the cached snapshot as outdated, typically after a
// successful mutation. A missing snapshot is not an error.
func (d *DB) MarkStale(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, "UPDATE _meta SET value = 'true' WHERE key = ?", metaStale)
	if err != nil {
		return fmt.Errorf("marking snapshot stale: %w", err)
	}
	return nil
}

func (d *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback transaction: %w (original error: %v)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func toRow(pos int, r record.Record) (recordRow, error) {
	tags := r.Tags
	if tags == nil {
		tags = []record.Tag{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return recordRow{}, fmt.Errorf("marshaling tags of %s: %w", r.Key, err)
	}

	row := recordRow{
		Position:           pos,
		Key:                r.Key,
		Version:            r.Version,
		ItemType:           r.ItemType,
		Title:              r.Title,
		DOI:                r.DOI,
		ISBN:               r.ISBN,
		LibraryCatalog:     r.LibraryCatalog,
		TagsJSON:           string(tagsJSON),
		ParentKey:          r.ParentKey,
		NumChildren:        r.NumChildren,
		LinkAttachmentType: r.LinkAttachmentType,
	}
	if !r.DateAdded.IsZero() {
		row.DateAdded = sql.NullString{String: r.DateAdded.UTC().Format(time.RFC3339), Valid: true}
	}
	if a := r.Attachment; a != nil {
		row.ContentType = sql.NullString{String: a.ContentType, Valid: true}
		row.LinkMode = sql.NullString{String: a.LinkMode, Valid: true}
		row.Filename = sql.NullString{String: a.Filename, Valid: true}
		row.MD5 = sql.NullString{String: a.MD5, Valid: true}
	}
	return row, nil
}

func fromRow(row recordRow) (record.Record, error) {
	r := record.Record{
		Key:                row.Key,
		Version:            row.Version,
		Kind:               record.ParseKind(row.ItemType),
		ItemType:           row.ItemType,
		Title:              row.Title,
		DOI:                row.DOI,
		ISBN:               row.ISBN,
		LibraryCatalog:     row.LibraryCatalog,
		ParentKey:          row.ParentKey,
		NumChildren:        row.NumChildren,
		LinkAttachmentType: row.LinkAttachmentType,
	}
	if err := json.Unmarshal([]byte(row.TagsJSON), &r.Tags); err != nil {
		return record.Record{}, fmt.Errorf("corrupt tags for %s: %w", row.Key, err)
	}
	if len(r.Tags) == 0 {
		r.Tags = nil
	}
	if row.DateAdded.Valid {
		t, err := time.Parse(time.RFC3339, row.DateAdded.String)
		if err != nil {
			return record.Record{}, fmt.Errorf("corrupt date for %s: %w", row.Key, err)
		}
		r.DateAdded = t
	}
	if row.ContentType.Valid {
		r.Attachment = &record.AttachmentData{
			ContentType: row.ContentType.String,
			LinkMode:    row.LinkMode.String,
			Filename:    row.Filename.String,
			MD5:         row.MD5.String,
		}
	}
	return r, nil
}
