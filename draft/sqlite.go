package draft

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/propdesk/formflow/record"
)

// SQLiteStore persists drafts in a local SQLite database, one row per
// (kind, entity key). It carries the same best-effort semantics as the KV
// store: failures after open are logged and swallowed.
type SQLiteStore struct {
	db   *sql.DB
	kind string
	opts options
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the draft database at path and
// opportunistically sweeps expired rows for the given kind.
func OpenSQLite(path, kind string, opts ...Option) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create draft directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open draft database: %w", err)
	}
	s := &SQLiteStore{db: db, kind: kind, opts: newOptions(opts)}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	s.Sweep(context.Background())
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS drafts (
		kind TEXT NOT NULL,
		entity_key TEXT NOT NULL,
		payload TEXT NOT NULL,
		saved_at TEXT NOT NULL,
		PRIMARY KEY (kind, entity_key)
	);
	CREATE INDEX IF NOT EXISTS idx_drafts_saved_at ON drafts(saved_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize draft schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, key string, data record.Record) {
	if s == nil || s.db == nil {
		return
	}
	payload, err := encode(data)
	if err != nil {
		s.opts.logger.Warn("draft save skipped: serialization failed", "kind", s.kind, "key", key, "err", err)
		return
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (kind, entity_key, payload, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, entity_key) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		s.kind, key, string(payload), s.opts.now().UTC().Format(time.RFC3339))
	if err != nil {
		s.opts.logger.Warn("draft save failed", "kind", s.kind, "key", key, "err", err)
	}
}

func (s *SQLiteStore) Load(ctx context.Context, key string) (record.Record, bool) {
	if s == nil || s.db == nil {
		return nil, false
	}
	var payload, savedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, saved_at FROM drafts WHERE kind = ? AND entity_key = ?`,
		s.kind, key).Scan(&payload, &savedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			s.opts.logger.Warn("draft load failed", "kind", s.kind, "key", key, "err", err)
		}
		return nil, false
	}
	if !s.fresh(ctx, key, savedAt) {
		return nil, false
	}
	data, err := decode([]byte(payload))
	if err != nil {
		s.opts.logger.Warn("draft payload unreadable, clearing", "kind", s.kind, "key", key, "err", err)
		s.Clear(ctx, key)
		return nil, false
	}
	return data, true
}

func (s *SQLiteStore) Exists(ctx context.Context, key string) bool {
	if s == nil || s.db == nil {
		return false
	}
	var savedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT saved_at FROM drafts WHERE kind = ? AND entity_key = ?`,
		s.kind, key).Scan(&savedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			s.opts.logger.Warn("draft existence check failed", "kind", s.kind, "key", key, "err", err)
		}
		return false
	}
	return s.fresh(ctx, key, savedAt)
}

func (s *SQLiteStore) Clear(ctx context.Context, key string) {
	if s == nil || s.db == nil {
		return
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE kind = ? AND entity_key = ?`, s.kind, key); err != nil {
		s.opts.logger.Warn("draft clear failed", "kind", s.kind, "key", key, "err", err)
	}
}

func (s *SQLiteStore) TimestampOf(ctx context.Context, key string) (time.Time, bool) {
	if s == nil || s.db == nil {
		return time.Time{}, false
	}
	var savedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT saved_at FROM drafts WHERE kind = ? AND entity_key = ?`,
		s.kind, key).Scan(&savedAt)
	if err != nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, savedAt)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func (s *SQLiteStore) Sweep(ctx context.Context) {
	if s == nil || s.db == nil {
		return
	}
	cutoff := s.opts.now().UTC().Add(-s.opts.ttl).Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE kind = ? AND saved_at < ?`, s.kind, cutoff); err != nil {
		s.opts.logger.Warn("draft sweep failed", "kind", s.kind, "err", err)
	}
}

// fresh checks the TTL and clears stale or unreadable rows as a side effect.
func (s *SQLiteStore) fresh(ctx context.Context, key, savedAt string) bool {
	ts, err := time.Parse(time.RFC3339, savedAt)
	if err != nil {
		s.opts.logger.Warn("draft timestamp unreadable, clearing", "kind", s.kind, "key", key, "err", err)
		s.Clear(ctx, key)
		return false
	}
	if s.opts.now().Sub(ts) > s.opts.ttl {
		s.Clear(ctx, key)
		return false
	}
	return true
}
