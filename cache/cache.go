// Package cache stores derived per-resource artifacts (extracted
// metadata, previews, thumbnails) keyed by content id. Because keys are
// content-derived, entries never go stale; they are only ever evicted
// for space. The backing store is a single SQLite database inside the
// root's control directory.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mwantia/resfs/data"
	"github.com/mwantia/resfs/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	id       TEXT    NOT NULL,
	kind     TEXT    NOT NULL,
	value    BLOB    NOT NULL,
	size     INTEGER NOT NULL,
	accessed INTEGER NOT NULL,
	PRIMARY KEY (id, kind)
);
CREATE INDEX IF NOT EXISTS artifacts_accessed ON artifacts (accessed);
`

// Cache is a byte-budgeted artifact store. When a write pushes the
// total past the configured limit, the least recently used entries are
// evicted until the budget holds again.
type Cache struct {
	db    *sql.DB
	log   *log.Logger
	limit int64
}

// Options configure a cache.
type Options struct {
	Logger *log.Logger

	// Limit is the byte budget for stored values. Zero means unlimited.
	Limit int64
}

type Option func(*Options)

func WithLogger(logger *log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithLimit(bytes int64) Option {
	return func(o *Options) {
		o.Limit = bytes
	}
}

func newDefaultOptions() *Options {
	return &Options{
		Logger: log.Discard(),
	}
}

// Open creates or opens the cache database at the given path.
func Open(path string, opts ...Option) (*Cache, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", data.ErrIO, path, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", data.ErrStorage, path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %v", data.ErrStorage, path, err)
	}

	return &Cache{
		db:    db,
		log:   options.Logger,
		limit: options.Limit,
	}, nil
}

// Put stores one artifact, replacing any previous value for the same
// id and kind, then evicts if over budget.
func (c *Cache) Put(id data.ResourceID, kind string, value []byte) error {
	_, err := c.db.Exec(
		`INSERT INTO artifacts (id, kind, value, size, accessed)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id, kind) DO UPDATE SET
			value = excluded.value,
			size = excluded.size,
			accessed = excluded.accessed`,
		string(id), kind, value, int64(len(value)), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("%w: put %s/%s: %v", data.ErrStorage, id, kind, err)
	}

	return c.evict()
}

// Get returns the stored artifact and refreshes its recency.
// ErrNotFound if nothing is cached for this id and kind.
func (c *Cache) Get(id data.ResourceID, kind string) ([]byte, error) {
	var value []byte
	err := c.db.QueryRow(
		`SELECT value FROM artifacts WHERE id = ? AND kind = ?`,
		string(id), kind).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", data.ErrNotFound, id, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s/%s: %v", data.ErrStorage, id, kind, err)
	}

	if _, err := c.db.Exec(
		`UPDATE artifacts SET accessed = ? WHERE id = ? AND kind = ?`,
		time.Now().UnixNano(), string(id), kind); err != nil {
		c.log.Warn("recency update for %s/%s failed: %v", id, kind, err)
	}

	return value, nil
}

// Delete drops one artifact. ErrNotFound if it was not cached.
func (c *Cache) Delete(id data.ResourceID, kind string) error {
	result, err := c.db.Exec(
		`DELETE FROM artifacts WHERE id = ? AND kind = ?`,
		string(id), kind)
	if err != nil {
		return fmt.Errorf("%w: delete %s/%s: %v", data.ErrStorage, id, kind, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s/%s", data.ErrNotFound, id, kind)
	}
	return nil
}

// Len reports the number of cached artifacts.
func (c *Cache) Len() (int, error) {
	var count int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM artifacts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %v", data.ErrStorage, err)
	}
	return count, nil
}

// Size reports the total bytes of cached values.
func (c *Cache) Size() (int64, error) {
	var total sql.NullInt64
	if err := c.db.QueryRow(`SELECT SUM(size) FROM artifacts`).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: %v", data.ErrStorage, err)
	}
	return total.Int64, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// evict drops least-recently-used artifacts until the byte budget
// holds. A single artifact larger than the whole budget is evicted
// immediately after being stored rather than pinning the cache over
// limit.
func (c *Cache) evict() error {
	if c.limit <= 0 {
		return nil
	}

	total, err := c.Size()
	if err != nil {
		return err
	}

	for total > c.limit {
		var id, kind string
		var size int64
		err := c.db.QueryRow(
			`SELECT id, kind, size FROM artifacts ORDER BY accessed ASC LIMIT 1`).
			Scan(&id, &kind, &size)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: evict: %v", data.ErrStorage, err)
		}

		if _, err := c.db.Exec(
			`DELETE FROM artifacts WHERE id = ? AND kind = ?`, id, kind); err != nil {
			return fmt.Errorf("%w: evict %s/%s: %v", data.ErrStorage, id, kind, err)
		}

		c.log.Debug("evicted %s/%s (%d bytes)", id, kind, size)
		total -= size
	}

	return nil
}
