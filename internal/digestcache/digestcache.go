// Package digestcache caches wheel content digests in SQLite so repeated
// index synthesis (watch mode in particular) skips rehashing unchanged
// files. A wheel is considered unchanged when filename, size and mtime all
// match the cached row.
package digestcache

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Cache is a SQLite-backed digest cache. The zero value is not usable; use
// Open. A nil *Cache is valid and behaves as a cache that never hits.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) a digest cache at dbPath. Use ":memory:"
// for an ephemeral cache.
func Open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	c := &Cache{db: db}
	if err := c.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return c, nil
}

func (c *Cache) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS digests (
		filename TEXT NOT NULL,
		size INTEGER NOT NULL,
		mtime INTEGER NOT NULL,
		sha256 TEXT NOT NULL,
		PRIMARY KEY (filename, size, mtime)
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Get returns the cached digest for (filename, size, mtime), or "" when the
// cache has no matching row.
func (c *Cache) Get(filename string, size, mtime int64) (string, error) {
	if c == nil {
		return "", nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var digest string
	err := c.db.QueryRow(
		"SELECT sha256 FROM digests WHERE filename = ? AND size = ? AND mtime = ?",
		filename, size, mtime,
	).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query digest: %w", err)
	}
	return digest, nil
}

// Put stores a digest, replacing any stale rows for the same filename.
func (c *Cache) Put(filename string, size, mtime int64, digest string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec("DELETE FROM digests WHERE filename = ?", filename); err != nil {
		return fmt.Errorf("evict stale digest: %w", err)
	}
	if _, err := c.db.Exec(
		"INSERT INTO digests (filename, size, mtime, sha256) VALUES (?, ?, ?, ?)",
		filename, size, mtime, digest,
	); err != nil {
		return fmt.Errorf("insert digest: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}
