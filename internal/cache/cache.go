// Package cache provides durable storage for compilation results.
// Uses SQLite with WAL mode for concurrent read access. The compiler
// core stays stateless; the cache is a collaborator owned by the CLI.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Cache stores generated output units keyed by source content and
// generator version.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Entry is one cached compilation.
type Entry struct {
	Key        string
	ModuleName string
	CCode      string
	MkCode     string
	CMakeCode  string
	BuildID    string
	CreatedAt  time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithNow overrides the timestamp source. Tests use this for
// deterministic created_at values.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Open creates or opens a SQLite cache at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	// to a single writer and avoid SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	c := &Cache{db: db, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Key derives the cache key for a source unit: SHA-256 over the source
// text and the generator version, hex-encoded.
func Key(source, version string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(version))
	return hex.EncodeToString(h.Sum(nil))
}

// Put inserts a cached compilation. Duplicate keys are silently
// ignored for idempotency: the first entry for a source wins, so
// replays keep their original build ID.
func (c *Cache) Put(ctx context.Context, e Entry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = c.now()
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO compilations
		(key, module_name, c_code, mk_code, cmake_code, build_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`,
		e.Key,
		e.ModuleName,
		e.CCode,
		e.MkCode,
		e.CMakeCode,
		e.BuildID,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put compilation: %w", err)
	}
	return nil
}

// Get looks up a cached compilation by key. The second result is false
// on a miss.
func (c *Cache) Get(ctx context.Context, key string) (Entry, bool, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT key, module_name, c_code, mk_code, cmake_code, build_id, created_at
		FROM compilations
		WHERE key = ?
	`, key)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get compilation: %w", err)
	}
	return e, true, nil
}

// List returns all entries, newest first.
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT key, module_name, c_code, mk_code, cmake_code, build_id, created_at
		FROM compilations
		ORDER BY created_at DESC, key
	`)
	if err != nil {
		return nil, fmt.Errorf("list compilations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list compilations: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list compilations: %w", err)
	}
	return entries, nil
}

// Clear removes all entries and returns how many were deleted.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM compilations`)
	if err != nil {
		return 0, fmt.Errorf("clear compilations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear compilations: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var createdAt string
	if err := row.Scan(&e.Key, &e.ModuleName, &e.CCode, &e.MkCode,
		&e.CMakeCode, &e.BuildID, &createdAt); err != nil {
		return Entry{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	e.CreatedAt = ts
	return e, nil
}
