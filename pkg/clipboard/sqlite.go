package clipboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend stores entries in a single SQLite table.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the database at path.
// Use ":memory:" for a private in-memory database.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	schema := `
	PRAGMA journal_mode = WAL;
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS clipboard (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expires_at INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_clipboard_expires ON clipboard(expires_at);
	`
	_, err := b.db.Exec(schema)
	return err
}

func (*SQLiteBackend) Name() string { return "sqlite" }

// Get retrieves a value. Expired rows are deleted and reported as misses.
func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		data      []byte
		expiresAt sql.NullInt64
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT data, expires_at FROM clipboard WHERE key = ?`, key,
	).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query entry: %w", err)
	}
	if expiresAt.Valid && time.Now().UnixMilli() > expiresAt.Int64 {
		_, _ = b.db.ExecContext(ctx, `DELETE FROM clipboard WHERE key = ?`, key)
		return nil, false, nil
	}
	return data, true, nil
}

// Set upserts a value.
func (b *SQLiteBackend) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: time.Now().Add(ttl).UnixMilli(), Valid: true}
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO clipboard (key, data, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at
	`, key, data, expiresAt)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

// Delete removes a value.
func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM clipboard WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Purge deletes every expired row and returns how many were removed.
func (b *SQLiteBackend) Purge(ctx context.Context) (int64, error) {
	res, err := b.db.ExecContext(ctx,
		`DELETE FROM clipboard WHERE expires_at IS NOT NULL AND expires_at < ?`, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (b *SQLiteBackend) Close() error { return b.db.Close() }

var _ Backend = (*SQLiteBackend)(nil)
