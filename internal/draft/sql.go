package draft

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Dialect selects the SQL flavour of SQLBackend queries.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

type queries struct {
	get    string
	upsert string
	delete string
}

var sqliteQueries = queries{
	get: `SELECT value FROM drafts WHERE key = ?`,
	upsert: `
		INSERT INTO drafts (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	delete: `DELETE FROM drafts WHERE key = ?`,
}

var postgresQueries = queries{
	get: `SELECT value FROM drafts WHERE key = $1`,
	upsert: `
		INSERT INTO drafts (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
	delete: `DELETE FROM drafts WHERE key = $1`,
}

// SQLBackend stores values in the drafts table. The schema is created by
// internal.RunMigrations.
type SQLBackend struct {
	db  *sql.DB
	q   queries
	now func() time.Time
}

// NewSQLBackend creates a backend over an open, migrated database. Any
// dialect other than DialectPostgres uses SQLite queries.
func NewSQLBackend(db *sql.DB, dialect Dialect) *SQLBackend {
	q := sqliteQueries
	if dialect == DialectPostgres {
		q = postgresQueries
	}
	return &SQLBackend{db: db, q: q, now: time.Now}
}

func (b *SQLBackend) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := b.db.QueryRowContext(ctx, b.q.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select draft %s: %w", key, err)
	}
	return value, nil
}

func (b *SQLBackend) Set(ctx context.Context, key, value string) error {
	if _, err := b.db.ExecContext(ctx, b.q.upsert, key, value, b.now().UTC()); err != nil {
		return fmt.Errorf("upsert draft %s: %w", key, err)
	}
	return nil
}

func (b *SQLBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, b.q.delete, key); err != nil {
		return fmt.Errorf("delete draft %s: %w", key, err)
	}
	return nil
}
