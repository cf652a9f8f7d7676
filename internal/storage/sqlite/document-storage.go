package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamvkosarev/bappa-chat/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// DocumentStorage keeps whole documents in a single SQLite table, one row
// per key.
type DocumentStorage struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*DocumentStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	// A single connection serializes writers; sqlite allows only one anyway.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}
	return &DocumentStorage{db: db}, nil
}

func (d *DocumentStorage) Close() error {
	return d.db.Close()
}

func (d *DocumentStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := d.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}
	return value, nil
}

func (d *DocumentStorage) Save(ctx context.Context, key string, value []byte) error {
	_, err := d.db.ExecContext(
		ctx,
		`INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", key, err)
	}
	return nil
}

func (d *DocumentStorage) Remove(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove document %s: %w", key, err)
	}
	return nil
}
