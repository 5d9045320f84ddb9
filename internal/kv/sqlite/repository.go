package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ledger/internal/kv"
	applog "ledger/internal/log"

	_ "modernc.org/sqlite"
)

const (
	getValueSQL = `SELECT value FROM kv_entries WHERE key = ?`
	setValueSQL = `INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	removeValueSQL = `DELETE FROM kv_entries WHERE key = ?`
)

// Repository is a kv.Storage backed by a single SQLite table.
type Repository struct {
	db     *sql.DB
	logger *applog.Logger
}

// NewRepository opens dbPath, creating parent directories, and applies
// pending migrations. A nil logger discards output.
func NewRepository(dbPath string, logger *applog.Logger) (*Repository, error) {
	if logger == nil {
		logger = applog.Discard()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, logger: logger.WithComponent(applog.ComponentStorage)}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Get implements kv.Storage
func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, getValueSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Set implements kv.Storage
func (r *Repository) Set(ctx context.Context, key string, value []byte) error {
	if _, err := r.db.ExecContext(ctx, setValueSQL, key, value); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	r.logger.DebugContext(ctx, "Value written to SQLite", applog.FieldStorageKey, key, applog.FieldBytes, len(value))
	return nil
}

// Remove implements kv.Storage
func (r *Repository) Remove(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, removeValueSQL, key); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}
