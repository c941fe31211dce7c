package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache creates or opens the generation cache at path. Missing
// parent directories are created.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	c := &SQLiteCache{db: db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return c, nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteCache) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS generations (
			key TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			hits INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_generations_model ON generations(model);`,
	}

	for _, q := range queries {
		if _, err := c.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the stored text for key. A miss is not an error.
func (c *SQLiteCache) Get(ctx context.Context, key string) (string, bool, error) {
	var text string
	err := c.db.QueryRowContext(ctx, "SELECT text FROM generations WHERE key = ?", key).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if _, err := c.db.ExecContext(ctx, "UPDATE generations SET hits = hits + 1 WHERE key = ?", key); err != nil {
		return "", false, err
	}
	return text, true, nil
}

// Put upserts the generation for key.
func (c *SQLiteCache) Put(ctx context.Context, key, model, text string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO generations (key, model, text, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			model=excluded.model,
			text=excluded.text,
			created_at=excluded.created_at
	`, key, model, text, time.Now().Unix())
	return err
}

func (c *SQLiteCache) Count(ctx context.Context, model string) (int, error) {
	query := "SELECT COUNT(*) FROM generations"
	args := []any{}
	if model != "" {
		query += " WHERE model = ?"
		args = append(args, model)
	}

	var n int
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *SQLiteCache) Purge(ctx context.Context, model string) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var res sql.Result
	if model == "" {
		res, err = tx.ExecContext(ctx, "DELETE FROM generations")
	} else {
		res, err = tx.ExecContext(ctx, "DELETE FROM generations WHERE model = ?", model)
	}
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}
