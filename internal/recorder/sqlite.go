package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"gem-scanner/internal/logger"
)

// SQLiteRecorder persists to a local SQLite file.
type SQLiteRecorder struct {
	*sqlStore
	db *sql.DB
}

// NewSQLiteRecorder opens (or creates) the database at path and runs migrations.
func NewSQLiteRecorder(ctx context.Context, path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{
		sqlStore: &sqlStore{d: sqliteDialect, c: sqlConn{db}, now: time.Now, stop: db.Close},
		db:       db,
	}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info(ctx, "sqlite recorder opened", "path", path)
	return r, nil
}

// sqlConn adapts *sql.DB to conn.
type sqlConn struct {
	db *sql.DB
}

func (c sqlConn) exec(ctx context.Context, q string, args ...any) error {
	_, err := c.db.ExecContext(ctx, q, args...)
	return err
}

func (c sqlConn) queryRow(ctx context.Context, q string, args ...any) row {
	return c.db.QueryRowContext(ctx, q, args...)
}

func (c sqlConn) query(ctx context.Context, q string, args ...any) (rows, func(), error) {
	rs, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	return rs, func() { rs.Close() }, nil
}
