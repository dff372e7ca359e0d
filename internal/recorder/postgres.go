package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gem-scanner/internal/logger"
)

// PostgresRecorder persists to Postgres through a pgx pool.
type PostgresRecorder struct {
	*sqlStore
	pool *pgxpool.Pool
}

// NewPostgresRecorder connects to dsn, verifies the connection and migrates.
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	r := &PostgresRecorder{
		sqlStore: &sqlStore{
			d:   postgresDialect,
			c:   pgxConn{pool},
			now: time.Now,
			stop: func() error {
				pool.Close()
				return nil
			},
		},
		pool: pool,
	}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info(ctx, "postgres recorder connected", "host", config.ConnConfig.Host, "database", config.ConnConfig.Database)
	return r, nil
}

// pgxConn adapts *pgxpool.Pool to conn.
type pgxConn struct {
	pool *pgxpool.Pool
}

func (c pgxConn) exec(ctx context.Context, q string, args ...any) error {
	_, err := c.pool.Exec(ctx, q, args...)
	return err
}

func (c pgxConn) queryRow(ctx context.Context, q string, args ...any) row {
	return c.pool.QueryRow(ctx, q, args...)
}

func (c pgxConn) query(ctx context.Context, q string, args ...any) (rows, func(), error) {
	rs, err := c.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	return rs, rs.Close, nil
}
