package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotInitialized is returned when a repository is used before InitDB.
var ErrNotInitialized = errors.New("database pool not initialized")

var (
	pool *pgxpool.Pool
	mu   sync.Mutex
)

// DBTX is the subset of *pgxpool.Pool the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// InitDB initializes the connection pool. An empty url falls back to the
// DATABASE_URL environment variable. Calling it again while a pool is open is a no-op.
func InitDB(ctx context.Context, dbURL string) error {
	mu.Lock()
	defer mu.Unlock()
	if pool != nil {
		return nil
	}

	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}
	p, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return fmt.Errorf("failed to reach database: %w", err)
	}
	pool = p
	return nil
}

// GetPool returns the database connection pool, or nil before InitDB.
func GetPool() *pgxpool.Pool {
	mu.Lock()
	defer mu.Unlock()
	return pool
}

// Close closes the database connection pool
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if pool != nil {
		pool.Close()
		pool = nil
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS valuation_runs (
	run_id     UUID PRIMARY KEY,
	property   TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS valuation_runs_property_idx ON valuation_runs (property, created_at DESC);
`

// EnsureSchema creates the valuation_runs table when missing.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if db == nil {
		return ErrNotInitialized
	}
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
