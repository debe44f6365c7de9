// Package postgres provides pgx-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the stores use. pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PoolConfig controls the shared connection pool.
type PoolConfig struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// NewPool creates a pgx connection pool and pings it once.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS okky_jobs (
		id BIGSERIAL PRIMARY KEY,
		link TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT '',
		deadline TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		career TEXT NOT NULL DEFAULT '',
		salary TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS okky_job_contacts (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (name, phone, email)
	)`,
	`CREATE TABLE IF NOT EXISTS okky_job_details (
		link TEXT PRIMARY KEY REFERENCES okky_jobs(link) ON DELETE CASCADE,
		registered_at TEXT NOT NULL DEFAULT '',
		view_count BIGINT NOT NULL DEFAULT 0,
		start_date TEXT NOT NULL DEFAULT '',
		work_location TEXT NOT NULL DEFAULT '',
		pay_date TEXT NOT NULL DEFAULT '',
		skill TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		contact_id BIGINT REFERENCES okky_job_contacts(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS crawl_logs (
		id BIGSERIAL PRIMARY KEY,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		ts TIMESTAMPTZ NOT NULL DEFAULT now(),
		progress INT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_crawl_logs_ts ON crawl_logs(ts)`,
	`CREATE INDEX IF NOT EXISTS idx_crawl_logs_kind ON crawl_logs(kind)`,
	`CREATE TABLE IF NOT EXISTS crawl_history (
		id BIGSERIAL PRIMARY KEY,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		duration_ms BIGINT,
		processed BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_crawl_history_started_at ON crawl_history(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_crawl_history_status ON crawl_history(status)`,
}

// Migrate creates the schema when it does not exist yet. Statements are
// individually idempotent so a partially created schema heals on restart.
func Migrate(ctx context.Context, db DB) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
