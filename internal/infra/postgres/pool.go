package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PoolConfig struct {
	MaxConns         int32
	MaxConnLifetime  time.Duration
	LockTimeout      time.Duration // applied as the lock_timeout session parameter
	StatementTimeout time.Duration // applied as the statement_timeout session parameter
}

func NewPool(ctx context.Context, dsn string, cfg PoolConfig) (*pgxpool.Pool, error) {
	// Parse pool configuration for PostgreSQL connection.
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	// Every connection waits on row locks and statements for a bounded time only.
	params := poolConfig.ConnConfig.RuntimeParams
	if cfg.LockTimeout > 0 {
		params["lock_timeout"] = millis(cfg.LockTimeout)
	}
	if cfg.StatementTimeout > 0 {
		params["statement_timeout"] = millis(cfg.StatementTimeout)
	}

	// Initialize connection pool for PostgreSQL.
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

func millis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}
