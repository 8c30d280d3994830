package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"strategy-alerts/internal/config"
)

// Open returns the backend selected by cfg.Driver. The schema is created
// when cfg.AutoMigrate is set.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Repository, error) {
	var (
		repo Repository
		err  error
	)

	switch cfg.Driver {
	case config.DriverPostgres:
		var pool *pgxpool.Pool
		pool, err = NewPool(ctx, cfg)
		if err == nil {
			repo = NewStore(pool)
		}
	case config.DriverSQLite:
		repo, err = OpenSQLite(cfg.Path)
	case config.DriverMemory:
		repo = NewMemoryStore()
	default:
		err = fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close()
			return nil, err
		}
	}
	return repo, nil
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}
