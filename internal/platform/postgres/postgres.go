// Package postgres opens the database/sql pool backing the event outbox.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" driver

	"rwaledger/internal/platform/config"
	"rwaledger/pkg/platform/sentinel"
)

// DB is a pinged connection pool.
type DB struct {
	*sql.DB
}

// Open returns nil, nil when no DSN is configured.
func Open(ctx context.Context, cfg config.PostgresConfig) (*DB, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &DB{DB: db}, nil
}

func (db *DB) Name() string { return "postgres" }

func (db *DB) Health(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: postgres: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}
