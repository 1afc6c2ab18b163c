// Package db implements the catalogue data access layer on top of
// PostgreSQL. A single Store serves the registrar, the tracker and the API
// server; each of them consumes it through its own narrow interface.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cncf/clotributor/internal/config"
)

// NewPool creates the database connection pool from the db.* configuration.
func NewPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName,
	)
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("error creating database pool: %w", err)
	}
	return pool, nil
}

// Store provides the catalogue operations backed by PostgreSQL. It is safe
// for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store instance.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
