// Package postgres stores the world model in a single PostgreSQL table of
// JSONB entities, accessed through pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/config"
)

// ErrSchemaMissing is returned by CheckSchema when the world_entities table
// has not been created. Run cmd/migrate first.
var ErrSchemaMissing = errors.New("world_entities table missing; run the migrate command")

// Pool owns the connection pool shared by the entity repository and the
// health probe.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the world database and pings it once. Pool limits left
// at zero keep the pgx defaults.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a connected Pool or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool for %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging world database %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	return &Pool{pool: pool}, nil
}

// CheckSchema verifies the migrated world table exists.
//
// Postcondition: Returns nil, ErrSchemaMissing, or a query error.
func (p *Pool) CheckSchema(ctx context.Context) error {
	var present bool
	err := p.pool.QueryRow(ctx, `SELECT to_regclass('world_entities') IS NOT NULL`).Scan(&present)
	if err != nil {
		return fmt.Errorf("checking world schema: %w", err)
	}
	if !present {
		return ErrSchemaMissing
	}
	return nil
}

// Health pings the database and checks the schema within timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.pool.Ping(ctx); err != nil {
		return err
	}
	return p.CheckSchema(ctx)
}

// Entities returns a world.Store over this pool.
func (p *Pool) Entities() *EntityRepository {
	return NewEntityRepository(p.pool)
}

func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
