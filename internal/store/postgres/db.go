package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/rs/zerolog/log"
)

// DB owns the connection pool shared by the PostgreSQL stores.
type DB struct {
	pool *pgxpool.Pool
	cfg  *StoreConfig

	// Lifecycle
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Open connects to PostgreSQL and, when enabled, applies pending migrations.
func Open(ctx context.Context, poolCfg *PoolConfig, cfg *StoreConfig) (*DB, error) {
	// Apply defaults and validate config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pool, err := NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("database", pool.Config().ConnConfig.Database).
		Str("host", pool.Config().ConnConfig.Host).
		Int32("max_conns", poolCfg.MaxConns).
		Msg("Connected to PostgreSQL")

	// Run migrations only if explicitly enabled
	if cfg.AutoMigrate {
		if err := runMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info().Msg("Database migrations completed")
	}

	return &DB{
		pool:   pool,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}, nil
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Stores returns every PostgreSQL-backed store sharing this pool.
func (db *DB) Stores() *store.Stores {
	c := conn{pool: db.pool, timeout: db.queryTimeout()}
	return &store.Stores{
		Principals:     &PrincipalStore{c},
		Organizations:  &OrganizationStore{c},
		Repositories:   &RepositoryStore{c},
		Authorizations: &AuthorizationStore{c},
		AccessRequests: &AccessRequestStore{c},
		Versions:       &VersionStore{c},
		Examples:       &ExampleStore{c},
	}
}

func (db *DB) queryTimeout() time.Duration {
	if db.cfg.QueryTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(db.cfg.QueryTimeoutSeconds) * time.Second
}

// Start starts background tasks.
func (db *DB) Start() error {
	log.Info().Msg("Starting PostgreSQL stores")

	// Start connection pool monitoring goroutine
	db.wg.Add(1)
	go func() {
		defer db.wg.Done()
		db.monitorConnectionPool()
	}()

	return nil
}

// Stop gracefully shuts down background tasks and closes connections.
func (db *DB) Stop() error {
	log.Info().Msg("Stopping PostgreSQL stores")

	// Signal shutdown
	close(db.stopCh)

	// Wait for background tasks
	db.wg.Wait()

	// Close connection pool
	db.pool.Close()

	log.Info().Msg("PostgreSQL stores stopped")
	return nil
}

// monitorConnectionPool logs connection pool statistics periodically.
func (db *DB) monitorConnectionPool() {
	ticker := time.NewTicker(time.Duration(db.cfg.PoolStatsIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := db.pool.Stat()
			log.Debug().
				Int32("total_conns", stats.TotalConns()).
				Int32("idle_conns", stats.IdleConns()).
				Int32("acquired_conns", stats.AcquiredConns()).
				Int64("acquire_count", stats.AcquireCount()).
				Int64("acquire_duration_ns", stats.AcquireDuration().Nanoseconds()).
				Msg("Connection pool stats")
		case <-db.stopCh:
			return
		}
	}
}

// conn is the pool handle and per-query timeout shared by the stores.
type conn struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// queryCtx bounds ctx by the configured query timeout, if any.
func (c conn) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
