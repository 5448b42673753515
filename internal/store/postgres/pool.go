package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const applicationName = "nluhub"

// PoolConfig sizes the connection pool shared by every store opened through
// DB. Zero values take the defaults from ApplyDefaults.
type PoolConfig struct {
	// ConnString is a postgres:// URL or key=value DSN.
	ConnString string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration

	// ConnectTries bounds the attempts to reach the database at startup, so
	// the server can come up alongside a database that is still booting.
	ConnectTries uint
}

// ApplyDefaults fills unset fields.
func (c *PoolConfig) ApplyDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 20
	}
	if c.MinConns == 0 {
		c.MinConns = 2
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = time.Hour
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ConnectTries == 0 {
		c.ConnectTries = 5
	}
}

func (c *PoolConfig) Validate() error {
	switch {
	case c.ConnString == "":
		return errors.New("connection string is required")
	case c.MaxConns < 1:
		return errors.New("max conns must be positive")
	case c.MinConns < 0 || c.MinConns > c.MaxConns:
		return fmt.Errorf("min conns must be between 0 and max conns (%d)", c.MaxConns)
	}
	return nil
}

// pgxConfig translates c into a pgxpool configuration. Sessions are tagged
// with application_name so they can be told apart in pg_stat_activity.
func (c *PoolConfig) pgxConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	cfg.MaxConns = c.MaxConns
	cfg.MinConns = c.MinConns
	cfg.MaxConnLifetime = c.MaxConnLifetime
	cfg.MaxConnIdleTime = c.MaxConnIdleTime
	cfg.ConnConfig.ConnectTimeout = c.ConnectTimeout
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	return cfg, nil
}

// NewPool builds the pool and waits, with exponential backoff, until the
// database answers a ping.
func NewPool(ctx context.Context, c *PoolConfig) (*pgxpool.Pool, error) {
	if c == nil {
		return nil, errors.New("pool config is required")
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	cfg, err := c.pgxConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := pool.Ping(ctx)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("PostgreSQL not reachable yet")
		}
		return struct{}{}, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(c.ConnectTries))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database after %d attempts: %w", attempt, err)
	}

	return pool, nil
}
