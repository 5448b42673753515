package postgres

import (
	"fmt"
)

// StoreConfig holds store-specific configuration for the PostgreSQL stores.
// Pool configuration is handled separately via PoolConfig.
type StoreConfig struct {
	// AutoMigrate runs the embedded migrations when the database is opened.
	AutoMigrate bool

	// QueryTimeoutSeconds is the maximum time a query can run before timing out.
	// Default: 10 seconds
	// Set to -1 to use context timeouts only (no additional timeout)
	QueryTimeoutSeconds int32

	// PoolStatsIntervalSeconds is how often connection pool statistics are logged.
	// Default: 30 seconds
	PoolStatsIntervalSeconds int32
}

// Validate checks that the configuration is valid.
func (c *StoreConfig) Validate() error {
	if c.QueryTimeoutSeconds < -1 {
		return fmt.Errorf("query timeout must be -1 or positive")
	}

	if c.PoolStatsIntervalSeconds < 0 {
		return fmt.Errorf("pool stats interval must not be negative")
	}

	return nil
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *StoreConfig) ApplyDefaults() {
	if c.QueryTimeoutSeconds == 0 {
		c.QueryTimeoutSeconds = 10 // 10 seconds
	}
	if c.PoolStatsIntervalSeconds == 0 {
		c.PoolStatsIntervalSeconds = 30 // 30 seconds
	}
}
