package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := &PoolConfig{ConnString: "postgres://nlu@localhost:5432/nluhub"}
		c.ApplyDefaults()
		require.NoError(t, c.Validate())

		cfg, err := c.pgxConfig()
		require.NoError(t, err)
		assert.Equal(t, int32(20), cfg.MaxConns)
		assert.Equal(t, int32(2), cfg.MinConns)
		assert.Equal(t, time.Hour, cfg.MaxConnLifetime)
		assert.Equal(t, 10*time.Second, cfg.ConnConfig.ConnectTimeout)
		assert.Equal(t, applicationName, cfg.ConnConfig.RuntimeParams["application_name"])
	})

	t.Run("keeps application name from the connection string", func(t *testing.T) {
		c := &PoolConfig{ConnString: "postgres://nlu@localhost:5432/nluhub?application_name=worker"}
		c.ApplyDefaults()

		cfg, err := c.pgxConfig()
		require.NoError(t, err)
		assert.Equal(t, "worker", cfg.ConnConfig.RuntimeParams["application_name"])
	})

	invalid := []struct {
		name string
		cfg  PoolConfig
	}{
		{name: "no connection string", cfg: PoolConfig{}},
		{name: "min above max", cfg: PoolConfig{ConnString: "postgres://localhost/nluhub", MaxConns: 2, MinConns: 3}},
		{name: "negative max", cfg: PoolConfig{ConnString: "postgres://localhost/nluhub", MaxConns: -1}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.cfg
			c.ApplyDefaults()
			require.Error(t, c.Validate())
		})
	}

	t.Run("unparseable connection string", func(t *testing.T) {
		c := &PoolConfig{ConnString: "postgres://localhost:notaport/nluhub"}
		c.ApplyDefaults()
		_, err := c.pgxConfig()
		require.ErrorContains(t, err, "failed to parse connection string")
	})
}
