package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	t.Run("embedded", func(t *testing.T) {
		migrations, err := loadMigrations(migrationsFS, "migrations")
		require.NoError(t, err)
		require.NotEmpty(t, migrations)
		require.Equal(t, 1, migrations[0].version)
		require.Contains(t, migrations[0].sql, "CREATE TABLE examples")
	})

	t.Run("ordered by version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/10_late.sql":  {Data: []byte("SELECT 10")},
			"m/2_second.sql": {Data: []byte("SELECT 2")},
			"m/1_first.sql":  {Data: []byte("SELECT 1")},
			"m/README.md":    {Data: []byte("ignored")},
		}
		migrations, err := loadMigrations(fsys, "m")
		require.NoError(t, err)

		var names []string
		for _, m := range migrations {
			names = append(names, m.name)
		}
		require.Equal(t, []string{"1_first.sql", "2_second.sql", "10_late.sql"}, names)
	})

	tests := []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{
			name:  "duplicate version",
			files: fstest.MapFS{"m/1_a.sql": {}, "m/01_b.sql": {}},
			want:  "share version 1",
		},
		{
			name:  "missing version",
			files: fstest.MapFS{"m/initial.sql": {}},
			want:  "positive version",
		},
		{
			name:  "zero version",
			files: fstest.MapFS{"m/0_initial.sql": {}},
			want:  "positive version",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadMigrations(tt.files, "m")
			require.ErrorContains(t, err, tt.want)
		})
	}
}
