package commands

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nluhub/nluhub/internal/api"
)

func TestParseEntities(t *testing.T) {
	tests := []struct {
		name    string
		specs   []string
		want    []api.Entity
		wantErr bool
	}{
		{name: "empty", specs: nil, want: []api.Entity{}},
		{
			name:  "single",
			specs: []string{"5:11:city"},
			want:  []api.Entity{{Start: 5, End: 11, Entity: "city"}},
		},
		{
			name:  "name with colon",
			specs: []string{"0:3:ns:thing"},
			want:  []api.Entity{{Start: 0, End: 3, Entity: "ns:thing"}},
		},
		{name: "missing name", specs: []string{"0:3"}, wantErr: true},
		{name: "empty name", specs: []string{"0:3:"}, wantErr: true},
		{name: "not a number", specs: []string{"a:3:city"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEntities(tt.specs)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
