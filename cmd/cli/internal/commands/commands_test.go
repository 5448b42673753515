package commands

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nluhub/nluhub/cmd/cli/internal/credentials"
)

func TestClientFlags_NewClient(t *testing.T) {
	globals := &Globals{Version: "test"}

	t.Run("principal header", func(t *testing.T) {
		f := &ClientFlags{Server: "http://localhost:8993", Principal: uuid.NewString()}
		c, err := f.newClient(globals)
		require.NoError(t, err)
		require.NotNil(t, c)
	})

	t.Run("invalid principal", func(t *testing.T) {
		f := &ClientFlags{Server: "http://localhost:8993", Principal: "not-a-uuid"}
		_, err := f.newClient(globals)
		require.ErrorContains(t, err, "invalid principal ID")
	})

	t.Run("missing server", func(t *testing.T) {
		f := &ClientFlags{Principal: uuid.NewString()}
		_, err := f.newClient(globals)
		require.ErrorContains(t, err, "no server URL")
	})

	t.Run("no credentials", func(t *testing.T) {
		f := &ClientFlags{StoreFlags: StoreFlags{CredentialsDir: t.TempDir()}}
		_, err := f.newClient(globals)
		require.ErrorIs(t, err, credentials.ErrNoDefaultCredential)
	})

	t.Run("unbound credential", func(t *testing.T) {
		dir := t.TempDir()
		store, err := credentials.Open(dir)
		require.NoError(t, err)
		_, err = store.Create("staging")
		require.NoError(t, err)

		f := &ClientFlags{StoreFlags: StoreFlags{CredentialsDir: dir}, Credential: "staging"}
		_, err = f.newClient(globals)
		require.ErrorIs(t, err, credentials.ErrCredentialNotBound)
	})

	t.Run("bound credential supplies server", func(t *testing.T) {
		dir := t.TempDir()
		store, err := credentials.Open(dir)
		require.NoError(t, err)
		_, err = store.Create("staging")
		require.NoError(t, err)
		_, err = store.Bind("staging", uuid.New(), "https://nlu.example.com")
		require.NoError(t, err)

		f := &ClientFlags{StoreFlags: StoreFlags{CredentialsDir: dir}}
		c, err := f.newClient(globals)
		require.NoError(t, err)
		require.NotNil(t, c)
	})
}

func TestClientFlags_LoadCredential(t *testing.T) {
	dir := t.TempDir()
	store, err := credentials.Open(dir)
	require.NoError(t, err)

	// local is the default and unbound, so a server match is needed
	for _, name := range []string{"local", "prod", "staging"} {
		_, err := store.Create(name)
		require.NoError(t, err)
	}
	prodPrincipal, stagingPrincipal := uuid.New(), uuid.New()
	_, err = store.Bind("prod", prodPrincipal, "https://nlu.example.com")
	require.NoError(t, err)
	_, err = store.Bind("staging", stagingPrincipal, "https://staging.nlu.example.com")
	require.NoError(t, err)

	tests := []struct {
		name          string
		flags         ClientFlags
		wantName      string
		wantPrincipal uuid.UUID
		wantErr       error
	}{
		{
			name:          "server selects its credential",
			flags:         ClientFlags{Server: "https://staging.nlu.example.com/"},
			wantName:      "staging",
			wantPrincipal: stagingPrincipal,
		},
		{
			name:          "credential flag overrides server",
			flags:         ClientFlags{Server: "https://staging.nlu.example.com", Credential: "prod"},
			wantName:      "prod",
			wantPrincipal: prodPrincipal,
		},
		{
			name:    "unknown server uses unbound default",
			flags:   ClientFlags{Server: "http://localhost:8993"},
			wantErr: credentials.ErrCredentialNotBound,
		},
		{
			name:    "unknown credential",
			flags:   ClientFlags{Credential: "missing"},
			wantErr: credentials.ErrCredentialNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.flags.CredentialsDir = dir
			cred, keyPEM, err := tt.flags.loadCredential()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantName, cred.Name)
			require.NotEmpty(t, keyPEM)

			principalID, err := cred.PrincipalID()
			require.NoError(t, err)
			require.Equal(t, tt.wantPrincipal, principalID)
		})
	}
}
