package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/stretchr/testify/require"
)

func TestNewPrincipalStore(t *testing.T) {
	st := NewPrincipalStore()
	require.NotNil(t, st)
}

func TestPrincipalStore_Create(t *testing.T) {
	t.Run("create new principal", func(t *testing.T) {
		st := NewPrincipalStore()
		ctx := context.Background()

		principal := &models.Principal{
			PrincipalID: uuid.Must(uuid.NewV7()),
			Name:        "alice",
			CreatedAt:   time.Now(),
		}

		err := st.Create(ctx, principal)
		require.NoError(t, err)
	})

	t.Run("create duplicate principal returns error", func(t *testing.T) {
		st := NewPrincipalStore()
		ctx := context.Background()

		principal := &models.Principal{
			PrincipalID: uuid.Must(uuid.NewV7()),
			Name:        "alice",
		}

		require.NoError(t, st.Create(ctx, principal))

		err := st.Create(ctx, principal)
		require.ErrorIs(t, err, store.ErrPrincipalAlreadyExists)
	})
}

func TestPrincipalStore_GetUpdate(t *testing.T) {
	st := NewPrincipalStore()
	ctx := context.Background()

	_, err := st.Get(ctx, uuid.New())
	require.ErrorIs(t, err, store.ErrPrincipalNotFound)

	email := "alice@example.com"
	principal := &models.Principal{
		PrincipalID: uuid.Must(uuid.NewV7()),
		Name:        "alice",
	}
	require.NoError(t, st.Create(ctx, principal))

	// mutating the caller's copy must not leak into the store
	principal.Name = "mallory"
	got, err := st.Get(ctx, principal.PrincipalID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Name)

	got.Email = &email
	require.NoError(t, st.Update(ctx, got))

	got, err = st.Get(ctx, principal.PrincipalID)
	require.NoError(t, err)
	require.NotNil(t, got.Email)
	require.Equal(t, email, *got.Email)

	err = st.Update(ctx, &models.Principal{PrincipalID: uuid.New()})
	require.ErrorIs(t, err, store.ErrPrincipalNotFound)
}
