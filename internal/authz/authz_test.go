package authz

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/nluhub/nluhub/internal/store/memory"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	stores   *store.Stores
	resolver *Resolver
	org      uuid.UUID
	repo     *models.Repository
}

func newFixture(t *testing.T, isPrivate bool, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	stores := memory.NewStores()

	orgID := uuid.Must(uuid.NewV7())
	now := time.Now()
	require.NoError(t, stores.Principals.Create(ctx, &models.Principal{PrincipalID: orgID, Name: "acme", IsOrganization: true}))
	require.NoError(t, stores.Organizations.Create(ctx, &models.Organization{OrgID: orgID, Name: "acme", CreatedAt: now, UpdatedAt: now}))

	repo := &models.Repository{
		RepositoryID: uuid.Must(uuid.NewV7()),
		OwnerID:      orgID,
		Name:         "support bot",
		Slug:         "support-bot",
		Language:     "en",
		IsPrivate:    isPrivate,
		Config:       models.DefaultTrainingConfig(),
	}
	require.NoError(t, stores.Repositories.Create(ctx, repo))

	return &fixture{
		stores:   stores,
		resolver: NewResolver(stores, opts...),
		org:      orgID,
		repo:     repo,
	}
}

func (f *fixture) member(t *testing.T, role models.OrgRole) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV7())
	require.NoError(t, f.stores.Principals.Create(context.Background(), &models.Principal{PrincipalID: id, Name: "member"}))
	if role != models.OrgRoleNothing {
		require.NoError(t, f.stores.Organizations.SetMemberRole(context.Background(), f.org, id, role))
	}
	return id
}

func TestResolve_Levels(t *testing.T) {
	tests := []struct {
		name      string
		isPrivate bool
		orgRole   models.OrgRole
		repoRole  models.Role
		wantRole  models.Role
		wantLevel models.Level
	}{
		{"public stranger reads", false, models.OrgRoleNothing, models.RoleNotSet, models.RoleNotSet, models.LevelReader},
		{"private stranger sees nothing", true, models.OrgRoleNothing, models.RoleNotSet, models.RoleNotSet, models.LevelNothing},
		{"repository user reads private", true, models.OrgRoleNothing, models.RoleUser, models.RoleUser, models.LevelReader},
		{"repository contributor", true, models.OrgRoleNothing, models.RoleContributor, models.RoleContributor, models.LevelContributor},
		{"organization contributor", true, models.OrgRoleContributor, models.RoleNotSet, models.RoleContributor, models.LevelContributor},
		{"organization admin", true, models.OrgRoleAdmin, models.RoleNotSet, models.RoleAdmin, models.LevelAdmin},
		{"repository grant above organization", true, models.OrgRoleUser, models.RoleAdmin, models.RoleAdmin, models.LevelAdmin},
		{"translate tier does not promote", true, models.OrgRoleTranslate, models.RoleNotSet, models.RoleNotSet, models.LevelNothing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, tt.isPrivate)
			principal := f.member(t, tt.orgRole)
			if tt.repoRole != models.RoleNotSet {
				_, err := f.stores.Authorizations.SetRole(ctx, f.repo.RepositoryID, principal, tt.repoRole)
				require.NoError(t, err)
			}

			view, err := f.resolver.Resolve(ctx, f.repo.RepositoryID, principal)
			require.NoError(t, err)
			require.Equal(t, tt.wantRole, view.Role)
			require.Equal(t, tt.wantLevel, view.Level)
			require.False(t, view.IsOwner)
			require.NotNil(t, view.Authorization)
		})
	}
}

func TestResolve_Capabilities(t *testing.T) {
	tests := []struct {
		level                            models.Level
		canRead, canContribute, canWrite bool
	}{
		{models.LevelNothing, false, false, false},
		{models.LevelReader, true, false, false},
		{models.LevelContributor, true, true, false},
		{models.LevelAdmin, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			view := &models.AuthorizationView{Level: tt.level}
			require.Equal(t, tt.canRead, view.CanRead())
			require.Equal(t, tt.canContribute, view.CanContribute())
			require.Equal(t, tt.canWrite, view.CanWrite())
			require.Equal(t, tt.canWrite, view.IsAdmin())
		})
	}
}

func TestResolve_Anonymous(t *testing.T) {
	ctx := context.Background()

	public := newFixture(t, false)
	view, err := public.resolver.Resolve(ctx, public.repo.RepositoryID, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, models.LevelReader, view.Level)
	require.Nil(t, view.Authorization)

	private := newFixture(t, true)
	view, err = private.resolver.Resolve(ctx, private.repo.RepositoryID, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, models.LevelNothing, view.Level)

	// nothing persisted for anonymous callers
	_, err = private.stores.Authorizations.Get(ctx, private.repo.RepositoryID, uuid.Nil)
	require.ErrorIs(t, err, store.ErrAuthorizationNotFound)
}

func TestResolve_OwnerSupremacy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	// a stored record for the owner is ignored
	_, err := f.stores.Authorizations.SetRole(ctx, f.repo.RepositoryID, f.org, models.RoleNotSet)
	require.NoError(t, err)

	view, err := f.resolver.Resolve(ctx, f.repo.RepositoryID, f.org)
	require.NoError(t, err)
	require.True(t, view.IsOwner)
	require.Equal(t, models.LevelAdmin, view.Level)
	require.True(t, view.CanWrite())
}

func TestResolve_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	principal := f.member(t, models.OrgRoleContributor)

	first, err := f.resolver.Resolve(ctx, f.repo.RepositoryID, principal)
	require.NoError(t, err)
	second, err := f.resolver.Resolve(ctx, f.repo.RepositoryID, principal)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestResolve_HighWaterMark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	principal := f.member(t, models.OrgRoleAdmin)

	view, err := f.resolver.Resolve(ctx, f.repo.RepositoryID, principal)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, view.Role)

	rec, err := f.stores.Authorizations.Get(ctx, f.repo.RepositoryID, principal)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, rec.Role)

	for _, lowered := range []models.OrgRole{models.OrgRoleContributor, models.OrgRoleUser, models.OrgRoleNothing, models.OrgRoleTranslate} {
		require.NoError(t, f.stores.Organizations.SetMemberRole(ctx, f.org, principal, lowered))

		view, err := f.resolver.Resolve(ctx, f.repo.RepositoryID, principal)
		require.NoError(t, err)
		require.Equal(t, models.RoleAdmin, view.Role, "org role %s", lowered)
		require.Equal(t, models.LevelAdmin, view.Level)
	}
}

func TestResolve_PromotionCeiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, WithPromotionCeiling(models.OrgRoleAdmin))
	admin := f.member(t, models.OrgRoleAdmin)
	contributor := f.member(t, models.OrgRoleContributor)

	view, err := f.resolver.Resolve(ctx, f.repo.RepositoryID, admin)
	require.NoError(t, err)
	require.Equal(t, models.RoleNotSet, view.Role)

	view, err = f.resolver.Resolve(ctx, f.repo.RepositoryID, contributor)
	require.NoError(t, err)
	require.Equal(t, models.RoleContributor, view.Role)
}

func TestResolve_ConcurrentFirstAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	principal := f.member(t, models.OrgRoleUser)

	const n = 16
	views := make([]*models.AuthorizationView, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			views[i], errs[i] = f.resolver.Resolve(ctx, f.repo.RepositoryID, principal)
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		require.Equal(t, views[0].Authorization.AuthorizationID, views[i].Authorization.AuthorizationID)
		require.Equal(t, models.RoleUser, views[i].Role)
	}
}

func TestResolve_UnknownRepository(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.resolver.Resolve(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, store.ErrRepositoryNotFound)
}

func TestSetRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	admin := f.member(t, models.OrgRoleAdmin)
	outsider := f.member(t, models.OrgRoleNothing)
	target := f.member(t, models.OrgRoleNothing)

	t.Run("admin grants a role", func(t *testing.T) {
		rec, err := f.resolver.SetRole(ctx, f.repo.RepositoryID, admin, target, models.RoleContributor)
		require.NoError(t, err)
		require.Equal(t, models.RoleContributor, rec.Role)

		view, err := f.resolver.Resolve(ctx, f.repo.RepositoryID, target)
		require.NoError(t, err)
		require.Equal(t, models.LevelContributor, view.Level)
	})

	t.Run("admin may lower a role", func(t *testing.T) {
		rec, err := f.resolver.SetRole(ctx, f.repo.RepositoryID, admin, target, models.RoleUser)
		require.NoError(t, err)
		require.Equal(t, models.RoleUser, rec.Role)
	})

	t.Run("non admin is denied", func(t *testing.T) {
		_, err := f.resolver.SetRole(ctx, f.repo.RepositoryID, outsider, target, models.RoleAdmin)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("owner cannot be targeted", func(t *testing.T) {
		_, err := f.resolver.SetRole(ctx, f.repo.RepositoryID, admin, f.org, models.RoleUser)
		require.ErrorIs(t, err, ErrOwnerRole)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := f.resolver.SetRole(ctx, f.repo.RepositoryID, admin, target, models.Role(42))
		require.ErrorIs(t, err, ErrInvalidRole)
	})
}
