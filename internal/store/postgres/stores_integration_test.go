//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgresContainer(t *testing.T, ctx context.Context) (*store.Stores, func()) {
	// Start postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	// Open with auto-migrate enabled
	db, err := Open(ctx, &PoolConfig{ConnString: connString}, &StoreConfig{AutoMigrate: true})
	require.NoError(t, err)

	err = db.Start()
	require.NoError(t, err)

	cleanup := func() {
		_ = db.Stop()
		_ = container.Terminate(ctx)
	}

	return db.Stores(), cleanup
}

func createPrincipal(t *testing.T, ctx context.Context, stores *store.Stores, name string) uuid.UUID {
	now := time.Now()
	p := &models.Principal{PrincipalID: uuid.Must(uuid.NewV7()), Name: name, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, stores.Principals.Create(ctx, p))
	return p.PrincipalID
}

func createRepository(t *testing.T, ctx context.Context, stores *store.Stores, ownerID uuid.UUID, slug string) *models.Repository {
	now := time.Now()
	repo := &models.Repository{
		RepositoryID: uuid.Must(uuid.NewV7()),
		OwnerID:      ownerID,
		Name:         slug,
		Slug:         slug,
		Language:     "en",
		IsPrivate:    true,
		Config:       models.DefaultTrainingConfig(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, stores.Repositories.Create(ctx, repo))
	return repo
}

func TestIntegration_Stores(t *testing.T) {
	ctx := context.Background()
	stores, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	owner := createPrincipal(t, ctx, stores, "owner")
	member := createPrincipal(t, ctx, stores, "member")
	repo := createRepository(t, ctx, stores, owner, "bot")

	t.Run("repository slug is unique per owner", func(t *testing.T) {
		dup := *repo
		dup.RepositoryID = uuid.Must(uuid.NewV7())
		require.ErrorIs(t, stores.Repositories.Create(ctx, &dup), store.ErrRepositoryAlreadyExists)
	})

	t.Run("update config returns previous", func(t *testing.T) {
		next := models.TrainingConfig{Algorithm: models.AlgorithmTransformerDIET, UseAnalyzeChar: true}
		previous, err := stores.Repositories.UpdateConfig(ctx, repo.RepositoryID, next)
		require.NoError(t, err)
		require.Equal(t, models.DefaultTrainingConfig(), previous)

		got, err := stores.Repositories.Get(ctx, repo.RepositoryID)
		require.NoError(t, err)
		require.Equal(t, next, got.Config)
	})

	t.Run("concurrent ensure converges", func(t *testing.T) {
		const n = 10
		ids := make([]uuid.UUID, n)
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec, err := stores.Authorizations.Ensure(ctx, repo.RepositoryID, member)
				if err == nil {
					ids[i] = rec.AuthorizationID
				}
			}()
		}
		wg.Wait()

		for _, id := range ids {
			require.Equal(t, ids[0], id)
		}
	})

	t.Run("promote never lowers", func(t *testing.T) {
		rec, promoted, err := stores.Authorizations.PromoteRole(ctx, repo.RepositoryID, member, models.RoleContributor)
		require.NoError(t, err)
		require.True(t, promoted)
		require.Equal(t, models.RoleContributor, rec.Role)

		rec, promoted, err = stores.Authorizations.PromoteRole(ctx, repo.RepositoryID, member, models.RoleUser)
		require.NoError(t, err)
		require.False(t, promoted)
		require.Equal(t, models.RoleContributor, rec.Role)
	})

	t.Run("ensure with unknown principal", func(t *testing.T) {
		_, err := stores.Authorizations.Ensure(ctx, repo.RepositoryID, uuid.New())
		require.ErrorIs(t, err, store.ErrPrincipalNotFound)
	})

	t.Run("approve exactly once", func(t *testing.T) {
		requester := createPrincipal(t, ctx, stores, "requester")
		now := time.Now()
		req := &models.AccessRequest{
			RequestID:    uuid.Must(uuid.NewV7()),
			RepositoryID: repo.RepositoryID,
			PrincipalID:  requester,
			Text:         "let me in",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		require.NoError(t, stores.AccessRequests.Create(ctx, req))

		dup := *req
		dup.RequestID = uuid.Must(uuid.NewV7())
		require.ErrorIs(t, stores.AccessRequests.Create(ctx, &dup), store.ErrAccessRequestAlreadyExists)

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := stores.AccessRequests.Approve(ctx, req.RequestID, owner); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load())

		_, err := stores.AccessRequests.Approve(ctx, uuid.New(), owner)
		require.ErrorIs(t, err, store.ErrAccessRequestNotFound)
	})

	t.Run("versions and training", func(t *testing.T) {
		master := &models.RepositoryVersion{
			VersionID: uuid.Must(uuid.NewV7()), RepositoryID: repo.RepositoryID,
			Name: "master", IsDefault: true, CreatedBy: &owner, CreatedAt: time.Now(),
		}
		require.NoError(t, stores.Versions.CreateVersion(ctx, master))

		next := &models.RepositoryVersion{
			VersionID: uuid.Must(uuid.NewV7()), RepositoryID: repo.RepositoryID,
			Name: "next", CreatedAt: time.Now(),
		}
		require.NoError(t, stores.Versions.CreateVersion(ctx, next))
		require.NoError(t, stores.Versions.SetDefaultVersion(ctx, repo.RepositoryID, next.VersionID))

		def, err := stores.Versions.GetDefaultVersion(ctx, repo.RepositoryID)
		require.NoError(t, err)
		require.Equal(t, next.VersionID, def.VersionID)

		vl, err := stores.Versions.EnsureLanguage(ctx, next.VersionID, "en")
		require.NoError(t, err)
		again, err := stores.Versions.EnsureLanguage(ctx, next.VersionID, "en")
		require.NoError(t, err)
		require.Equal(t, vl.ID, again.ID)

		_, err = stores.Versions.EnsureLanguage(ctx, uuid.New(), "en")
		require.ErrorIs(t, err, store.ErrVersionNotFound)

		started := time.Now().UTC().Truncate(time.Microsecond)
		cfg := models.DefaultTrainingConfig()
		vl.TrainingStartedAt = &started
		vl.TrainedBy = &owner
		vl.TrainedConfig = &cfg
		vl.Artifact = &models.ArtifactRef{Checksum: "abc", Size: 3, Data: []byte{1, 2, 3}}
		require.NoError(t, stores.Versions.UpdateTraining(ctx, vl))

		latest, err := stores.Versions.LatestTrained(ctx, repo.RepositoryID, "en")
		require.NoError(t, err)
		require.Equal(t, vl.ID, latest.ID)
		require.Equal(t, models.TrainingStateTraining, latest.State())
		require.Equal(t, cfg, *latest.TrainedConfig)
		require.Equal(t, "abc", latest.Artifact.Checksum)
	})

	t.Run("examples and stats", func(t *testing.T) {
		def, err := stores.Versions.GetDefaultVersion(ctx, repo.RepositoryID)
		require.NoError(t, err)
		vl, err := stores.Versions.EnsureLanguage(ctx, def.VersionID, "pt_br")
		require.NoError(t, err)

		ex := &models.Example{
			ExampleID:         uuid.Must(uuid.NewV7()),
			VersionLanguageID: vl.ID,
			Text:              "ola mundo",
			Intent:            "greet",
			Entities:          []models.ExampleEntity{{Start: 4, End: 9, Entity: "place"}},
			CreatedAt:         time.Now(),
		}
		require.NoError(t, stores.Examples.CreateExample(ctx, ex))

		visible, err := stores.Examples.ListVisible(ctx, vl.ID)
		require.NoError(t, err)
		require.Len(t, visible, 1)
		require.Equal(t, ex.Entities, visible[0].Entities)

		require.NoError(t, stores.Examples.SoftDeleteExample(ctx, ex.ExampleID, vl.ID, time.Now()))
		require.ErrorIs(t, stores.Examples.SoftDeleteExample(ctx, ex.ExampleID, vl.ID, time.Now()), store.ErrExampleNotFound)
		require.ErrorIs(t, stores.Examples.SoftDeleteExample(ctx, ex.ExampleID, uuid.New(), time.Now()), store.ErrExampleNotFound)

		visible, err = stores.Examples.ListVisible(ctx, vl.ID)
		require.NoError(t, err)
		require.Empty(t, visible)

		stats, err := stores.Examples.Stats(ctx, vl.ID)
		require.NoError(t, err)
		require.Equal(t, 1, stats.ExamplesAdded)
		require.NotNil(t, stats.LastChangeAt)
	})

	t.Run("repository delete cascades", func(t *testing.T) {
		require.NoError(t, stores.Repositories.Delete(ctx, repo.RepositoryID))

		_, err := stores.Authorizations.Get(ctx, repo.RepositoryID, member)
		require.ErrorIs(t, err, store.ErrAuthorizationNotFound)

		_, err = stores.Versions.GetDefaultVersion(ctx, repo.RepositoryID)
		require.ErrorIs(t, err, store.ErrVersionNotFound)
	})
}
