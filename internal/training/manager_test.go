package training

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/artifact"
	"github.com/nluhub/nluhub/internal/authz"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/nluhub/nluhub/internal/store/memory"
	"github.com/nluhub/nluhub/internal/validation"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	stores   *store.Stores
	manager  *Manager
	owner    uuid.UUID
	repo     *models.Repository
	version  *models.RepositoryVersion
	vl       *models.RepositoryVersionLanguage
	clock    time.Time
	resolver *authz.Resolver
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		stores: memory.NewStores(),
		clock:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.owner = f.principal(t)

	f.repo = &models.Repository{
		RepositoryID: uuid.Must(uuid.NewV7()),
		OwnerID:      f.owner,
		Name:         "weather bot",
		Slug:         "weather-bot",
		Language:     "en",
		IsPrivate:    true,
		Config:       models.DefaultTrainingConfig(),
	}
	require.NoError(t, f.stores.Repositories.Create(ctx, f.repo))

	f.resolver = authz.NewResolver(f.stores)
	opts = append([]Option{WithClock(f.tick)}, opts...)
	f.manager = NewManager(f.stores, f.resolver, opts...)

	var err error
	f.version, err = f.manager.CreateVersion(ctx, f.repo.RepositoryID, f.owner, "master", false)
	require.NoError(t, err)
	require.True(t, f.version.IsDefault)

	f.vl, err = f.manager.EnsureVersionLanguage(ctx, f.version.VersionID, "en")
	require.NoError(t, err)

	return f
}

// tick advances the clock one second per call so every stamp is distinct.
func (f *fixture) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fixture) principal(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV7())
	require.NoError(t, f.stores.Principals.Create(context.Background(), &models.Principal{PrincipalID: id, Name: "p"}))
	return id
}

func (f *fixture) addExample(t *testing.T, intent string, entities ...string) *models.Example {
	t.Helper()
	in := ExampleInput{Text: "hello there my friend", Intent: intent}
	for _, e := range entities {
		in.Entities = append(in.Entities, EntityInput{Start: 0, End: 5, Entity: e})
	}
	example, err := f.manager.AddExample(context.Background(), f.vl.ID, f.owner, in)
	require.NoError(t, err)
	return example
}

func (f *fixture) readiness(t *testing.T) *Report {
	t.Helper()
	report, err := f.manager.Readiness(context.Background(), f.vl.ID)
	require.NoError(t, err)
	return report
}

func (f *fixture) train(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.manager.StartTraining(ctx, f.vl.ID, f.owner)
	require.NoError(t, err)
	_, err = f.manager.CompleteTraining(ctx, f.vl.ID, []byte("model"))
	require.NoError(t, err)
}

func TestReadiness_IntentWithTwoExamples(t *testing.T) {
	f := newFixture(t)
	f.addExample(t, "greet")
	f.addExample(t, "greet")

	report := f.readiness(t)
	require.True(t, report.Ready)
	require.Empty(t, report.Blocking)
	require.Equal(t, ReasonNeverTrained, report.Reason)
	require.Equal(t, models.TrainingStateFresh, report.State)
}

func TestReadiness_IntentWithOneExample(t *testing.T) {
	f := newFixture(t)
	f.addExample(t, "greet")

	report := f.readiness(t)
	require.False(t, report.Ready)
	require.Equal(t, []string{`intent "greet" has 1 example, needs at least 2`}, report.Blocking)
	require.Equal(t, ReasonBlocked, report.Reason)
}

func TestReadiness_EntityAnnotations(t *testing.T) {
	f := newFixture(t)
	f.addExample(t, "greet", "name")
	f.addExample(t, "greet")

	report := f.readiness(t)
	require.False(t, report.Ready)
	require.Equal(t, []string{`entity "name" has 1 annotated example, needs at least 2`}, report.Blocking)

	f.addExample(t, "greet", "name")

	report = f.readiness(t)
	require.True(t, report.Ready)
	require.Empty(t, report.Blocking)
}

func TestReadiness_NoContent(t *testing.T) {
	f := newFixture(t)

	report := f.readiness(t)
	require.False(t, report.Ready)
	require.Equal(t, ReasonNoContent, report.Reason)
}

func TestReadiness_Deletion(t *testing.T) {
	t.Run("excess example keeps ready", func(t *testing.T) {
		f := newFixture(t)
		first := f.addExample(t, "greet")
		f.addExample(t, "greet")
		f.addExample(t, "greet")
		require.True(t, f.readiness(t).Ready)

		require.NoError(t, f.manager.DeleteExample(context.Background(), first.ExampleID, f.vl.ID, f.owner))
		require.True(t, f.readiness(t).Ready)
	})

	t.Run("dropping below minimum blocks", func(t *testing.T) {
		f := newFixture(t)
		first := f.addExample(t, "greet")
		f.addExample(t, "greet")
		require.True(t, f.readiness(t).Ready)

		require.NoError(t, f.manager.DeleteExample(context.Background(), first.ExampleID, f.vl.ID, f.owner))

		report := f.readiness(t)
		require.False(t, report.Ready)
		require.Equal(t, []string{`intent "greet" has 1 example, needs at least 2`}, report.Blocking)
	})

	t.Run("removing an under-populated intent unblocks", func(t *testing.T) {
		f := newFixture(t)
		f.addExample(t, "greet")
		f.addExample(t, "greet")
		lonely := f.addExample(t, "bye")
		require.False(t, f.readiness(t).Ready)

		require.NoError(t, f.manager.DeleteExample(context.Background(), lonely.ExampleID, f.vl.ID, f.owner))
		require.True(t, f.readiness(t).Ready)
	})

	t.Run("double delete", func(t *testing.T) {
		f := newFixture(t)
		example := f.addExample(t, "greet")
		require.NoError(t, f.manager.DeleteExample(context.Background(), example.ExampleID, f.vl.ID, f.owner))
		err := f.manager.DeleteExample(context.Background(), example.ExampleID, f.vl.ID, f.owner)
		require.ErrorIs(t, err, store.ErrExampleNotFound)
	})
}

func TestReadiness_AfterTraining(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addExample(t, "greet")
	f.addExample(t, "greet")

	_, err := f.manager.StartTraining(ctx, f.vl.ID, f.owner)
	require.NoError(t, err)

	report := f.readiness(t)
	require.False(t, report.Ready)
	require.Equal(t, models.TrainingStateTraining, report.State)
	require.Equal(t, ReasonTraining, report.Reason)
	require.Nil(t, report.Blocking)

	_, err = f.manager.CompleteTraining(ctx, f.vl.ID, []byte("model"))
	require.NoError(t, err)

	report = f.readiness(t)
	require.False(t, report.Ready)
	require.Equal(t, models.TrainingStateTrained, report.State)
	require.Equal(t, ReasonUpToDate, report.Reason)

	t.Run("new content", func(t *testing.T) {
		f.addExample(t, "greet")

		report := f.readiness(t)
		require.True(t, report.Ready)
		require.Equal(t, ReasonContentChanged, report.Reason)
	})
}

func TestReadiness_ConfigDrift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addExample(t, "greet")
	f.addExample(t, "greet")
	f.train(t)
	require.False(t, f.readiness(t).Ready)

	cfg := f.repo.Config
	cfg.Algorithm = models.AlgorithmTransformerDIET
	changed, err := f.manager.UpdateConfig(ctx, f.repo.RepositoryID, f.owner, cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"algorithm"}, changed)

	report := f.readiness(t)
	require.True(t, report.Ready)
	require.Equal(t, ReasonConfigDrift, report.Reason)

	// the snapshot of the past training is untouched
	vl, err := f.stores.Versions.GetLanguage(ctx, f.vl.ID)
	require.NoError(t, err)
	require.Equal(t, models.AlgorithmNeuralNetworkInternal, vl.TrainedConfig.Algorithm)

	t.Run("retraining clears drift", func(t *testing.T) {
		f.train(t)
		require.False(t, f.readiness(t).Ready)
	})
}

func TestReadiness_ConfigDriftAcrossVersions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addExample(t, "greet")
	f.addExample(t, "greet")
	f.train(t)

	next, err := f.manager.CreateVersion(ctx, f.repo.RepositoryID, f.owner, "next", false)
	require.NoError(t, err)
	require.False(t, next.IsDefault)
	nextVL, err := f.manager.EnsureVersionLanguage(ctx, next.VersionID, "en")
	require.NoError(t, err)
	for range 2 {
		_, err := f.manager.AddExample(ctx, nextVL.ID, f.owner, ExampleInput{Text: "good morning", Intent: "greet"})
		require.NoError(t, err)
	}

	cfg := f.repo.Config
	cfg.UseNameEntities = true
	_, err = f.manager.UpdateConfig(ctx, f.repo.RepositoryID, f.owner, cfg)
	require.NoError(t, err)

	report, err := f.manager.Readiness(ctx, nextVL.ID)
	require.NoError(t, err)
	require.True(t, report.Ready)
	require.Equal(t, ReasonConfigDrift, report.Reason)
}

func TestStartTraining(t *testing.T) {
	ctx := context.Background()

	t.Run("requires write", func(t *testing.T) {
		f := newFixture(t)
		contributor := f.principal(t)
		_, err := f.stores.Authorizations.SetRole(ctx, f.repo.RepositoryID, contributor, models.RoleContributor)
		require.NoError(t, err)

		_, err = f.manager.StartTraining(ctx, f.vl.ID, contributor)
		require.ErrorIs(t, err, authz.ErrPermissionDenied)

		_, err = f.manager.StartTraining(ctx, f.vl.ID, uuid.Nil)
		require.ErrorIs(t, err, authz.ErrPermissionDenied)
	})

	t.Run("admin may train", func(t *testing.T) {
		f := newFixture(t)
		admin := f.principal(t)
		_, err := f.stores.Authorizations.SetRole(ctx, f.repo.RepositoryID, admin, models.RoleAdmin)
		require.NoError(t, err)

		vl, err := f.manager.StartTraining(ctx, f.vl.ID, admin)
		require.NoError(t, err)
		require.Equal(t, admin, *vl.TrainedBy)

		version, err := f.stores.Versions.GetVersion(ctx, f.version.VersionID)
		require.NoError(t, err)
		require.Equal(t, admin, *version.LastTrainedBy)
	})

	t.Run("already training", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.manager.StartTraining(ctx, f.vl.ID, f.owner)
		require.NoError(t, err)

		_, err = f.manager.StartTraining(ctx, f.vl.ID, f.owner)
		require.ErrorIs(t, err, ErrTrainingInProgress)
	})

	t.Run("advisory readiness", func(t *testing.T) {
		f := newFixture(t)
		f.addExample(t, "greet")

		_, err := f.manager.StartTraining(ctx, f.vl.ID, f.owner)
		require.NoError(t, err)
	})

	t.Run("strict readiness", func(t *testing.T) {
		f := newFixture(t, WithStrictReadiness(true))
		f.addExample(t, "greet")

		_, err := f.manager.StartTraining(ctx, f.vl.ID, f.owner)
		require.ErrorIs(t, err, ErrRequirementsNotMet)
		require.ErrorContains(t, err, `intent "greet"`)

		f.addExample(t, "greet")
		_, err = f.manager.StartTraining(ctx, f.vl.ID, f.owner)
		require.NoError(t, err)
	})

	t.Run("unknown version language", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.manager.StartTraining(ctx, uuid.New(), f.owner)
		require.ErrorIs(t, err, store.ErrVersionLanguageNotFound)
	})
}

func TestCompleteAndFailTraining(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addExample(t, "greet")
	f.addExample(t, "greet")

	_, err := f.manager.CompleteTraining(ctx, f.vl.ID, []byte("model"))
	require.ErrorIs(t, err, ErrNotTraining)
	_, err = f.manager.FailTraining(ctx, f.vl.ID)
	require.ErrorIs(t, err, ErrNotTraining)

	f.train(t)

	vl, err := f.stores.Versions.GetLanguage(ctx, f.vl.ID)
	require.NoError(t, err)
	require.Equal(t, 1, vl.TotalTrainingEnd)
	require.Equal(t, artifact.Checksum([]byte("model")), vl.Artifact.Checksum)
	trainedAt := *vl.TrainingEndAt

	model, err := f.manager.Artifact(ctx, f.vl.ID, f.owner)
	require.NoError(t, err)
	require.Equal(t, []byte("model"), model)

	_, err = f.manager.CompleteTraining(ctx, f.vl.ID, []byte("again"))
	require.ErrorIs(t, err, ErrNotTraining)

	_, err = f.manager.StartTraining(ctx, f.vl.ID, f.owner)
	require.NoError(t, err)
	vl, err = f.manager.FailTraining(ctx, f.vl.ID)
	require.NoError(t, err)
	require.Equal(t, models.TrainingStateFailed, vl.State())
	require.Equal(t, trainedAt, *vl.TrainingEndAt)
	require.Equal(t, 1, vl.TotalTrainingEnd)

	// a failed training makes the language eligible again
	report := f.readiness(t)
	require.True(t, report.Ready)
	require.Equal(t, ReasonConfigDrift, report.Reason)

	_, err = f.manager.FailTraining(ctx, f.vl.ID)
	require.ErrorIs(t, err, ErrNotTraining)

	f.train(t)
	vl, err = f.stores.Versions.GetLanguage(ctx, f.vl.ID)
	require.NoError(t, err)
	require.Equal(t, models.TrainingStateTrained, vl.State())
	require.Equal(t, 2, vl.TotalTrainingEnd)
}

func TestArtifact_NotTrained(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Artifact(context.Background(), f.vl.ID, f.owner)
	require.ErrorIs(t, err, ErrNotTrained)
}

func TestUpdateConfig(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("unknown algorithm", func(t *testing.T) {
		_, err := f.manager.UpdateConfig(ctx, f.repo.RepositoryID, f.owner, models.TrainingConfig{Algorithm: "svm"})
		require.ErrorIs(t, err, validation.ErrInvalid)
	})

	t.Run("requires write", func(t *testing.T) {
		_, err := f.manager.UpdateConfig(ctx, f.repo.RepositoryID, f.principal(t), models.DefaultTrainingConfig())
		require.ErrorIs(t, err, authz.ErrPermissionDenied)
	})

	t.Run("no change", func(t *testing.T) {
		changed, err := f.manager.UpdateConfig(ctx, f.repo.RepositoryID, f.owner, models.DefaultTrainingConfig())
		require.NoError(t, err)
		require.Empty(t, changed)
	})

	t.Run("several fields", func(t *testing.T) {
		cfg := models.TrainingConfig{
			Algorithm:           models.AlgorithmTransformerDIETBert,
			UseCompetingIntents: true,
			UseAnalyzeChar:      true,
		}
		changed, err := f.manager.UpdateConfig(ctx, f.repo.RepositoryID, f.owner, cfg)
		require.NoError(t, err)
		require.Equal(t, []string{"algorithm", "use_competing_intents", "use_analyze_char"}, changed)

		repo, err := f.stores.Repositories.Get(ctx, f.repo.RepositoryID)
		require.NoError(t, err)
		require.Equal(t, cfg, repo.Config)
	})
}

func TestContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name string
		in   ExampleInput
	}{
		{name: "empty text", in: ExampleInput{Intent: "greet"}},
		{name: "entity without name", in: ExampleInput{Text: "hi bob", Entities: []EntityInput{{Start: 3, End: 6}}}},
		{name: "inverted span", in: ExampleInput{Text: "hi bob", Entities: []EntityInput{{Start: 5, End: 3, Entity: "name"}}}},
		{name: "span past text", in: ExampleInput{Text: "hi bob", Entities: []EntityInput{{Start: 3, End: 9, Entity: "name"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.manager.AddExample(ctx, f.vl.ID, f.owner, tt.in)
			require.ErrorIs(t, err, validation.ErrInvalid)
		})
	}

	t.Run("readers cannot contribute", func(t *testing.T) {
		reader := f.principal(t)
		_, err := f.stores.Authorizations.SetRole(ctx, f.repo.RepositoryID, reader, models.RoleUser)
		require.NoError(t, err)

		_, err = f.manager.AddExample(ctx, f.vl.ID, reader, ExampleInput{Text: "hi", Intent: "greet"})
		require.ErrorIs(t, err, authz.ErrPermissionDenied)
	})

	t.Run("contributors can", func(t *testing.T) {
		contributor := f.principal(t)
		_, err := f.stores.Authorizations.SetRole(ctx, f.repo.RepositoryID, contributor, models.RoleContributor)
		require.NoError(t, err)

		example, err := f.manager.AddExample(ctx, f.vl.ID, contributor, ExampleInput{
			Text:     "hi bob",
			Intent:   "greet",
			Entities: []EntityInput{{Start: 3, End: 6, Entity: "name"}},
		})
		require.NoError(t, err)
		require.Equal(t, []models.ExampleEntity{{Start: 3, End: 6, Entity: "name"}}, example.Entities)
	})

	t.Run("translation", func(t *testing.T) {
		example := f.addExample(t, "greet")
		ptVL, err := f.manager.EnsureVersionLanguage(ctx, f.version.VersionID, "pt_br")
		require.NoError(t, err)

		translation, err := f.manager.AddTranslation(ctx, example.ExampleID, ptVL.ID, f.owner, "olá meu amigo")
		require.NoError(t, err)
		require.Equal(t, "pt_br", translation.Language)

		_, err = f.manager.AddTranslation(ctx, uuid.New(), ptVL.ID, f.owner, "olá")
		require.ErrorIs(t, err, store.ErrExampleNotFound)

		_, err = f.manager.AddTranslation(ctx, example.ExampleID, ptVL.ID, f.owner, "")
		require.ErrorIs(t, err, validation.ErrInvalid)
	})
}

func TestContent_OtherRepository(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target := f.addExample(t, "greet")
	f.addExample(t, "greet")
	f.addExample(t, "greet")
	require.NoError(t, f.manager.DeleteExample(ctx, f.addExample(t, "greet").ExampleID, f.vl.ID, f.owner))

	outsider := f.principal(t)
	other := &models.Repository{
		RepositoryID: uuid.Must(uuid.NewV7()),
		OwnerID:      outsider,
		Name:         "their bot",
		Slug:         "their-bot",
		Language:     "en",
		Config:       models.DefaultTrainingConfig(),
	}
	require.NoError(t, f.stores.Repositories.Create(ctx, other))
	otherVersion, err := f.manager.CreateVersion(ctx, other.RepositoryID, outsider, "master", false)
	require.NoError(t, err)
	otherVL, err := f.manager.EnsureVersionLanguage(ctx, otherVersion.VersionID, "en")
	require.NoError(t, err)

	t.Run("delete", func(t *testing.T) {
		err := f.manager.DeleteExample(ctx, target.ExampleID, otherVL.ID, outsider)
		require.ErrorIs(t, err, store.ErrExampleNotFound)

		visible, err := f.stores.Examples.ListVisible(ctx, f.vl.ID)
		require.NoError(t, err)
		require.Len(t, visible, 3)
	})

	t.Run("translation", func(t *testing.T) {
		_, err := f.manager.AddTranslation(ctx, target.ExampleID, otherVL.ID, outsider, "olá")
		require.ErrorIs(t, err, store.ErrExampleNotFound)
	})

	t.Run("other version-language of the same repository", func(t *testing.T) {
		ptVL, err := f.manager.EnsureVersionLanguage(ctx, f.version.VersionID, "pt_br")
		require.NoError(t, err)

		err = f.manager.DeleteExample(ctx, target.ExampleID, ptVL.ID, f.owner)
		require.ErrorIs(t, err, store.ErrExampleNotFound)
		require.True(t, f.readiness(t).Ready)
	})
}

func TestVersions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	second, err := f.manager.CreateVersion(ctx, f.repo.RepositoryID, f.owner, "second", false)
	require.NoError(t, err)

	_, err = f.manager.CreateVersion(ctx, f.repo.RepositoryID, f.owner, "second", false)
	require.ErrorIs(t, err, store.ErrVersionAlreadyExists)

	_, err = f.manager.CreateVersion(ctx, f.repo.RepositoryID, f.principal(t), "third", false)
	require.ErrorIs(t, err, authz.ErrPermissionDenied)

	require.NoError(t, f.manager.SetDefaultVersion(ctx, f.repo.RepositoryID, second.VersionID, f.owner))

	def, err := f.stores.Versions.GetDefaultVersion(ctx, f.repo.RepositoryID)
	require.NoError(t, err)
	require.Equal(t, second.VersionID, def.VersionID)

	first, err := f.stores.Versions.GetVersion(ctx, f.version.VersionID)
	require.NoError(t, err)
	require.False(t, first.IsDefault)

	_, err = f.manager.EnsureVersionLanguage(ctx, second.VersionID, "  ")
	require.ErrorIs(t, err, validation.ErrInvalid)

	again, err := f.manager.EnsureVersionLanguage(ctx, f.version.VersionID, "en")
	require.NoError(t, err)
	require.Equal(t, f.vl.ID, again.ID)
}
