package training

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/authz"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/nluhub/nluhub/internal/validation"
	"github.com/rs/zerolog/log"
)

// ExampleInput is a new training sentence.
type ExampleInput struct {
	Text     string        `validate:"required,max=1000"`
	Intent   string        `validate:"max=64"`
	Entities []EntityInput `validate:"dive"`
}

// EntityInput is an annotated span of ExampleInput.Text.
type EntityInput struct {
	Start  int    `validate:"gte=0"`
	End    int    `validate:"gtfield=Start"`
	Entity string `validate:"required,max=64"`
}

type translationInput struct {
	Text string `validate:"required,max=1000"`
}

// requireContributor loads the version-language and checks that principalID
// may change its content.
func (m *Manager) requireContributor(ctx context.Context, versionLanguageID, principalID uuid.UUID) (*models.RepositoryVersionLanguage, error) {
	vl, repo, err := m.load(ctx, versionLanguageID)
	if err != nil {
		return nil, err
	}

	view, err := m.resolver.ResolveRepository(ctx, repo, principalID)
	if err != nil {
		return nil, err
	}
	if !view.CanContribute() {
		return nil, authz.ErrPermissionDenied
	}

	return vl, nil
}

// AddExample adds an example to a version-language.
func (m *Manager) AddExample(ctx context.Context, versionLanguageID, principalID uuid.UUID, in ExampleInput) (*models.Example, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	entities := make([]models.ExampleEntity, 0, len(in.Entities))
	for _, e := range in.Entities {
		if e.End > len(in.Text) {
			return nil, fmt.Errorf("%w: entity %q ends at %d past the text length %d", validation.ErrInvalid, e.Entity, e.End, len(in.Text))
		}
		entities = append(entities, models.ExampleEntity{Start: e.Start, End: e.End, Entity: e.Entity})
	}

	vl, err := m.requireContributor(ctx, versionLanguageID, principalID)
	if err != nil {
		return nil, err
	}

	example := &models.Example{
		ExampleID:         uuid.Must(uuid.NewV7()),
		VersionLanguageID: vl.ID,
		Text:              in.Text,
		Intent:            in.Intent,
		Entities:          entities,
		CreatedAt:         m.now(),
	}
	if err := m.examples.CreateExample(ctx, example); err != nil {
		return nil, fmt.Errorf("failed to create example: %w", err)
	}

	log.Debug().
		Str("example_id", example.ExampleID.String()).
		Str("version_language_id", vl.ID.String()).
		Str("intent", example.Intent).
		Msg("Example added")

	return example, nil
}

// DeleteExample soft-deletes an example of versionLanguageID. Examples of
// other version-languages are reported as not found.
func (m *Manager) DeleteExample(ctx context.Context, exampleID, versionLanguageID, principalID uuid.UUID) error {
	vl, err := m.requireContributor(ctx, versionLanguageID, principalID)
	if err != nil {
		return err
	}

	example, err := m.examples.GetExample(ctx, exampleID)
	if err != nil {
		return err
	}
	if example.VersionLanguageID != vl.ID {
		return store.ErrExampleNotFound
	}

	if err := m.examples.SoftDeleteExample(ctx, exampleID, vl.ID, m.now()); err != nil {
		return err
	}

	log.Debug().
		Str("example_id", exampleID.String()).
		Str("version_language_id", vl.ID.String()).
		Msg("Example deleted")

	return nil
}

// AddTranslation translates an example into the language of the target
// version-language.
func (m *Manager) AddTranslation(ctx context.Context, exampleID, versionLanguageID, principalID uuid.UUID, text string) (*models.TranslatedExample, error) {
	if err := validation.Struct(translationInput{Text: text}); err != nil {
		return nil, err
	}

	vl, err := m.requireContributor(ctx, versionLanguageID, principalID)
	if err != nil {
		return nil, err
	}

	if err := m.requireSameRepository(ctx, exampleID, vl.RepositoryID); err != nil {
		return nil, err
	}

	translation := &models.TranslatedExample{
		TranslationID:     uuid.Must(uuid.NewV7()),
		OriginalExampleID: exampleID,
		VersionLanguageID: vl.ID,
		Language:          vl.Language,
		Text:              text,
		CreatedAt:         m.now(),
	}
	if err := m.examples.CreateTranslation(ctx, translation); err != nil {
		return nil, err
	}

	return translation, nil
}

// requireSameRepository checks that exampleID belongs to a version-language
// of repositoryID.
func (m *Manager) requireSameRepository(ctx context.Context, exampleID, repositoryID uuid.UUID) error {
	example, err := m.examples.GetExample(ctx, exampleID)
	if err != nil {
		return err
	}

	source, err := m.versions.GetLanguage(ctx, example.VersionLanguageID)
	if err != nil {
		return err
	}
	if source.RepositoryID != repositoryID {
		return store.ErrExampleNotFound
	}

	return nil
}
