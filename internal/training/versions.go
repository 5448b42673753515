package training

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/authz"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/telemetry"
	"github.com/nluhub/nluhub/internal/validation"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type versionInput struct {
	Name string `validate:"required,max=40"`
}

// requireWriter loads the repository and checks that principalID may change
// its configuration.
func (m *Manager) requireWriter(ctx context.Context, repositoryID, principalID uuid.UUID) (*models.Repository, error) {
	repo, err := m.repositories.Get(ctx, repositoryID)
	if err != nil {
		return nil, err
	}

	view, err := m.resolver.ResolveRepository(ctx, repo, principalID)
	if err != nil {
		return nil, err
	}
	if !view.CanWrite() {
		return nil, authz.ErrPermissionDenied
	}

	return repo, nil
}

// CreateVersion adds a named version to a repository. The first version of a
// repository is always the default.
func (m *Manager) CreateVersion(ctx context.Context, repositoryID, principalID uuid.UUID, name string, isDefault bool) (*models.RepositoryVersion, error) {
	if err := validation.Struct(versionInput{Name: name}); err != nil {
		return nil, err
	}

	repo, err := m.requireWriter(ctx, repositoryID, principalID)
	if err != nil {
		return nil, err
	}

	if _, err := m.versions.GetDefaultVersion(ctx, repo.RepositoryID); err != nil {
		isDefault = true
	}

	creator := principalID
	version := &models.RepositoryVersion{
		VersionID:    uuid.Must(uuid.NewV7()),
		RepositoryID: repo.RepositoryID,
		Name:         name,
		IsDefault:    isDefault,
		CreatedBy:    &creator,
		CreatedAt:    m.now(),
	}
	if err := m.versions.CreateVersion(ctx, version); err != nil {
		return nil, err
	}

	log.Info().
		Str("version_id", version.VersionID.String()).
		Str("repository_id", repo.RepositoryID.String()).
		Str("name", name).
		Bool("default", version.IsDefault).
		Msg("Version created")

	return version, nil
}

// SetDefaultVersion makes versionID the only default version of its repository.
func (m *Manager) SetDefaultVersion(ctx context.Context, repositoryID, versionID, principalID uuid.UUID) error {
	repo, err := m.requireWriter(ctx, repositoryID, principalID)
	if err != nil {
		return err
	}

	return m.versions.SetDefaultVersion(ctx, repo.RepositoryID, versionID)
}

// EnsureVersionLanguage returns the version-language for (versionID,
// language), creating it on first use.
func (m *Manager) EnsureVersionLanguage(ctx context.Context, versionID uuid.UUID, language string) (*models.RepositoryVersionLanguage, error) {
	language = strings.TrimSpace(language)
	if language == "" {
		return nil, fmt.Errorf("%w: language is required", validation.ErrInvalid)
	}

	return m.versions.EnsureLanguage(ctx, versionID, language)
}

// UpdateConfig replaces the training configuration of a repository and
// returns the names of the changed fields.
func (m *Manager) UpdateConfig(ctx context.Context, repositoryID, principalID uuid.UUID, cfg models.TrainingConfig) ([]string, error) {
	if !cfg.Algorithm.Valid() {
		return nil, fmt.Errorf("%w: unknown algorithm %q", validation.ErrInvalid, cfg.Algorithm)
	}

	repo, err := m.requireWriter(ctx, repositoryID, principalID)
	if err != nil {
		return nil, err
	}

	previous, err := m.repositories.UpdateConfig(ctx, repo.RepositoryID, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to update config: %w", err)
	}

	return m.OnConfigChanged(ctx, repo, previous, cfg), nil
}

// OnConfigChanged is called with the configuration before and after an
// update. Readiness picks up the change on its next read; the hook only
// reports and records what changed.
func (m *Manager) OnConfigChanged(ctx context.Context, repo *models.Repository, previous, current models.TrainingConfig) []string {
	changed := previous.Diff(current)
	if len(changed) == 0 {
		return nil
	}

	for _, field := range changed {
		telemetry.GetMetrics().ConfigChangesTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("field", field)))
	}

	log.Info().
		Str("repository_id", repo.RepositoryID.String()).
		Strs("changed", changed).
		Str("algorithm", string(current.Algorithm)).
		Msg("Training config changed")

	return changed
}
