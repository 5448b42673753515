package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
)

// Sentinel errors for version store operations
var (
	ErrVersionNotFound         = errors.New("repository version not found")
	ErrVersionAlreadyExists    = errors.New("repository version already exists")
	ErrVersionLanguageNotFound = errors.New("repository version language not found")
)

// VersionStore manages repository versions and their per-language training units.
type VersionStore interface {
	// CreateVersion creates a version. A version created with IsDefault set
	// becomes the only default of its repository.
	// Returns ErrVersionAlreadyExists if the repository already has a version with that name.
	CreateVersion(ctx context.Context, version *models.RepositoryVersion) error

	// GetVersion retrieves a version by ID.
	// Returns ErrVersionNotFound if the version doesn't exist.
	GetVersion(ctx context.Context, versionID uuid.UUID) (*models.RepositoryVersion, error)

	// GetDefaultVersion returns the default version of a repository.
	// Returns ErrVersionNotFound if the repository has no versions.
	GetDefaultVersion(ctx context.Context, repositoryID uuid.UUID) (*models.RepositoryVersion, error)

	// SetDefaultVersion atomically clears the default flag on every version of
	// the repository and sets it on versionID.
	// Returns ErrVersionNotFound if versionID doesn't belong to the repository.
	SetDefaultVersion(ctx context.Context, repositoryID, versionID uuid.UUID) error

	// SetLastTrainedBy records the principal that started the latest training.
	SetLastTrainedBy(ctx context.Context, versionID, principalID uuid.UUID) error

	// EnsureLanguage returns the version-language for (versionID, language),
	// creating it when missing. Concurrent first calls converge on one record.
	// Returns ErrVersionNotFound if the version doesn't exist.
	EnsureLanguage(ctx context.Context, versionID uuid.UUID, language string) (*models.RepositoryVersionLanguage, error)

	// GetLanguage retrieves a version-language by ID.
	// Returns ErrVersionLanguageNotFound if it doesn't exist.
	GetLanguage(ctx context.Context, versionLanguageID uuid.UUID) (*models.RepositoryVersionLanguage, error)

	// UpdateTraining persists the training fields (timestamps, snapshot,
	// initiator, counter, artifact) of a version-language.
	// Returns ErrVersionLanguageNotFound if it doesn't exist.
	UpdateTraining(ctx context.Context, vl *models.RepositoryVersionLanguage) error

	// LatestTrained returns the most recently started version-language of the
	// repository in the given language that was started by a principal.
	// Returns ErrVersionLanguageNotFound if there is none.
	LatestTrained(ctx context.Context, repositoryID uuid.UUID, language string) (*models.RepositoryVersionLanguage, error)
}
