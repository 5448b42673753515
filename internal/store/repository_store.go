package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
)

// Sentinel errors for repository store operations
var (
	ErrRepositoryNotFound      = errors.New("repository not found")
	ErrRepositoryAlreadyExists = errors.New("repository already exists")
)

// RepositoryStore manages training repositories.
type RepositoryStore interface {
	// Create creates a new repository.
	// Returns ErrRepositoryAlreadyExists if the owner already has a repository with the same slug.
	Create(ctx context.Context, repo *models.Repository) error

	// Get retrieves a repository by ID.
	// Returns ErrRepositoryNotFound if the repository doesn't exist.
	Get(ctx context.Context, repositoryID uuid.UUID) (*models.Repository, error)

	// UpdateConfig replaces the training configuration and returns the previous one.
	// Returns ErrRepositoryNotFound if the repository doesn't exist.
	UpdateConfig(ctx context.Context, repositoryID uuid.UUID, cfg models.TrainingConfig) (models.TrainingConfig, error)

	// Delete deletes a repository. Authorizations, requests, versions and
	// content are deleted with it.
	// Returns ErrRepositoryNotFound if the repository doesn't exist.
	Delete(ctx context.Context, repositoryID uuid.UUID) error
}
