package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
)

// Sentinel errors for authorization store operations
var (
	ErrAuthorizationNotFound = errors.New("repository authorization not found")
)

// AuthorizationStore manages RepositoryAuthorization records, one per
// (repository, principal) pair.
type AuthorizationStore interface {
	// Ensure returns the record for the pair, creating it with RoleNotSet when missing.
	// Concurrent first calls for the same pair converge on a single record.
	// Returns ErrRepositoryNotFound or ErrPrincipalNotFound for unknown references.
	Ensure(ctx context.Context, repositoryID, principalID uuid.UUID) (*models.RepositoryAuthorization, error)

	// Get retrieves the record for the pair.
	// Returns ErrAuthorizationNotFound if no record exists.
	Get(ctx context.Context, repositoryID, principalID uuid.UUID) (*models.RepositoryAuthorization, error)

	// SetRole ensures the record exists and overwrites its role.
	SetRole(ctx context.Context, repositoryID, principalID uuid.UUID, role models.Role) (*models.RepositoryAuthorization, error)

	// PromoteRole ensures the record exists and raises its role to role when the
	// stored role is lower. It never lowers a role. The returned bool reports
	// whether the stored role changed.
	PromoteRole(ctx context.Context, repositoryID, principalID uuid.UUID, role models.Role) (*models.RepositoryAuthorization, bool, error)

	// Delete removes the record for the pair.
	// Returns ErrAuthorizationNotFound if no record exists.
	Delete(ctx context.Context, repositoryID, principalID uuid.UUID) error

	// ListByRole returns every record of the repository holding role.
	ListByRole(ctx context.Context, repositoryID uuid.UUID, role models.Role) ([]*models.RepositoryAuthorization, error)
}
