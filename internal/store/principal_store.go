package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
)

// Sentinel errors for principal store operations
var (
	ErrPrincipalNotFound      = errors.New("principal not found")
	ErrPrincipalAlreadyExists = errors.New("principal already exists")
)

// PrincipalStore manages users and organization pseudo-users.
type PrincipalStore interface {
	// Create creates a new principal.
	// Returns ErrPrincipalAlreadyExists if the ID is taken.
	Create(ctx context.Context, principal *models.Principal) error

	// Get retrieves a principal by ID.
	// Returns ErrPrincipalNotFound if the principal doesn't exist.
	Get(ctx context.Context, principalID uuid.UUID) (*models.Principal, error)

	// Update updates name and email of an existing principal.
	// Returns ErrPrincipalNotFound if the principal doesn't exist.
	Update(ctx context.Context, principal *models.Principal) error
}
