package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
)

// Sentinel errors for access request store operations
var (
	ErrAccessRequestNotFound        = errors.New("access request not found")
	ErrAccessRequestAlreadyExists   = errors.New("access request already exists")
	ErrAccessRequestAlreadyApproved = errors.New("access request already approved")
)

// AccessRequestStore manages RequestRepositoryAuthorization records, one per
// (repository, requesting principal) pair.
type AccessRequestStore interface {
	// Create persists a new request.
	// Returns ErrAccessRequestAlreadyExists if the principal already has a request
	// for the repository.
	Create(ctx context.Context, req *models.AccessRequest) error

	// Get retrieves a request by ID.
	// Returns ErrAccessRequestNotFound if the request doesn't exist.
	Get(ctx context.Context, requestID uuid.UUID) (*models.AccessRequest, error)

	// Approve sets approved_by if and only if it is still unset. Of several
	// concurrent calls exactly one succeeds; the others get
	// ErrAccessRequestAlreadyApproved.
	Approve(ctx context.Context, requestID, approverID uuid.UUID) (*models.AccessRequest, error)

	// Delete removes a request.
	// Returns ErrAccessRequestNotFound if the request doesn't exist.
	Delete(ctx context.Context, requestID uuid.UUID) error

	// ListByRepository returns the requests of a repository, oldest first.
	ListByRepository(ctx context.Context, repositoryID uuid.UUID) ([]*models.AccessRequest, error)
}
