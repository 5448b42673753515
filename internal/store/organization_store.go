package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
)

// Sentinel errors for organization store operations
var (
	ErrOrganizationNotFound      = errors.New("organization not found")
	ErrOrganizationAlreadyExists = errors.New("organization already exists")
)

// OrganizationStore defines the interface for organization storage operations.
// An organization is keyed by its own principal ID and grants roles to member principals.
type OrganizationStore interface {
	// Create creates a new organization in the store.
	// Returns ErrOrganizationAlreadyExists if an organization with the same ID already exists.
	Create(ctx context.Context, org *models.Organization) error

	// Get retrieves an organization by ID.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)

	// Delete deletes an organization and its member authorizations.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Delete(ctx context.Context, orgID uuid.UUID) error

	// SetMemberRole creates or replaces the role of a member principal.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	SetMemberRole(ctx context.Context, orgID, principalID uuid.UUID, role models.OrgRole) error

	// GetMemberRole returns the member's role, OrgRoleNothing when the principal
	// holds no authorization in the organization.
	GetMemberRole(ctx context.Context, orgID, principalID uuid.UUID) (models.OrgRole, error)

	// ListMembers returns every member authorization of the organization.
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]*models.OrganizationAuthorization, error)
}
