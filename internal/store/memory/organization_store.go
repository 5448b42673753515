package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
)

type memberKey struct {
	orgID       uuid.UUID
	principalID uuid.UUID
}

// OrganizationStore implements store.OrganizationStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type OrganizationStore struct {
	mu sync.RWMutex

	organizations map[uuid.UUID]*models.Organization              // org_id -> Organization
	members       map[memberKey]*models.OrganizationAuthorization // (org_id, principal_id) -> authorization
}

// NewOrganizationStore creates a new in-memory organization store.
func NewOrganizationStore() *OrganizationStore {
	return &OrganizationStore{
		organizations: make(map[uuid.UUID]*models.Organization),
		members:       make(map[memberKey]*models.OrganizationAuthorization),
	}
}

// Create creates a new organization in memory.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.organizations[org.OrgID]; exists {
		return store.ErrOrganizationAlreadyExists
	}

	clone := *org
	s.organizations[org.OrgID] = &clone

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	clone := *org
	return &clone, nil
}

// Delete deletes an organization and its member authorizations.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.organizations[orgID]; !exists {
		return store.ErrOrganizationNotFound
	}

	delete(s.organizations, orgID)
	for key := range s.members {
		if key.orgID == orgID {
			delete(s.members, key)
		}
	}

	return nil
}

// SetMemberRole creates or replaces the role of a member principal.
func (s *OrganizationStore) SetMemberRole(ctx context.Context, orgID, principalID uuid.UUID, role models.OrgRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.organizations[orgID]; !exists {
		return store.ErrOrganizationNotFound
	}

	now := time.Now()
	key := memberKey{orgID: orgID, principalID: principalID}
	if existing, ok := s.members[key]; ok {
		existing.Role = role
		existing.UpdatedAt = now
		return nil
	}

	s.members[key] = &models.OrganizationAuthorization{
		OrgID:       orgID,
		PrincipalID: principalID,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return nil
}

// GetMemberRole returns the member's role, OrgRoleNothing when there is none.
func (s *OrganizationStore) GetMemberRole(ctx context.Context, orgID, principalID uuid.UUID) (models.OrgRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.members[memberKey{orgID: orgID, principalID: principalID}]
	if !ok {
		return models.OrgRoleNothing, nil
	}

	return member.Role, nil
}

// ListMembers returns every member authorization of the organization.
func (s *OrganizationStore) ListMembers(ctx context.Context, orgID uuid.UUID) ([]*models.OrganizationAuthorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.OrganizationAuthorization
	for key, member := range s.members {
		if key.orgID == orgID {
			clone := *member
			result = append(result, &clone)
		}
	}

	return result, nil
}
