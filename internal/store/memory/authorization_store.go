package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
)

type authorizationKey struct {
	repositoryID uuid.UUID
	principalID  uuid.UUID
}

// AuthorizationStore implements store.AuthorizationStore using in-memory storage.
// The mutex makes Ensure an atomic insert-or-fetch. Foreign keys are not checked.
type AuthorizationStore struct {
	mu sync.Mutex

	authorizations map[authorizationKey]*models.RepositoryAuthorization
}

// NewAuthorizationStore creates a new in-memory authorization store.
func NewAuthorizationStore() *AuthorizationStore {
	return &AuthorizationStore{
		authorizations: make(map[authorizationKey]*models.RepositoryAuthorization),
	}
}

// ensureLocked returns the stored record for the pair, inserting it when missing.
// Callers must hold s.mu.
func (s *AuthorizationStore) ensureLocked(repositoryID, principalID uuid.UUID) *models.RepositoryAuthorization {
	key := authorizationKey{repositoryID: repositoryID, principalID: principalID}
	if existing, ok := s.authorizations[key]; ok {
		return existing
	}

	now := time.Now()
	auth := &models.RepositoryAuthorization{
		AuthorizationID: uuid.Must(uuid.NewV7()),
		RepositoryID:    repositoryID,
		PrincipalID:     principalID,
		Role:            models.RoleNotSet,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.authorizations[key] = auth

	return auth
}

// Ensure returns the record for the pair, creating it with RoleNotSet when missing.
func (s *AuthorizationStore) Ensure(ctx context.Context, repositoryID, principalID uuid.UUID) (*models.RepositoryAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *s.ensureLocked(repositoryID, principalID)
	return &clone, nil
}

// Get retrieves the record for the pair.
func (s *AuthorizationStore) Get(ctx context.Context, repositoryID, principalID uuid.UUID) (*models.RepositoryAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auth, ok := s.authorizations[authorizationKey{repositoryID: repositoryID, principalID: principalID}]
	if !ok {
		return nil, store.ErrAuthorizationNotFound
	}

	clone := *auth
	return &clone, nil
}

// SetRole ensures the record exists and overwrites its role.
func (s *AuthorizationStore) SetRole(ctx context.Context, repositoryID, principalID uuid.UUID, role models.Role) (*models.RepositoryAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auth := s.ensureLocked(repositoryID, principalID)
	auth.Role = role
	auth.UpdatedAt = time.Now()

	clone := *auth
	return &clone, nil
}

// PromoteRole ensures the record exists and raises its role when lower.
func (s *AuthorizationStore) PromoteRole(ctx context.Context, repositoryID, principalID uuid.UUID, role models.Role) (*models.RepositoryAuthorization, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auth := s.ensureLocked(repositoryID, principalID)
	promoted := false
	if auth.Role < role {
		auth.Role = role
		auth.UpdatedAt = time.Now()
		promoted = true
	}

	clone := *auth
	return &clone, promoted, nil
}

// Delete removes the record for the pair.
func (s *AuthorizationStore) Delete(ctx context.Context, repositoryID, principalID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := authorizationKey{repositoryID: repositoryID, principalID: principalID}
	if _, ok := s.authorizations[key]; !ok {
		return store.ErrAuthorizationNotFound
	}

	delete(s.authorizations, key)

	return nil
}

// ListByRole returns every record of the repository holding role, oldest first.
func (s *AuthorizationStore) ListByRole(ctx context.Context, repositoryID uuid.UUID, role models.Role) ([]*models.RepositoryAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.RepositoryAuthorization
	for key, auth := range s.authorizations {
		if key.repositoryID == repositoryID && auth.Role == role {
			clone := *auth
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}
