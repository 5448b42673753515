package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
)

// PrincipalStore implements store.PrincipalStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type PrincipalStore struct {
	mu sync.RWMutex

	principals map[uuid.UUID]*models.Principal // principal_id -> Principal
}

// NewPrincipalStore creates a new in-memory principal store.
func NewPrincipalStore() *PrincipalStore {
	return &PrincipalStore{
		principals: make(map[uuid.UUID]*models.Principal),
	}
}

// Create creates a new principal in memory.
func (s *PrincipalStore) Create(ctx context.Context, principal *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.principals[principal.PrincipalID]; exists {
		return store.ErrPrincipalAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *principal
	s.principals[principal.PrincipalID] = &clone

	return nil
}

// Get retrieves a principal by ID.
func (s *PrincipalStore) Get(ctx context.Context, principalID uuid.UUID) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	principal, exists := s.principals[principalID]
	if !exists {
		return nil, store.ErrPrincipalNotFound
	}

	clone := *principal
	return &clone, nil
}

// Update updates an existing principal.
func (s *PrincipalStore) Update(ctx context.Context, principal *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.principals[principal.PrincipalID]; !exists {
		return store.ErrPrincipalNotFound
	}

	principal.UpdatedAt = time.Now()

	clone := *principal
	s.principals[principal.PrincipalID] = &clone

	return nil
}
