package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
)

// RepositoryStore implements store.RepositoryStore using in-memory storage.
// Deleting a repository does not cascade into the other memory stores.
type RepositoryStore struct {
	mu sync.RWMutex

	repositories map[uuid.UUID]*models.Repository // repository_id -> Repository
}

// NewRepositoryStore creates a new in-memory repository store.
func NewRepositoryStore() *RepositoryStore {
	return &RepositoryStore{
		repositories: make(map[uuid.UUID]*models.Repository),
	}
}

// Create creates a new repository in memory.
func (s *RepositoryStore) Create(ctx context.Context, repo *models.Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.repositories[repo.RepositoryID]; exists {
		return store.ErrRepositoryAlreadyExists
	}
	for _, existing := range s.repositories {
		if existing.OwnerID == repo.OwnerID && existing.Slug == repo.Slug {
			return store.ErrRepositoryAlreadyExists
		}
	}

	clone := *repo
	s.repositories[repo.RepositoryID] = &clone

	return nil
}

// Get retrieves a repository by ID.
func (s *RepositoryStore) Get(ctx context.Context, repositoryID uuid.UUID) (*models.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repo, exists := s.repositories[repositoryID]
	if !exists {
		return nil, store.ErrRepositoryNotFound
	}

	clone := *repo
	return &clone, nil
}

// UpdateConfig replaces the training configuration and returns the previous one.
func (s *RepositoryStore) UpdateConfig(ctx context.Context, repositoryID uuid.UUID, cfg models.TrainingConfig) (models.TrainingConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, exists := s.repositories[repositoryID]
	if !exists {
		return models.TrainingConfig{}, store.ErrRepositoryNotFound
	}

	old := repo.Config
	repo.Config = cfg
	repo.UpdatedAt = time.Now()

	return old, nil
}

// Delete deletes a repository by ID.
func (s *RepositoryStore) Delete(ctx context.Context, repositoryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.repositories[repositoryID]; !exists {
		return store.ErrRepositoryNotFound
	}

	delete(s.repositories, repositoryID)

	return nil
}
