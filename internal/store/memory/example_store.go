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

// ExampleStore implements store.ExampleStore using in-memory storage.
// Version-language references are not checked.
type ExampleStore struct {
	mu sync.RWMutex

	examples     map[uuid.UUID]*models.Example           // example_id -> Example
	translations map[uuid.UUID]*models.TranslatedExample // translation_id -> TranslatedExample
}

// NewExampleStore creates a new in-memory example store.
func NewExampleStore() *ExampleStore {
	return &ExampleStore{
		examples:     make(map[uuid.UUID]*models.Example),
		translations: make(map[uuid.UUID]*models.TranslatedExample),
	}
}

func cloneExample(e *models.Example) *models.Example {
	clone := *e
	clone.Entities = append([]models.ExampleEntity(nil), e.Entities...)
	clone.DeletedIn = cloneUUIDPtr(e.DeletedIn)
	clone.DeletedAt = cloneTimePtr(e.DeletedAt)
	return &clone
}

// CreateExample persists a new example.
func (s *ExampleStore) CreateExample(ctx context.Context, example *models.Example) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.examples[example.ExampleID] = cloneExample(example)

	return nil
}

// GetExample retrieves an example by ID, deleted or not.
func (s *ExampleStore) GetExample(ctx context.Context, exampleID uuid.UUID) (*models.Example, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	example, ok := s.examples[exampleID]
	if !ok {
		return nil, store.ErrExampleNotFound
	}

	return cloneExample(example), nil
}

// SoftDeleteExample marks the example deleted in versionLanguageID.
func (s *ExampleStore) SoftDeleteExample(ctx context.Context, exampleID, versionLanguageID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	example, ok := s.examples[exampleID]
	if !ok || example.VersionLanguageID != versionLanguageID || example.DeletedIn != nil {
		return store.ErrExampleNotFound
	}

	example.DeletedIn = cloneUUIDPtr(&versionLanguageID)
	example.DeletedAt = cloneTimePtr(&at)

	return nil
}

// ListVisible returns the examples of a version-language not soft-deleted as of it.
func (s *ExampleStore) ListVisible(ctx context.Context, versionLanguageID uuid.UUID) ([]*models.Example, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Example
	for _, example := range s.examples {
		if example.VersionLanguageID == versionLanguageID && example.VisibleIn(versionLanguageID) {
			result = append(result, cloneExample(example))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// CreateTranslation persists a new translation.
func (s *ExampleStore) CreateTranslation(ctx context.Context, translation *models.TranslatedExample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.examples[translation.OriginalExampleID]; !ok {
		return store.ErrExampleNotFound
	}

	clone := *translation
	s.translations[translation.TranslationID] = &clone

	return nil
}

// Stats returns the content history of a version-language.
func (s *ExampleStore) Stats(ctx context.Context, versionLanguageID uuid.UUID) (*store.ContentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &store.ContentStats{}
	touch := func(t time.Time) {
		if stats.LastChangeAt == nil || t.After(*stats.LastChangeAt) {
			stats.LastChangeAt = cloneTimePtr(&t)
		}
	}

	for _, example := range s.examples {
		if example.VersionLanguageID == versionLanguageID {
			stats.ExamplesAdded++
			touch(example.CreatedAt)
		}
		if example.DeletedIn != nil && *example.DeletedIn == versionLanguageID && example.DeletedAt != nil {
			touch(*example.DeletedAt)
		}
	}
	for _, translation := range s.translations {
		if translation.VersionLanguageID == versionLanguageID {
			stats.TranslationsAdded++
			touch(translation.CreatedAt)
		}
	}

	return stats, nil
}

// NewStores returns a store.Stores backed entirely by memory.
func NewStores() *store.Stores {
	return &store.Stores{
		Principals:     NewPrincipalStore(),
		Organizations:  NewOrganizationStore(),
		Repositories:   NewRepositoryStore(),
		Authorizations: NewAuthorizationStore(),
		AccessRequests: NewAccessRequestStore(),
		Versions:       NewVersionStore(),
		Examples:       NewExampleStore(),
	}
}
