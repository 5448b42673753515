package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
)

type languageKey struct {
	versionID uuid.UUID
	language  string
}

// VersionStore implements store.VersionStore using in-memory storage.
type VersionStore struct {
	mu sync.Mutex

	versions  map[uuid.UUID]*models.RepositoryVersion         // version_id -> RepositoryVersion
	languages map[uuid.UUID]*models.RepositoryVersionLanguage // id -> RepositoryVersionLanguage
	byKey     map[languageKey]uuid.UUID                       // (version_id, language) -> id
}

// NewVersionStore creates a new in-memory version store.
func NewVersionStore() *VersionStore {
	return &VersionStore{
		versions:  make(map[uuid.UUID]*models.RepositoryVersion),
		languages: make(map[uuid.UUID]*models.RepositoryVersionLanguage),
		byKey:     make(map[languageKey]uuid.UUID),
	}
}

func cloneUUIDPtr(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	clone := *id
	return &clone
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

func cloneVersion(v *models.RepositoryVersion) *models.RepositoryVersion {
	clone := *v
	clone.CreatedBy = cloneUUIDPtr(v.CreatedBy)
	clone.LastTrainedBy = cloneUUIDPtr(v.LastTrainedBy)
	return &clone
}

func cloneLanguage(vl *models.RepositoryVersionLanguage) *models.RepositoryVersionLanguage {
	clone := *vl
	clone.TrainingStartedAt = cloneTimePtr(vl.TrainingStartedAt)
	clone.TrainingEndAt = cloneTimePtr(vl.TrainingEndAt)
	clone.FailedAt = cloneTimePtr(vl.FailedAt)
	clone.TrainedBy = cloneUUIDPtr(vl.TrainedBy)
	if vl.TrainedConfig != nil {
		cfg := *vl.TrainedConfig
		clone.TrainedConfig = &cfg
	}
	if vl.Artifact != nil {
		artifact := *vl.Artifact
		artifact.Data = append([]byte(nil), vl.Artifact.Data...)
		clone.Artifact = &artifact
	}
	return &clone
}

// CreateVersion creates a version.
func (s *VersionStore) CreateVersion(ctx context.Context, version *models.RepositoryVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.versions[version.VersionID]; exists {
		return store.ErrVersionAlreadyExists
	}
	for _, existing := range s.versions {
		if existing.RepositoryID == version.RepositoryID && existing.Name == version.Name {
			return store.ErrVersionAlreadyExists
		}
	}

	if version.IsDefault {
		s.clearDefaultLocked(version.RepositoryID)
	}
	s.versions[version.VersionID] = cloneVersion(version)

	return nil
}

// GetVersion retrieves a version by ID.
func (s *VersionStore) GetVersion(ctx context.Context, versionID uuid.UUID) (*models.RepositoryVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, ok := s.versions[versionID]
	if !ok {
		return nil, store.ErrVersionNotFound
	}

	return cloneVersion(version), nil
}

// GetDefaultVersion returns the default version of a repository.
func (s *VersionStore) GetDefaultVersion(ctx context.Context, repositoryID uuid.UUID) (*models.RepositoryVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, version := range s.versions {
		if version.RepositoryID == repositoryID && version.IsDefault {
			return cloneVersion(version), nil
		}
	}

	return nil, store.ErrVersionNotFound
}

func (s *VersionStore) clearDefaultLocked(repositoryID uuid.UUID) {
	for _, version := range s.versions {
		if version.RepositoryID == repositoryID {
			version.IsDefault = false
		}
	}
}

// SetDefaultVersion makes versionID the only default version of the repository.
func (s *VersionStore) SetDefaultVersion(ctx context.Context, repositoryID, versionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, ok := s.versions[versionID]
	if !ok || version.RepositoryID != repositoryID {
		return store.ErrVersionNotFound
	}

	s.clearDefaultLocked(repositoryID)
	version.IsDefault = true

	return nil
}

// SetLastTrainedBy records the principal that started the latest training.
func (s *VersionStore) SetLastTrainedBy(ctx context.Context, versionID, principalID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, ok := s.versions[versionID]
	if !ok {
		return store.ErrVersionNotFound
	}

	version.LastTrainedBy = cloneUUIDPtr(&principalID)

	return nil
}

// EnsureLanguage returns the version-language for (versionID, language), creating it when missing.
func (s *VersionStore) EnsureLanguage(ctx context.Context, versionID uuid.UUID, language string) (*models.RepositoryVersionLanguage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, ok := s.versions[versionID]
	if !ok {
		return nil, store.ErrVersionNotFound
	}

	key := languageKey{versionID: versionID, language: language}
	if id, exists := s.byKey[key]; exists {
		return cloneLanguage(s.languages[id]), nil
	}

	vl := &models.RepositoryVersionLanguage{
		ID:           uuid.Must(uuid.NewV7()),
		VersionID:    versionID,
		RepositoryID: version.RepositoryID,
		Language:     language,
		CreatedAt:    time.Now(),
	}
	s.languages[vl.ID] = vl
	s.byKey[key] = vl.ID

	return cloneLanguage(vl), nil
}

// GetLanguage retrieves a version-language by ID.
func (s *VersionStore) GetLanguage(ctx context.Context, versionLanguageID uuid.UUID) (*models.RepositoryVersionLanguage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vl, ok := s.languages[versionLanguageID]
	if !ok {
		return nil, store.ErrVersionLanguageNotFound
	}

	return cloneLanguage(vl), nil
}

// UpdateTraining persists the training fields of a version-language.
func (s *VersionStore) UpdateTraining(ctx context.Context, vl *models.RepositoryVersionLanguage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.languages[vl.ID]
	if !ok {
		return store.ErrVersionLanguageNotFound
	}

	updated := cloneLanguage(vl)
	updated.VersionID = existing.VersionID
	updated.RepositoryID = existing.RepositoryID
	updated.Language = existing.Language
	updated.CreatedAt = existing.CreatedAt
	s.languages[vl.ID] = updated

	return nil
}

// LatestTrained returns the most recently started version-language of the
// repository in the given language that was started by a principal.
func (s *VersionStore) LatestTrained(ctx context.Context, repositoryID uuid.UUID, language string) (*models.RepositoryVersionLanguage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.RepositoryVersionLanguage
	for _, vl := range s.languages {
		if vl.RepositoryID != repositoryID || vl.Language != language {
			continue
		}
		if vl.TrainedBy == nil || vl.TrainingStartedAt == nil {
			continue
		}
		if latest == nil || vl.TrainingStartedAt.After(*latest.TrainingStartedAt) {
			latest = vl
		}
	}

	if latest == nil {
		return nil, store.ErrVersionLanguageNotFound
	}

	return cloneLanguage(latest), nil
}
