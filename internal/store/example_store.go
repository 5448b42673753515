package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
)

// Sentinel errors for example store operations
var (
	ErrExampleNotFound = errors.New("example not found")
)

// ContentStats summarises the content history of a version-language.
type ContentStats struct {
	ExamplesAdded     int        // examples ever added, deleted ones included
	TranslationsAdded int        // translations ever added
	LastChangeAt      *time.Time // latest add, delete or translation; nil when none
}

// ExampleStore manages examples and translations.
type ExampleStore interface {
	// CreateExample persists a new example.
	// Returns ErrVersionLanguageNotFound if the version-language doesn't exist.
	CreateExample(ctx context.Context, example *models.Example) error

	// GetExample retrieves an example by ID, deleted or not.
	// Returns ErrExampleNotFound if it doesn't exist.
	GetExample(ctx context.Context, exampleID uuid.UUID) (*models.Example, error)

	// SoftDeleteExample marks the example deleted in versionLanguageID.
	// Returns ErrExampleNotFound if the example doesn't exist, belongs to
	// another version-language or is already deleted.
	SoftDeleteExample(ctx context.Context, exampleID, versionLanguageID uuid.UUID, at time.Time) error

	// ListVisible returns the examples of a version-language that are not
	// soft-deleted as of that version-language, oldest first.
	ListVisible(ctx context.Context, versionLanguageID uuid.UUID) ([]*models.Example, error)

	// CreateTranslation persists a new translation.
	// Returns ErrExampleNotFound if the original example doesn't exist.
	CreateTranslation(ctx context.Context, translation *models.TranslatedExample) error

	// Stats returns the content history of a version-language.
	Stats(ctx context.Context, versionLanguageID uuid.UUID) (*ContentStats, error)
}
