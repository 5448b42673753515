package models

import (
	"time"

	"github.com/google/uuid"
)

// ExampleEntity is an annotated span inside an example text.
type ExampleEntity struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Entity string `json:"entity"`
}

// Example is a training sentence owned by a version-language.
type Example struct {
	ExampleID         uuid.UUID // UUIDv7
	VersionLanguageID uuid.UUID
	Text              string
	Intent            string
	Entities          []ExampleEntity
	CreatedAt         time.Time

	// DeletedIn references the version-language active when the example was
	// soft-deleted.
	DeletedIn *uuid.UUID
	DeletedAt *time.Time
}

// VisibleIn reports whether the example is not soft-deleted as of versionLanguageID.
func (e *Example) VisibleIn(versionLanguageID uuid.UUID) bool {
	return e.DeletedIn == nil || *e.DeletedIn != versionLanguageID
}

// TranslatedExample is a translation of an example into another language.
type TranslatedExample struct {
	TranslationID     uuid.UUID // UUIDv7
	OriginalExampleID uuid.UUID
	VersionLanguageID uuid.UUID // the target-language version-language
	Language          string
	Text              string
	CreatedAt         time.Time
}
