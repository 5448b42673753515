package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
)

const exampleColumns = `example_id, version_language_id, text, intent, entities, created_at, deleted_in, deleted_at`

// ExampleStore implements store.ExampleStore using PostgreSQL.
type ExampleStore struct {
	conn
}

// NewExampleStore creates a new PostgreSQL-backed example store.
// It shares the connection pool with other stores.
func NewExampleStore(pool *pgxpool.Pool) *ExampleStore {
	return &ExampleStore{conn{pool: pool}}
}

func scanExample(row pgx.Row) (*models.Example, error) {
	var e models.Example
	err := row.Scan(
		&e.ExampleID,
		&e.VersionLanguageID,
		&e.Text,
		&e.Intent,
		&e.Entities,
		&e.CreatedAt,
		&e.DeletedIn,
		&e.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateExample persists a new example.
func (s *ExampleStore) CreateExample(ctx context.Context, example *models.Example) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	entities := example.Entities
	if entities == nil {
		entities = []models.ExampleEntity{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO examples (example_id, version_language_id, text, intent, entities, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		example.ExampleID,
		example.VersionLanguageID,
		example.Text,
		example.Intent,
		entities,
		example.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return mapPostgresError(err)
		}
		return fmt.Errorf("failed to create example: %w", mapPostgresError(err))
	}

	return nil
}

// GetExample retrieves an example by ID, deleted or not.
func (s *ExampleStore) GetExample(ctx context.Context, exampleID uuid.UUID) (*models.Example, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	e, err := scanExample(s.pool.QueryRow(ctx, `
		SELECT `+exampleColumns+`
		FROM examples
		WHERE example_id = $1
	`, exampleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrExampleNotFound
		}
		return nil, fmt.Errorf("failed to get example: %w", mapPostgresError(err))
	}

	return e, nil
}

// SoftDeleteExample marks the example deleted in versionLanguageID.
func (s *ExampleStore) SoftDeleteExample(ctx context.Context, exampleID, versionLanguageID uuid.UUID, at time.Time) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	result, err := s.pool.Exec(ctx, `
		UPDATE examples SET
			deleted_in = $2,
			deleted_at = $3
		WHERE example_id = $1 AND version_language_id = $2 AND deleted_in IS NULL
	`, exampleID, versionLanguageID, at)
	if err != nil {
		return fmt.Errorf("failed to delete example: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrExampleNotFound
	}

	return nil
}

// ListVisible returns the examples of a version-language not soft-deleted as of it.
func (s *ExampleStore) ListVisible(ctx context.Context, versionLanguageID uuid.UUID) ([]*models.Example, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+exampleColumns+`
		FROM examples
		WHERE version_language_id = $1 AND deleted_in IS DISTINCT FROM $1
		ORDER BY created_at ASC
	`, versionLanguageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list examples: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var examples []*models.Example
	for rows.Next() {
		e, err := scanExample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan example: %w", err)
		}
		examples = append(examples, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating examples: %w", err)
	}

	return examples, nil
}

// CreateTranslation persists a new translation.
func (s *ExampleStore) CreateTranslation(ctx context.Context, translation *models.TranslatedExample) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO translated_examples (
			translation_id, original_example_id, version_language_id, language, text, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`,
		translation.TranslationID,
		translation.OriginalExampleID,
		translation.VersionLanguageID,
		translation.Language,
		translation.Text,
		translation.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return mapPostgresError(err)
		}
		return fmt.Errorf("failed to create translation: %w", mapPostgresError(err))
	}

	return nil
}

// Stats returns the content history of a version-language.
func (s *ExampleStore) Stats(ctx context.Context, versionLanguageID uuid.UUID) (*store.ContentStats, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var stats store.ContentStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM examples WHERE version_language_id = $1),
			(SELECT count(*) FROM translated_examples WHERE version_language_id = $1),
			GREATEST(
				(SELECT max(created_at) FROM examples WHERE version_language_id = $1),
				(SELECT max(deleted_at) FROM examples WHERE deleted_in = $1),
				(SELECT max(created_at) FROM translated_examples WHERE version_language_id = $1)
			)
	`, versionLanguageID).Scan(&stats.ExamplesAdded, &stats.TranslationsAdded, &stats.LastChangeAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read content stats: %w", mapPostgresError(err))
	}

	return &stats, nil
}
