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
	"github.com/rs/zerolog/log"
)

const (
	versionColumns = `version_id, repository_id, name, is_default, created_by, last_trained_by, created_at`

	versionLanguageColumns = `id, version_id, repository_id, language,
		training_started_at, training_end_at, failed_at,
		trained_config, trained_by, total_training_end,
		artifact_checksum, artifact_size, artifact, created_at`
)

// VersionStore implements store.VersionStore using PostgreSQL.
type VersionStore struct {
	conn
}

// NewVersionStore creates a new PostgreSQL-backed version store.
// It shares the connection pool with other stores.
func NewVersionStore(pool *pgxpool.Pool) *VersionStore {
	return &VersionStore{conn{pool: pool}}
}

func scanVersion(row pgx.Row) (*models.RepositoryVersion, error) {
	var v models.RepositoryVersion
	err := row.Scan(
		&v.VersionID,
		&v.RepositoryID,
		&v.Name,
		&v.IsDefault,
		&v.CreatedBy,
		&v.LastTrainedBy,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func scanVersionLanguage(row pgx.Row) (*models.RepositoryVersionLanguage, error) {
	var vl models.RepositoryVersionLanguage
	var checksum *string
	var size *int64
	var data []byte
	err := row.Scan(
		&vl.ID,
		&vl.VersionID,
		&vl.RepositoryID,
		&vl.Language,
		&vl.TrainingStartedAt,
		&vl.TrainingEndAt,
		&vl.FailedAt,
		&vl.TrainedConfig,
		&vl.TrainedBy,
		&vl.TotalTrainingEnd,
		&checksum,
		&size,
		&data,
		&vl.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if checksum != nil {
		vl.Artifact = &models.ArtifactRef{Checksum: *checksum, Data: data}
		if size != nil {
			vl.Artifact.Size = *size
		}
	}
	return &vl, nil
}

// CreateVersion creates a version, clearing the previous default when the new
// version is the default.
func (s *VersionStore) CreateVersion(ctx context.Context, version *models.RepositoryVersion) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	if version.IsDefault {
		_, err = tx.Exec(ctx, `
			UPDATE repository_versions SET is_default = FALSE
			WHERE repository_id = $1 AND is_default
		`, version.RepositoryID)
		if err != nil {
			return fmt.Errorf("failed to clear default version: %w", mapPostgresError(err))
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO repository_versions (`+versionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		version.VersionID,
		version.RepositoryID,
		version.Name,
		version.IsDefault,
		version.CreatedBy,
		version.LastTrainedBy,
		version.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrVersionAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return mapPostgresError(err)
		}
		return fmt.Errorf("failed to create version: %w", mapPostgresError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug().
		Str("version_id", version.VersionID.String()).
		Str("repository_id", version.RepositoryID.String()).
		Str("name", version.Name).
		Bool("is_default", version.IsDefault).
		Msg("Created repository version")

	return nil
}

// GetVersion retrieves a version by ID.
func (s *VersionStore) GetVersion(ctx context.Context, versionID uuid.UUID) (*models.RepositoryVersion, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	v, err := scanVersion(s.pool.QueryRow(ctx, `
		SELECT `+versionColumns+`
		FROM repository_versions
		WHERE version_id = $1
	`, versionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to get version: %w", mapPostgresError(err))
	}

	return v, nil
}

// GetDefaultVersion returns the default version of a repository.
func (s *VersionStore) GetDefaultVersion(ctx context.Context, repositoryID uuid.UUID) (*models.RepositoryVersion, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	v, err := scanVersion(s.pool.QueryRow(ctx, `
		SELECT `+versionColumns+`
		FROM repository_versions
		WHERE repository_id = $1 AND is_default
	`, repositoryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to get default version: %w", mapPostgresError(err))
	}

	return v, nil
}

// SetDefaultVersion moves the default flag to versionID in one transaction.
func (s *VersionStore) SetDefaultVersion(ctx context.Context, repositoryID, versionID uuid.UUID) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	_, err = tx.Exec(ctx, `
		UPDATE repository_versions SET is_default = FALSE
		WHERE repository_id = $1 AND is_default AND version_id <> $2
	`, repositoryID, versionID)
	if err != nil {
		return fmt.Errorf("failed to clear default version: %w", mapPostgresError(err))
	}

	result, err := tx.Exec(ctx, `
		UPDATE repository_versions SET is_default = TRUE
		WHERE repository_id = $1 AND version_id = $2
	`, repositoryID, versionID)
	if err != nil {
		return fmt.Errorf("failed to set default version: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrVersionNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Str("repository_id", repositoryID.String()).
		Str("version_id", versionID.String()).
		Msg("Changed default version")

	return nil
}

// SetLastTrainedBy records the principal that started the latest training.
func (s *VersionStore) SetLastTrainedBy(ctx context.Context, versionID, principalID uuid.UUID) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	result, err := s.pool.Exec(ctx, `
		UPDATE repository_versions SET last_trained_by = $2
		WHERE version_id = $1
	`, versionID, principalID)
	if err != nil {
		return fmt.Errorf("failed to set last trained by: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrVersionNotFound
	}

	return nil
}

// EnsureLanguage returns the version-language for (versionID, language),
// creating it when missing. Racing inserts fall through ON CONFLICT DO NOTHING
// and re-read the winner.
func (s *VersionStore) EnsureLanguage(ctx context.Context, versionID uuid.UUID, language string) (*models.RepositoryVersionLanguage, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	result, err := s.pool.Exec(ctx, `
		INSERT INTO repository_version_languages (id, version_id, repository_id, language, created_at)
		SELECT $1, version_id, repository_id, $3, $4
		FROM repository_versions
		WHERE version_id = $2
		ON CONFLICT (version_id, language) DO NOTHING
	`, uuid.Must(uuid.NewV7()), versionID, language, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to ensure version language: %w", mapPostgresError(err))
	}

	vl, err := scanVersionLanguage(s.pool.QueryRow(ctx, `
		SELECT `+versionLanguageColumns+`
		FROM repository_version_languages
		WHERE version_id = $1 AND language = $2
	`, versionID, language))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// nothing inserted and nothing to read: the version is missing
			return nil, store.ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to read version language: %w", mapPostgresError(err))
	}

	if result.RowsAffected() > 0 {
		log.Debug().
			Str("version_language_id", vl.ID.String()).
			Str("language", language).
			Msg("Created version language")
	}

	return vl, nil
}

// GetLanguage retrieves a version-language by ID.
func (s *VersionStore) GetLanguage(ctx context.Context, versionLanguageID uuid.UUID) (*models.RepositoryVersionLanguage, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	vl, err := scanVersionLanguage(s.pool.QueryRow(ctx, `
		SELECT `+versionLanguageColumns+`
		FROM repository_version_languages
		WHERE id = $1
	`, versionLanguageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrVersionLanguageNotFound
		}
		return nil, fmt.Errorf("failed to get version language: %w", mapPostgresError(err))
	}

	return vl, nil
}

// UpdateTraining persists the training fields of a version-language.
func (s *VersionStore) UpdateTraining(ctx context.Context, vl *models.RepositoryVersionLanguage) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var checksum *string
	var size *int64
	var data []byte
	if vl.Artifact != nil {
		checksum = &vl.Artifact.Checksum
		size = &vl.Artifact.Size
		data = vl.Artifact.Data
	}

	result, err := s.pool.Exec(ctx, `
		UPDATE repository_version_languages SET
			training_started_at = $2,
			training_end_at = $3,
			failed_at = $4,
			trained_config = $5,
			trained_by = $6,
			total_training_end = $7,
			artifact_checksum = $8,
			artifact_size = $9,
			artifact = $10
		WHERE id = $1
	`,
		vl.ID,
		vl.TrainingStartedAt,
		vl.TrainingEndAt,
		vl.FailedAt,
		vl.TrainedConfig,
		vl.TrainedBy,
		vl.TotalTrainingEnd,
		checksum,
		size,
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to update training: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrVersionLanguageNotFound
	}

	return nil
}

// LatestTrained returns the most recently started version-language of the
// repository in the given language that was started by a principal.
func (s *VersionStore) LatestTrained(ctx context.Context, repositoryID uuid.UUID, language string) (*models.RepositoryVersionLanguage, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	vl, err := scanVersionLanguage(s.pool.QueryRow(ctx, `
		SELECT `+versionLanguageColumns+`
		FROM repository_version_languages
		WHERE repository_id = $1
			AND language = $2
			AND trained_by IS NOT NULL
			AND training_started_at IS NOT NULL
		ORDER BY training_started_at DESC
		LIMIT 1
	`, repositoryID, language))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrVersionLanguageNotFound
		}
		return nil, fmt.Errorf("failed to get latest trained version language: %w", mapPostgresError(err))
	}

	return vl, nil
}
