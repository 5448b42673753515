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

// RepositoryStore implements store.RepositoryStore using PostgreSQL.
type RepositoryStore struct {
	conn
}

// NewRepositoryStore creates a new PostgreSQL-backed repository store.
// It shares the connection pool with other stores.
func NewRepositoryStore(pool *pgxpool.Pool) *RepositoryStore {
	return &RepositoryStore{conn{pool: pool}}
}

// Create creates a new repository in the database.
func (s *RepositoryStore) Create(ctx context.Context, repo *models.Repository) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO repositories (
			repository_id, owner_id, name, slug, language,
			is_private, config, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := s.pool.Exec(ctx, query,
		repo.RepositoryID,
		repo.OwnerID,
		repo.Name,
		repo.Slug,
		repo.Language,
		repo.IsPrivate,
		repo.Config,
		repo.CreatedAt,
		repo.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrRepositoryAlreadyExists
		}
		return fmt.Errorf("failed to create repository: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("repository_id", repo.RepositoryID.String()).
		Str("owner_id", repo.OwnerID.String()).
		Str("slug", repo.Slug).
		Msg("Created repository")

	return nil
}

// Get retrieves a repository by ID.
func (s *RepositoryStore) Get(ctx context.Context, repositoryID uuid.UUID) (*models.Repository, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		SELECT repository_id, owner_id, name, slug, language,
			is_private, config, created_at, updated_at
		FROM repositories
		WHERE repository_id = $1
	`

	var repo models.Repository
	err := s.pool.QueryRow(ctx, query, repositoryID).Scan(
		&repo.RepositoryID,
		&repo.OwnerID,
		&repo.Name,
		&repo.Slug,
		&repo.Language,
		&repo.IsPrivate,
		&repo.Config,
		&repo.CreatedAt,
		&repo.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrRepositoryNotFound
		}
		return nil, fmt.Errorf("failed to get repository: %w", mapPostgresError(err))
	}

	return &repo, nil
}

// UpdateConfig replaces the training configuration and returns the previous one.
// The row is locked so concurrent updates each observe their own predecessor.
func (s *RepositoryStore) UpdateConfig(ctx context.Context, repositoryID uuid.UUID, cfg models.TrainingConfig) (models.TrainingConfig, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.TrainingConfig{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	var previous models.TrainingConfig
	err = tx.QueryRow(ctx, `SELECT config FROM repositories WHERE repository_id = $1 FOR UPDATE`, repositoryID).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TrainingConfig{}, store.ErrRepositoryNotFound
		}
		return models.TrainingConfig{}, fmt.Errorf("failed to lock repository: %w", mapPostgresError(err))
	}

	_, err = tx.Exec(ctx, `UPDATE repositories SET config = $2, updated_at = $3 WHERE repository_id = $1`,
		repositoryID, cfg, time.Now())
	if err != nil {
		return models.TrainingConfig{}, fmt.Errorf("failed to update repository config: %w", mapPostgresError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return models.TrainingConfig{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return previous, nil
}

// Delete deletes a repository by ID.
// This will cascade-delete authorizations, requests, versions and content via FK constraints.
func (s *RepositoryStore) Delete(ctx context.Context, repositoryID uuid.UUID) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	result, err := s.pool.Exec(ctx, `DELETE FROM repositories WHERE repository_id = $1`, repositoryID)
	if err != nil {
		return fmt.Errorf("failed to delete repository: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrRepositoryNotFound
	}

	log.Info().
		Str("repository_id", repositoryID.String()).
		Msg("Deleted repository")

	return nil
}
