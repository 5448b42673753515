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

const authorizationColumns = `authorization_id, repository_id, principal_id, role, created_at, updated_at`

// AuthorizationStore implements store.AuthorizationStore using PostgreSQL.
type AuthorizationStore struct {
	conn
}

// NewAuthorizationStore creates a new PostgreSQL-backed authorization store.
// It shares the connection pool with other stores.
func NewAuthorizationStore(pool *pgxpool.Pool) *AuthorizationStore {
	return &AuthorizationStore{conn{pool: pool}}
}

func scanAuthorization(row pgx.Row) (*models.RepositoryAuthorization, error) {
	var rec models.RepositoryAuthorization
	var role int16
	err := row.Scan(
		&rec.AuthorizationID,
		&rec.RepositoryID,
		&rec.PrincipalID,
		&role,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Role = models.Role(role)
	return &rec, nil
}

// Ensure returns the record for the pair, creating it with RoleNotSet when missing.
// Racing inserts fall through ON CONFLICT DO NOTHING and re-read the winner.
func (s *AuthorizationStore) Ensure(ctx context.Context, repositoryID, principalID uuid.UUID) (*models.RepositoryAuthorization, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	return s.ensure(ctx, repositoryID, principalID)
}

func (s *AuthorizationStore) ensure(ctx context.Context, repositoryID, principalID uuid.UUID) (*models.RepositoryAuthorization, error) {
	now := time.Now()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO repository_authorizations (
			authorization_id, repository_id, principal_id, role, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $5
		)
		ON CONFLICT (repository_id, principal_id) DO NOTHING
	`, uuid.Must(uuid.NewV7()), repositoryID, principalID, int16(models.RoleNotSet), now)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, mapPostgresError(err)
		}
		return nil, fmt.Errorf("failed to ensure authorization: %w", mapPostgresError(err))
	}

	rec, err := scanAuthorization(s.pool.QueryRow(ctx, `
		SELECT `+authorizationColumns+`
		FROM repository_authorizations
		WHERE repository_id = $1 AND principal_id = $2
	`, repositoryID, principalID))
	if err != nil {
		return nil, fmt.Errorf("failed to read authorization: %w", mapPostgresError(err))
	}

	return rec, nil
}

// Get retrieves the record for the pair.
func (s *AuthorizationStore) Get(ctx context.Context, repositoryID, principalID uuid.UUID) (*models.RepositoryAuthorization, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rec, err := scanAuthorization(s.pool.QueryRow(ctx, `
		SELECT `+authorizationColumns+`
		FROM repository_authorizations
		WHERE repository_id = $1 AND principal_id = $2
	`, repositoryID, principalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAuthorizationNotFound
		}
		return nil, fmt.Errorf("failed to get authorization: %w", mapPostgresError(err))
	}

	return rec, nil
}

// SetRole ensures the record exists and overwrites its role.
func (s *AuthorizationStore) SetRole(ctx context.Context, repositoryID, principalID uuid.UUID, role models.Role) (*models.RepositoryAuthorization, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rec, err := scanAuthorization(s.pool.QueryRow(ctx, `
		INSERT INTO repository_authorizations (
			authorization_id, repository_id, principal_id, role, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $5
		)
		ON CONFLICT (repository_id, principal_id) DO UPDATE SET
			role = EXCLUDED.role,
			updated_at = EXCLUDED.updated_at
		RETURNING `+authorizationColumns,
		uuid.Must(uuid.NewV7()), repositoryID, principalID, int16(role), time.Now()))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, mapPostgresError(err)
		}
		return nil, fmt.Errorf("failed to set role: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("repository_id", repositoryID.String()).
		Str("principal_id", principalID.String()).
		Stringer("role", role).
		Msg("Set repository role")

	return rec, nil
}

// PromoteRole ensures the record exists and raises its role when lower.
// The conditional UPDATE makes concurrent promotions converge on the highest role.
func (s *AuthorizationStore) PromoteRole(ctx context.Context, repositoryID, principalID uuid.UUID, role models.Role) (*models.RepositoryAuthorization, bool, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if _, err := s.ensure(ctx, repositoryID, principalID); err != nil {
		return nil, false, err
	}

	rec, err := scanAuthorization(s.pool.QueryRow(ctx, `
		UPDATE repository_authorizations SET
			role = $3,
			updated_at = $4
		WHERE repository_id = $1 AND principal_id = $2 AND role < $3
		RETURNING `+authorizationColumns,
		repositoryID, principalID, int16(role), time.Now()))
	if err == nil {
		log.Debug().
			Str("repository_id", repositoryID.String()).
			Str("principal_id", principalID.String()).
			Stringer("role", role).
			Msg("Promoted repository role")
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to promote role: %w", mapPostgresError(err))
	}

	// Already at or above role
	rec, err = s.Get(ctx, repositoryID, principalID)
	if err != nil {
		return nil, false, err
	}
	return rec, false, nil
}

// Delete removes the record for the pair.
func (s *AuthorizationStore) Delete(ctx context.Context, repositoryID, principalID uuid.UUID) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	result, err := s.pool.Exec(ctx, `
		DELETE FROM repository_authorizations
		WHERE repository_id = $1 AND principal_id = $2
	`, repositoryID, principalID)
	if err != nil {
		return fmt.Errorf("failed to delete authorization: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrAuthorizationNotFound
	}

	return nil
}

// ListByRole returns every record of the repository holding role, oldest first.
func (s *AuthorizationStore) ListByRole(ctx context.Context, repositoryID uuid.UUID, role models.Role) ([]*models.RepositoryAuthorization, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+authorizationColumns+`
		FROM repository_authorizations
		WHERE repository_id = $1 AND role = $2
		ORDER BY created_at ASC
	`, repositoryID, int16(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list authorizations: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var recs []*models.RepositoryAuthorization
	for rows.Next() {
		rec, err := scanAuthorization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan authorization: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating authorizations: %w", err)
	}

	return recs, nil
}
