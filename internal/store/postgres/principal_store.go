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

// PrincipalStore implements store.PrincipalStore using PostgreSQL.
type PrincipalStore struct {
	conn
}

// NewPrincipalStore creates a new PostgreSQL-backed principal store.
// It shares the connection pool with other stores.
func NewPrincipalStore(pool *pgxpool.Pool) *PrincipalStore {
	return &PrincipalStore{conn{pool: pool}}
}

// Create creates a new principal in the database.
func (s *PrincipalStore) Create(ctx context.Context, principal *models.Principal) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO principals (
			principal_id, name, email, is_organization, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := s.pool.Exec(ctx, query,
		principal.PrincipalID,
		principal.Name,
		principal.Email,
		principal.IsOrganization,
		principal.CreatedAt,
		principal.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrPrincipalAlreadyExists
		}
		return fmt.Errorf("failed to create principal: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("principal_id", principal.PrincipalID.String()).
		Bool("is_organization", principal.IsOrganization).
		Msg("Created principal")

	return nil
}

// Get retrieves a principal by ID.
func (s *PrincipalStore) Get(ctx context.Context, principalID uuid.UUID) (*models.Principal, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		SELECT principal_id, name, email, is_organization, created_at, updated_at
		FROM principals
		WHERE principal_id = $1
	`

	var p models.Principal
	err := s.pool.QueryRow(ctx, query, principalID).Scan(
		&p.PrincipalID,
		&p.Name,
		&p.Email,
		&p.IsOrganization,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to get principal: %w", mapPostgresError(err))
	}

	return &p, nil
}

// Update updates name and email of an existing principal.
func (s *PrincipalStore) Update(ctx context.Context, principal *models.Principal) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	principal.UpdatedAt = time.Now()

	query := `
		UPDATE principals SET
			name = $2,
			email = $3,
			updated_at = $4
		WHERE principal_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		principal.PrincipalID,
		principal.Name,
		principal.Email,
		principal.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update principal: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrPrincipalNotFound
	}

	log.Debug().
		Str("principal_id", principal.PrincipalID.String()).
		Msg("Updated principal")

	return nil
}
