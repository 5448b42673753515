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

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	conn
}

// NewOrganizationStore creates a new PostgreSQL-backed organization store.
// It shares the connection pool with other stores.
func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{conn{pool: pool}}
}

// Create creates a new organization in the database.
// The organization's pseudo-user principal must already exist.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO organizations (
			org_id, name, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4
		)
	`

	_, err := s.pool.Exec(ctx, query,
		org.OrgID,
		org.Name,
		org.CreatedAt,
		org.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrOrganizationAlreadyExists
		}
		return fmt.Errorf("failed to create organization: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("name", org.Name).
		Msg("Created organization")

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		SELECT org_id, name, created_at, updated_at
		FROM organizations
		WHERE org_id = $1
	`

	var org models.Organization
	err := s.pool.QueryRow(ctx, query, orgID).Scan(
		&org.OrgID,
		&org.Name,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", mapPostgresError(err))
	}

	return &org, nil
}

// Delete deletes an organization by ID.
// This will cascade-delete all member authorizations via FK constraint.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `DELETE FROM organizations WHERE org_id = $1`

	result, err := s.pool.Exec(ctx, query, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	log.Info().
		Str("org_id", orgID.String()).
		Msg("Deleted organization (and cascade-deleted all member authorizations)")

	return nil
}

// SetMemberRole creates or replaces the role of a member principal.
func (s *OrganizationStore) SetMemberRole(ctx context.Context, orgID, principalID uuid.UUID, role models.OrgRole) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO organization_authorizations (
			org_id, principal_id, role, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $4
		)
		ON CONFLICT (org_id, principal_id) DO UPDATE SET
			role = EXCLUDED.role,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query, orgID, principalID, int16(role), time.Now())
	if err != nil {
		if isForeignKeyViolation(err) {
			return mapPostgresError(err)
		}
		return fmt.Errorf("failed to set member role: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("org_id", orgID.String()).
		Str("principal_id", principalID.String()).
		Stringer("role", role).
		Msg("Set organization member role")

	return nil
}

// GetMemberRole returns the member's role, OrgRoleNothing when there is none.
func (s *OrganizationStore) GetMemberRole(ctx context.Context, orgID, principalID uuid.UUID) (models.OrgRole, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		SELECT role
		FROM organization_authorizations
		WHERE org_id = $1 AND principal_id = $2
	`

	var role int16
	err := s.pool.QueryRow(ctx, query, orgID, principalID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.OrgRoleNothing, nil
		}
		return models.OrgRoleNothing, fmt.Errorf("failed to get member role: %w", mapPostgresError(err))
	}

	return models.OrgRole(role), nil
}

// ListMembers returns every member authorization of the organization.
func (s *OrganizationStore) ListMembers(ctx context.Context, orgID uuid.UUID) ([]*models.OrganizationAuthorization, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		SELECT org_id, principal_id, role, created_at, updated_at
		FROM organization_authorizations
		WHERE org_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization members: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var members []*models.OrganizationAuthorization
	for rows.Next() {
		var m models.OrganizationAuthorization
		var role int16
		if err := rows.Scan(&m.OrgID, &m.PrincipalID, &role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization member: %w", err)
		}
		m.Role = models.OrgRole(role)
		members = append(members, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization members: %w", err)
	}

	return members, nil
}
