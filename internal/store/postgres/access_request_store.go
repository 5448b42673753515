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

const accessRequestColumns = `request_id, repository_id, principal_id, text, approved_by, created_at, updated_at`

// AccessRequestStore implements store.AccessRequestStore using PostgreSQL.
type AccessRequestStore struct {
	conn
}

// NewAccessRequestStore creates a new PostgreSQL-backed access request store.
// It shares the connection pool with other stores.
func NewAccessRequestStore(pool *pgxpool.Pool) *AccessRequestStore {
	return &AccessRequestStore{conn{pool: pool}}
}

func scanAccessRequest(row pgx.Row) (*models.AccessRequest, error) {
	var req models.AccessRequest
	err := row.Scan(
		&req.RequestID,
		&req.RepositoryID,
		&req.PrincipalID,
		&req.Text,
		&req.ApprovedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create persists a new request.
func (s *AccessRequestStore) Create(ctx context.Context, req *models.AccessRequest) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO access_requests (`+accessRequestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		req.RequestID,
		req.RepositoryID,
		req.PrincipalID,
		req.Text,
		req.ApprovedBy,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAccessRequestAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return mapPostgresError(err)
		}
		return fmt.Errorf("failed to create access request: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("request_id", req.RequestID.String()).
		Str("repository_id", req.RepositoryID.String()).
		Str("principal_id", req.PrincipalID.String()).
		Msg("Created access request")

	return nil
}

// Get retrieves a request by ID.
func (s *AccessRequestStore) Get(ctx context.Context, requestID uuid.UUID) (*models.AccessRequest, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	req, err := scanAccessRequest(s.pool.QueryRow(ctx, `
		SELECT `+accessRequestColumns+`
		FROM access_requests
		WHERE request_id = $1
	`, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAccessRequestNotFound
		}
		return nil, fmt.Errorf("failed to get access request: %w", mapPostgresError(err))
	}

	return req, nil
}

// Approve sets approved_by only while it is NULL, so exactly one concurrent
// approver wins.
func (s *AccessRequestStore) Approve(ctx context.Context, requestID, approverID uuid.UUID) (*models.AccessRequest, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	req, err := scanAccessRequest(s.pool.QueryRow(ctx, `
		UPDATE access_requests SET
			approved_by = $2,
			updated_at = $3
		WHERE request_id = $1 AND approved_by IS NULL
		RETURNING `+accessRequestColumns,
		requestID, approverID, time.Now()))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to approve access request: %w", mapPostgresError(err))
	}

	// Either missing or already approved
	if _, err := s.Get(ctx, requestID); err != nil {
		return nil, err
	}
	return nil, store.ErrAccessRequestAlreadyApproved
}

// Delete removes a request.
func (s *AccessRequestStore) Delete(ctx context.Context, requestID uuid.UUID) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	result, err := s.pool.Exec(ctx, `DELETE FROM access_requests WHERE request_id = $1`, requestID)
	if err != nil {
		return fmt.Errorf("failed to delete access request: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrAccessRequestNotFound
	}

	return nil
}

// ListByRepository returns the requests of a repository, oldest first.
func (s *AccessRequestStore) ListByRepository(ctx context.Context, repositoryID uuid.UUID) ([]*models.AccessRequest, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+accessRequestColumns+`
		FROM access_requests
		WHERE repository_id = $1
		ORDER BY created_at ASC
	`, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list access requests: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var reqs []*models.AccessRequest
	for rows.Next() {
		req, err := scanAccessRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access request: %w", err)
		}
		reqs = append(reqs, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating access requests: %w", err)
	}

	return reqs, nil
}
