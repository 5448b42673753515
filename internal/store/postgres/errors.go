package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nluhub/nluhub/internal/store"
)

// mapPostgresError maps PostgreSQL-specific errors to sentinel errors.
// Returns the original error if it's not a PostgreSQL error or doesn't match known patterns.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	// Check if it's a PostgreSQL error
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	// Map error codes to sentinel errors
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		switch pgErr.ConstraintName {
		case "repositories_owner_id_slug_key", "repositories_pkey":
			return store.ErrRepositoryAlreadyExists
		case "access_requests_repository_id_principal_id_key", "access_requests_pkey":
			return store.ErrAccessRequestAlreadyExists
		case "repository_versions_repository_id_name_key", "repository_versions_pkey":
			return store.ErrVersionAlreadyExists
		case "principals_pkey":
			return store.ErrPrincipalAlreadyExists
		case "organizations_pkey":
			return store.ErrOrganizationAlreadyExists
		}
		return fmt.Errorf("unique constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.ForeignKeyViolation:
		return mapForeignKeyViolation(pgErr)

	case pgerrcode.CheckViolation:
		// Invalid state or constraint violation
		return fmt.Errorf("check constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		// Retryable transaction errors
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		// Connection errors
		return fmt.Errorf("database connection error: %w", err)

	case pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown:
		// Server unavailable
		return fmt.Errorf("database server unavailable: %w", err)

	case pgerrcode.QueryCanceled:
		// Context cancellation or timeout
		return fmt.Errorf("query canceled: %w", err)

	case pgerrcode.InsufficientResources,
		pgerrcode.DiskFull,
		pgerrcode.OutOfMemory,
		pgerrcode.TooManyConnections:
		// Resource errors (throttling-like)
		return fmt.Errorf("database resource limit: %w", err)

	default:
		// Unknown error - wrap with PostgreSQL error details
		return fmt.Errorf("postgres error [%s]: %s (detail: %s, hint: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, err)
	}
}

// mapForeignKeyViolation reports which referenced row was missing.
func mapForeignKeyViolation(pgErr *pgconn.PgError) error {
	var sentinel error
	switch pgErr.ConstraintName {
	case "repository_authorizations_repository_id_fkey",
		"access_requests_repository_id_fkey",
		"repository_versions_repository_id_fkey",
		"repository_version_languages_repository_id_fkey":
		sentinel = store.ErrRepositoryNotFound
	case "repository_versions_created_by_fkey",
		"repository_authorizations_principal_id_fkey",
		"access_requests_principal_id_fkey",
		"access_requests_approved_by_fkey",
		"repositories_owner_id_fkey",
		"organization_authorizations_principal_id_fkey",
		"organizations_org_id_fkey":
		sentinel = store.ErrPrincipalNotFound
	case "organization_authorizations_org_id_fkey":
		sentinel = store.ErrOrganizationNotFound
	case "repository_version_languages_version_id_fkey":
		sentinel = store.ErrVersionNotFound
	case "examples_version_language_id_fkey",
		"translated_examples_version_language_id_fkey":
		sentinel = store.ErrVersionLanguageNotFound
	case "translated_examples_original_example_id_fkey":
		sentinel = store.ErrExampleNotFound
	default:
		return fmt.Errorf("foreign key violation: %s: %w", pgErr.ConstraintName, pgErr)
	}
	return fmt.Errorf("%w: %s", sentinel, pgErr.Detail)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
