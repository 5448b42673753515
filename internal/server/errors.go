package server

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/access"
	"github.com/nluhub/nluhub/internal/artifact"
	"github.com/nluhub/nluhub/internal/authz"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/nluhub/nluhub/internal/trainer"
	"github.com/nluhub/nluhub/internal/training"
	"github.com/nluhub/nluhub/internal/validation"
	"github.com/rs/zerolog/log"
)

var errUnauthenticated = errors.New("authentication required")

var (
	notFoundErrors = []error{
		store.ErrPrincipalNotFound,
		store.ErrOrganizationNotFound,
		store.ErrRepositoryNotFound,
		store.ErrAuthorizationNotFound,
		store.ErrAccessRequestNotFound,
		store.ErrVersionNotFound,
		store.ErrVersionLanguageNotFound,
		store.ErrExampleNotFound,
		training.ErrNotTrained,
	}
	alreadyExistsErrors = []error{
		store.ErrPrincipalAlreadyExists,
		store.ErrOrganizationAlreadyExists,
		store.ErrRepositoryAlreadyExists,
		store.ErrVersionAlreadyExists,
		access.ErrDuplicateRequest,
		access.ErrAlreadyAdmin,
	}
	failedPreconditionErrors = []error{
		access.ErrAlreadyApproved,
		training.ErrTrainingInProgress,
		training.ErrNotTraining,
		authz.ErrOwnerRole,
	}
	invalidArgumentErrors = []error{
		validation.ErrInvalid,
		training.ErrRequirementsNotMet,
		authz.ErrInvalidRole,
		artifact.ErrEmptyPayload,
		artifact.ErrPayloadTooLarge,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// toConnectError maps engine errors to Connect codes. Unknown errors are
// logged and hidden behind CodeInternal.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	switch {
	case errors.Is(err, errUnauthenticated):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, authz.ErrPermissionDenied):
		return connect.NewError(connect.CodePermissionDenied, err)
	case isAny(err, notFoundErrors):
		return connect.NewError(connect.CodeNotFound, err)
	case isAny(err, alreadyExistsErrors):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case isAny(err, failedPreconditionErrors):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case isAny(err, invalidArgumentErrors):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, trainer.ErrUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	}

	log.Error().Err(err).Msg("Unhandled error")
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}

// parseID parses a UUID field of a request. Malformed IDs are reported as
// not found.
func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("%s %q not found", field, raw))
	}
	return id, nil
}
