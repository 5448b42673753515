// Package access implements the access-request workflow: principals ask for
// access to a repository and admin-level principals approve or reject.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/authz"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/notify"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/nluhub/nluhub/internal/telemetry"
	"github.com/nluhub/nluhub/internal/validation"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyAdmin     = errors.New("principal already administers the repository")
	ErrDuplicateRequest = errors.New("access request already exists")
	ErrAlreadyApproved  = errors.New("access request already approved")
)

// MaxTextLength is the longest justification a request may carry.
const MaxTextLength = 250

type requestInput struct {
	Text string `validate:"required,max=250"`
}

// Workflow creates, approves and rejects access requests.
type Workflow struct {
	resolver       *authz.Resolver
	repositories   store.RepositoryStore
	authorizations store.AuthorizationStore
	requests       store.AccessRequestStore
	notifier       notify.Notifier
	now            func() time.Time
}

// NewWorkflow creates a Workflow. Notifications go through notifier.
func NewWorkflow(stores *store.Stores, resolver *authz.Resolver, notifier notify.Notifier) *Workflow {
	return &Workflow{
		resolver:       resolver,
		repositories:   stores.Repositories,
		authorizations: stores.Authorizations,
		requests:       stores.AccessRequests,
		notifier:       notifier,
		now:            time.Now,
	}
}

// Request records that principalID asks for access to repositoryID and
// notifies every admin-level principal of the repository.
func (w *Workflow) Request(ctx context.Context, repositoryID, principalID uuid.UUID, text string) (*models.AccessRequest, error) {
	if principalID == uuid.Nil {
		return nil, authz.ErrPermissionDenied
	}
	if err := validation.Struct(requestInput{Text: text}); err != nil {
		return nil, err
	}

	repo, err := w.repositories.Get(ctx, repositoryID)
	if err != nil {
		return nil, err
	}

	view, err := w.resolver.ResolveRepository(ctx, repo, principalID)
	if err != nil {
		return nil, err
	}
	if view.IsAdmin() {
		return nil, ErrAlreadyAdmin
	}

	now := w.now()
	req := &models.AccessRequest{
		RequestID:    uuid.Must(uuid.NewV7()),
		RepositoryID: repositoryID,
		PrincipalID:  principalID,
		Text:         text,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := w.requests.Create(ctx, req); err != nil {
		if errors.Is(err, store.ErrAccessRequestAlreadyExists) {
			return nil, ErrDuplicateRequest
		}
		return nil, fmt.Errorf("failed to create access request: %w", err)
	}

	telemetry.GetMetrics().AccessRequestsTotal.Add(ctx, 1)
	log.Info().
		Str("request_id", req.RequestID.String()).
		Str("repository_id", repositoryID.String()).
		Str("principal_id", principalID.String()).
		Msg("Access requested")

	recipients, err := w.admins(ctx, repo)
	if err != nil {
		// the request already exists; a missing notification is not fatal
		log.Warn().Err(err).Str("request_id", req.RequestID.String()).Msg("Failed to list repository admins")
	}
	w.notifier.Notify(ctx, notify.TemplateRequestAccess, recipients, map[string]any{
		"repository":    repo.Name,
		"repository_id": repo.RepositoryID.String(),
		"requester_id":  principalID.String(),
		"text":          text,
	})

	return req, nil
}

// admins returns the owner followed by every ADMIN-role principal.
func (w *Workflow) admins(ctx context.Context, repo *models.Repository) ([]uuid.UUID, error) {
	recipients := []uuid.UUID{repo.OwnerID}

	recs, err := w.authorizations.ListByRole(ctx, repo.RepositoryID, models.RoleAdmin)
	if err != nil {
		return recipients, err
	}
	for _, rec := range recs {
		if rec.PrincipalID != repo.OwnerID {
			recipients = append(recipients, rec.PrincipalID)
		}
	}

	return recipients, nil
}

// Approve promotes the requester to at least user, then marks the request
// approved by approverID. Of several concurrent approvals exactly one
// succeeds. A failed promotion leaves the request pending.
func (w *Workflow) Approve(ctx context.Context, requestID, approverID uuid.UUID) (*models.AccessRequest, error) {
	req, err := w.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if _, err := w.resolver.RequireAdmin(ctx, req.RepositoryID, approverID); err != nil {
		return nil, err
	}

	if req.IsApproved() {
		return nil, ErrAlreadyApproved
	}

	// PromoteRole only raises, so running it ahead of the approval is safe to
	// repeat when a concurrent approver wins below.
	if _, _, err := w.authorizations.PromoteRole(ctx, req.RepositoryID, req.PrincipalID, models.RoleUser); err != nil {
		return nil, fmt.Errorf("failed to promote requester: %w", err)
	}

	approved, err := w.requests.Approve(ctx, requestID, approverID)
	if err != nil {
		if errors.Is(err, store.ErrAccessRequestAlreadyApproved) {
			return nil, ErrAlreadyApproved
		}
		return nil, fmt.Errorf("failed to approve access request: %w", err)
	}

	telemetry.GetMetrics().AccessApprovalsTotal.Add(ctx, 1)
	log.Info().
		Str("request_id", requestID.String()).
		Str("repository_id", req.RepositoryID.String()).
		Str("approver_id", approverID.String()).
		Msg("Access request approved")

	w.notifier.Notify(ctx, notify.TemplateRequestApproved, []uuid.UUID{req.PrincipalID}, map[string]any{
		"repository_id": req.RepositoryID.String(),
		"approver_id":   approverID.String(),
	})

	return approved, nil
}

// Reject deletes the request, then the requester's authorization record, then
// notifies the requester.
func (w *Workflow) Reject(ctx context.Context, requestID, actorID uuid.UUID) error {
	req, err := w.requests.Get(ctx, requestID)
	if err != nil {
		return err
	}

	if _, err := w.resolver.RequireAdmin(ctx, req.RepositoryID, actorID); err != nil {
		return err
	}

	if err := w.requests.Delete(ctx, requestID); err != nil {
		return fmt.Errorf("failed to delete access request: %w", err)
	}

	err = w.authorizations.Delete(ctx, req.RepositoryID, req.PrincipalID)
	if err != nil && !errors.Is(err, store.ErrAuthorizationNotFound) {
		return fmt.Errorf("failed to delete requester authorization: %w", err)
	}

	telemetry.GetMetrics().AccessRejectionsTotal.Add(ctx, 1)
	log.Info().
		Str("request_id", requestID.String()).
		Str("repository_id", req.RepositoryID.String()).
		Str("actor_id", actorID.String()).
		Msg("Access request rejected")

	w.notifier.Notify(ctx, notify.TemplateRequestRejected, []uuid.UUID{req.PrincipalID}, map[string]any{
		"repository_id": req.RepositoryID.String(),
	})

	return nil
}

// List returns the requests of a repository to an admin-level actor.
func (w *Workflow) List(ctx context.Context, repositoryID, actorID uuid.UUID) ([]*models.AccessRequest, error) {
	if _, err := w.resolver.RequireAdmin(ctx, repositoryID, actorID); err != nil {
		return nil, err
	}

	return w.requests.ListByRepository(ctx, repositoryID)
}
