// Package authz resolves the effective authorization of a principal on a
// repository by merging ownership, the organization grant and the stored
// repository grant.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/nluhub/nluhub/internal/telemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidRole      = errors.New("invalid role")
	ErrOwnerRole        = errors.New("the repository owner's role cannot be changed")
)

// DefaultPromotionCeiling is the lowest organization role that no longer
// promotes repository roles.
const DefaultPromotionCeiling = models.OrgRoleTranslate

// Resolver computes AuthorizationViews. Resolution persists organization-driven
// promotions as a high-water mark and never lowers a stored role.
type Resolver struct {
	repositories   store.RepositoryStore
	organizations  store.OrganizationStore
	authorizations store.AuthorizationStore

	promotionCeiling models.OrgRole
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPromotionCeiling sets the organization role at and above which
// membership no longer promotes repository roles.
func WithPromotionCeiling(role models.OrgRole) Option {
	return func(r *Resolver) {
		r.promotionCeiling = role
	}
}

// NewResolver creates a Resolver reading through stores.
func NewResolver(stores *store.Stores, opts ...Option) *Resolver {
	r := &Resolver{
		repositories:     stores.Repositories,
		organizations:    stores.Organizations,
		authorizations:   stores.Authorizations,
		promotionCeiling: DefaultPromotionCeiling,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the authorization of principalID on repositoryID.
// uuid.Nil resolves as an anonymous caller and nothing is persisted.
func (r *Resolver) Resolve(ctx context.Context, repositoryID, principalID uuid.UUID) (*models.AuthorizationView, error) {
	repo, err := r.repositories.Get(ctx, repositoryID)
	if err != nil {
		return nil, err
	}

	return r.ResolveRepository(ctx, repo, principalID)
}

// ResolveRepository is Resolve for a repository the caller already loaded.
func (r *Resolver) ResolveRepository(ctx context.Context, repo *models.Repository, principalID uuid.UUID) (*models.AuthorizationView, error) {
	view, err := r.resolve(ctx, repo, principalID)
	if err != nil {
		return nil, err
	}

	telemetry.GetMetrics().AuthorizationsResolvedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("level", view.Level.String())))

	return view, nil
}

func (r *Resolver) resolve(ctx context.Context, repo *models.Repository, principalID uuid.UUID) (*models.AuthorizationView, error) {
	view := &models.AuthorizationView{
		RepositoryID: repo.RepositoryID,
		PrincipalID:  principalID,
	}

	if principalID == uuid.Nil {
		view.Role = models.RoleNotSet
		view.Level = models.LevelForRole(models.RoleNotSet, repo.IsPrivate)
		return view, nil
	}

	if repo.IsOwnedBy(principalID) {
		view.Role = models.RoleAdmin
		view.Level = models.LevelAdmin
		view.IsOwner = true
		return view, nil
	}

	rec, err := r.authorizations.Ensure(ctx, repo.RepositoryID, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure authorization: %w", err)
	}

	orgRole, err := r.organizations.GetMemberRole(ctx, repo.OwnerID, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization role: %w", err)
	}

	derived := r.derivedRole(orgRole)
	if derived > rec.Role {
		promotedRec, promoted, err := r.authorizations.PromoteRole(ctx, repo.RepositoryID, principalID, derived)
		if err != nil {
			return nil, fmt.Errorf("failed to promote role: %w", err)
		}
		if promoted {
			telemetry.GetMetrics().RolePromotionsTotal.Add(ctx, 1)
			log.Info().
				Str("repository_id", repo.RepositoryID.String()).
				Str("principal_id", principalID.String()).
				Stringer("org_role", orgRole).
				Stringer("role", promotedRec.Role).
				Msg("Promoted repository role from organization membership")
		}
		rec = promotedRec
	}

	view.Role = models.MaxRole(rec.Role, derived)
	view.Level = models.LevelForRole(view.Role, repo.IsPrivate)
	view.Authorization = rec

	return view, nil
}

// derivedRole maps an organization role onto the repository scale. Roles at
// or above the promotion ceiling derive nothing.
func (r *Resolver) derivedRole(orgRole models.OrgRole) models.Role {
	if orgRole >= r.promotionCeiling {
		return models.RoleNotSet
	}
	return orgRole.RepositoryRole()
}

// SetRole lets an admin-level actor grant role to target directly. Unlike
// organization promotion this may lower a role.
func (r *Resolver) SetRole(ctx context.Context, repositoryID, actorID, targetID uuid.UUID, role models.Role) (*models.RepositoryAuthorization, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if targetID == uuid.Nil {
		return nil, store.ErrPrincipalNotFound
	}

	repo, err := r.repositories.Get(ctx, repositoryID)
	if err != nil {
		return nil, err
	}

	actor, err := r.ResolveRepository(ctx, repo, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	if repo.IsOwnedBy(targetID) {
		return nil, ErrOwnerRole
	}

	rec, err := r.authorizations.SetRole(ctx, repositoryID, targetID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to set role: %w", err)
	}

	log.Info().
		Str("repository_id", repositoryID.String()).
		Str("actor_id", actorID.String()).
		Str("principal_id", targetID.String()).
		Stringer("role", role).
		Msg("Set repository role")

	return rec, nil
}

// RequireAdmin resolves actorID and fails with ErrPermissionDenied unless it
// is admin-level on the repository.
func (r *Resolver) RequireAdmin(ctx context.Context, repositoryID, actorID uuid.UUID) (*models.AuthorizationView, error) {
	view, err := r.Resolve(ctx, repositoryID, actorID)
	if err != nil {
		return nil, err
	}
	if !view.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	return view, nil
}
