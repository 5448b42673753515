package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/api"
	"github.com/nluhub/nluhub/internal/authz"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/nluhub/nluhub/internal/validation"
	"github.com/rs/zerolog/log"
)

// DefaultVersionName names the version every repository starts with.
const DefaultVersionName = "master"

type principalInput struct {
	Name  string `validate:"required,max=150"`
	Email string `validate:"omitempty,email"`
}

type organizationInput struct {
	Name string `validate:"required,max=150"`
}

type repositoryInput struct {
	Name     string `validate:"required,max=150"`
	Slug     string `validate:"required,max=32,lowercase"`
	Language string `validate:"required,max=5"`
}

// RegisterPrincipal creates the caller's principal record. Registering again
// returns the existing record unchanged.
func (s *Server) RegisterPrincipal(
	ctx context.Context,
	req *connect.Request[api.RegisterPrincipalRequest],
) (*connect.Response[api.RegisterPrincipalResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	in := principalInput{Name: strings.TrimSpace(req.Msg.Name), Email: strings.TrimSpace(req.Msg.Email)}
	if err := validation.Struct(in); err != nil {
		return nil, toConnectError(err)
	}

	now := time.Now()
	principal := &models.Principal{
		PrincipalID: principalID,
		Name:        in.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Email != "" {
		principal.Email = &in.Email
	}

	err = s.stores.Principals.Create(ctx, principal)
	switch {
	case errors.Is(err, store.ErrPrincipalAlreadyExists):
		principal, err = s.stores.Principals.Get(ctx, principalID)
		if err != nil {
			return nil, toConnectError(err)
		}
	case err != nil:
		return nil, toConnectError(err)
	default:
		log.Info().Str("principal_id", principalID.String()).Msg("Registered principal")
	}

	return connect.NewResponse(&api.RegisterPrincipalResponse{Principal: toPrincipal(principal)}), nil
}

// CreateOrganization creates an organization and makes the caller its admin.
func (s *Server) CreateOrganization(
	ctx context.Context,
	req *connect.Request[api.CreateOrganizationRequest],
) (*connect.Response[api.CreateOrganizationResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	in := organizationInput{Name: strings.TrimSpace(req.Msg.Name)}
	if err := validation.Struct(in); err != nil {
		return nil, toConnectError(err)
	}

	orgID, err := uuid.NewV7()
	if err != nil {
		return nil, toConnectError(fmt.Errorf("failed to generate organization ID: %w", err))
	}

	now := time.Now()
	if err := s.stores.Principals.Create(ctx, &models.Principal{
		PrincipalID:    orgID,
		Name:           in.Name,
		IsOrganization: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		return nil, toConnectError(err)
	}

	if err := s.stores.Organizations.Create(ctx, &models.Organization{
		OrgID:     orgID,
		Name:      in.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return nil, toConnectError(err)
	}

	if err := s.stores.Organizations.SetMemberRole(ctx, orgID, principalID, models.OrgRoleAdmin); err != nil {
		return nil, toConnectError(err)
	}

	log.Info().
		Str("org_id", orgID.String()).
		Str("principal_id", principalID.String()).
		Msg("Created organization")

	return connect.NewResponse(&api.CreateOrganizationResponse{OrganizationID: orgID.String()}), nil
}

// requireOrgAdmin fails with ErrPermissionDenied unless principalID
// administers the organization.
func (s *Server) requireOrgAdmin(ctx context.Context, orgID, principalID uuid.UUID) error {
	if _, err := s.stores.Organizations.Get(ctx, orgID); err != nil {
		return err
	}
	role, err := s.stores.Organizations.GetMemberRole(ctx, orgID, principalID)
	if err != nil {
		return err
	}
	if role != models.OrgRoleAdmin {
		return authz.ErrPermissionDenied
	}
	return nil
}

// SetOrganizationRole grants an organization role to a member. Only
// organization admins may call it.
func (s *Server) SetOrganizationRole(
	ctx context.Context,
	req *connect.Request[api.SetOrganizationRoleRequest],
) (*connect.Response[api.SetOrganizationRoleResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	orgID, err := parseID("organization", req.Msg.OrganizationID)
	if err != nil {
		return nil, err
	}
	memberID, err := parseID("principal", req.Msg.PrincipalID)
	if err != nil {
		return nil, err
	}

	role, ok := models.ParseOrgRole(req.Msg.Role)
	if !ok {
		return nil, toConnectError(fmt.Errorf("%w: %q", authz.ErrInvalidRole, req.Msg.Role))
	}

	if err := s.requireOrgAdmin(ctx, orgID, principalID); err != nil {
		return nil, toConnectError(err)
	}

	if _, err := s.stores.Principals.Get(ctx, memberID); err != nil {
		return nil, toConnectError(err)
	}

	if err := s.stores.Organizations.SetMemberRole(ctx, orgID, memberID, role); err != nil {
		return nil, toConnectError(err)
	}

	log.Info().
		Str("org_id", orgID.String()).
		Str("principal_id", memberID.String()).
		Stringer("role", role).
		Msg("Set organization role")

	return connect.NewResponse(&api.SetOrganizationRoleResponse{}), nil
}

// CreateRepository creates a repository owned by the caller, or by an
// organization the caller administers, together with its default version.
func (s *Server) CreateRepository(
	ctx context.Context,
	req *connect.Request[api.CreateRepositoryRequest],
) (*connect.Response[api.CreateRepositoryResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	ownerID := principalID
	if req.Msg.OwnerID != "" {
		ownerID, err = parseID("owner", req.Msg.OwnerID)
		if err != nil {
			return nil, err
		}
		if ownerID != principalID {
			if err := s.requireOrgAdmin(ctx, ownerID, principalID); err != nil {
				return nil, toConnectError(err)
			}
		}
	}

	in := repositoryInput{
		Name:     strings.TrimSpace(req.Msg.Name),
		Slug:     strings.TrimSpace(req.Msg.Slug),
		Language: strings.TrimSpace(req.Msg.Language),
	}
	if err := validation.Struct(in); err != nil {
		return nil, toConnectError(err)
	}

	repositoryID, err := uuid.NewV7()
	if err != nil {
		return nil, toConnectError(fmt.Errorf("failed to generate repository ID: %w", err))
	}

	now := time.Now()
	repo := &models.Repository{
		RepositoryID: repositoryID,
		OwnerID:      ownerID,
		Name:         in.Name,
		Slug:         in.Slug,
		Language:     in.Language,
		IsPrivate:    req.Msg.IsPrivate,
		Config:       models.DefaultTrainingConfig(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.stores.Repositories.Create(ctx, repo); err != nil {
		return nil, toConnectError(err)
	}

	version, err := s.training.CreateVersion(ctx, repositoryID, principalID, DefaultVersionName, true)
	if err != nil {
		return nil, toConnectError(err)
	}
	if _, err := s.training.EnsureVersionLanguage(ctx, version.VersionID, repo.Language); err != nil {
		return nil, toConnectError(err)
	}

	log.Info().
		Str("repository_id", repositoryID.String()).
		Str("owner_id", ownerID.String()).
		Str("slug", repo.Slug).
		Bool("private", repo.IsPrivate).
		Msg("Created repository")

	out := toRepository(repo)
	out.VersionID = version.VersionID.String()
	return connect.NewResponse(&api.CreateRepositoryResponse{Repository: out}), nil
}
