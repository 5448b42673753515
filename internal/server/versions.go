package server

import (
	"context"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/api"
	"github.com/nluhub/nluhub/internal/authz"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/training"
)

// authorize resolves principalID on the repository of a version-language and
// fails with ErrPermissionDenied unless allowed accepts the view.
func (s *Server) authorize(
	ctx context.Context,
	versionLanguageID, principalID uuid.UUID,
	allowed func(*models.AuthorizationView) bool,
) (*models.RepositoryVersionLanguage, *models.AuthorizationView, error) {
	vl, err := s.stores.Versions.GetLanguage(ctx, versionLanguageID)
	if err != nil {
		return nil, nil, err
	}

	view, err := s.resolver.Resolve(ctx, vl.RepositoryID, principalID)
	if err != nil {
		return nil, nil, err
	}
	if !allowed(view) {
		return nil, nil, authz.ErrPermissionDenied
	}

	return vl, view, nil
}

// UpdateConfig replaces the training configuration of a repository and
// reports the fields that changed.
func (s *Server) UpdateConfig(
	ctx context.Context,
	req *connect.Request[api.UpdateConfigRequest],
) (*connect.Response[api.UpdateConfigResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	repositoryID, err := parseID("repository", req.Msg.RepositoryID)
	if err != nil {
		return nil, err
	}

	changed, err := s.training.UpdateConfig(ctx, repositoryID, principalID, req.Msg.Config)
	if err != nil {
		return nil, toConnectError(err)
	}
	if changed == nil {
		changed = []string{}
	}

	return connect.NewResponse(&api.UpdateConfigResponse{Changed: changed}), nil
}

func (s *Server) CreateVersion(
	ctx context.Context,
	req *connect.Request[api.CreateVersionRequest],
) (*connect.Response[api.CreateVersionResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	repositoryID, err := parseID("repository", req.Msg.RepositoryID)
	if err != nil {
		return nil, err
	}

	version, err := s.training.CreateVersion(ctx, repositoryID, principalID, req.Msg.Name, req.Msg.IsDefault)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.CreateVersionResponse{
		VersionID: version.VersionID.String(),
		IsDefault: version.IsDefault,
	}), nil
}

func (s *Server) SetDefaultVersion(
	ctx context.Context,
	req *connect.Request[api.SetDefaultVersionRequest],
) (*connect.Response[api.SetDefaultVersionResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	repositoryID, err := parseID("repository", req.Msg.RepositoryID)
	if err != nil {
		return nil, err
	}
	versionID, err := parseID("version", req.Msg.VersionID)
	if err != nil {
		return nil, err
	}

	if err := s.training.SetDefaultVersion(ctx, repositoryID, versionID, principalID); err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.SetDefaultVersionResponse{}), nil
}

// EnsureVersionLanguage returns the training unit of a version for a
// language, creating it when missing. Contributors may call it.
func (s *Server) EnsureVersionLanguage(
	ctx context.Context,
	req *connect.Request[api.EnsureVersionLanguageRequest],
) (*connect.Response[api.EnsureVersionLanguageResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	versionID, err := parseID("version", req.Msg.VersionID)
	if err != nil {
		return nil, err
	}

	version, err := s.stores.Versions.GetVersion(ctx, versionID)
	if err != nil {
		return nil, toConnectError(err)
	}

	view, err := s.resolver.Resolve(ctx, version.RepositoryID, principalID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !view.CanContribute() {
		return nil, toConnectError(authz.ErrPermissionDenied)
	}

	vl, err := s.training.EnsureVersionLanguage(ctx, versionID, req.Msg.Language)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.EnsureVersionLanguageResponse{VersionLanguage: toVersionLanguage(vl)}), nil
}

func (s *Server) AddExample(
	ctx context.Context,
	req *connect.Request[api.AddExampleRequest],
) (*connect.Response[api.AddExampleResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	vlID, err := parseID("version_language", req.Msg.VersionLanguageID)
	if err != nil {
		return nil, err
	}

	example, err := s.training.AddExample(ctx, vlID, principalID, training.ExampleInput{
		Text:     req.Msg.Text,
		Intent:   req.Msg.Intent,
		Entities: toEntityInputs(req.Msg.Entities),
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.AddExampleResponse{ExampleID: example.ExampleID.String()}), nil
}

func (s *Server) DeleteExample(
	ctx context.Context,
	req *connect.Request[api.DeleteExampleRequest],
) (*connect.Response[api.DeleteExampleResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	exampleID, err := parseID("example", req.Msg.ExampleID)
	if err != nil {
		return nil, err
	}
	vlID, err := parseID("version_language", req.Msg.VersionLanguageID)
	if err != nil {
		return nil, err
	}

	if err := s.training.DeleteExample(ctx, exampleID, vlID, principalID); err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.DeleteExampleResponse{}), nil
}

func (s *Server) AddTranslation(
	ctx context.Context,
	req *connect.Request[api.AddTranslationRequest],
) (*connect.Response[api.AddTranslationResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	exampleID, err := parseID("example", req.Msg.ExampleID)
	if err != nil {
		return nil, err
	}
	vlID, err := parseID("version_language", req.Msg.VersionLanguageID)
	if err != nil {
		return nil, err
	}

	translation, err := s.training.AddTranslation(ctx, exampleID, vlID, principalID, req.Msg.Text)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.AddTranslationResponse{TranslationID: translation.TranslationID.String()}), nil
}
