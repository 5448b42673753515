package server

import (
	"github.com/nluhub/nluhub/internal/api"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/training"
)

func toPrincipal(p *models.Principal) api.Principal {
	return api.Principal{
		PrincipalID:    p.PrincipalID.String(),
		Name:           p.Name,
		IsOrganization: p.IsOrganization,
	}
}

func toRepository(repo *models.Repository) api.Repository {
	return api.Repository{
		RepositoryID: repo.RepositoryID.String(),
		OwnerID:      repo.OwnerID.String(),
		Name:         repo.Name,
		Slug:         repo.Slug,
		Language:     repo.Language,
		IsPrivate:    repo.IsPrivate,
		Config:       repo.Config,
	}
}

func toAccessRequest(req *models.AccessRequest) api.AccessRequest {
	out := api.AccessRequest{
		RequestID:    req.RequestID.String(),
		RepositoryID: req.RepositoryID.String(),
		PrincipalID:  req.PrincipalID.String(),
		Text:         req.Text,
		CreatedAt:    req.CreatedAt,
	}
	if req.ApprovedBy != nil {
		out.ApprovedBy = req.ApprovedBy.String()
	}
	return out
}

func toVersionLanguage(vl *models.RepositoryVersionLanguage) api.VersionLanguage {
	out := api.VersionLanguage{
		VersionLanguageID: vl.ID.String(),
		VersionID:         vl.VersionID.String(),
		RepositoryID:      vl.RepositoryID.String(),
		Language:          vl.Language,
		State:             string(vl.State()),
		TrainingStartedAt: vl.TrainingStartedAt,
		TrainingEndAt:     vl.TrainingEndAt,
		FailedAt:          vl.FailedAt,
		TotalTrainingEnd:  vl.TotalTrainingEnd,
	}
	if vl.Artifact != nil {
		out.ArtifactChecksum = vl.Artifact.Checksum
	}
	return out
}

func toAuthorization(view *models.AuthorizationView) *api.ResolveAuthorizationResponse {
	return &api.ResolveAuthorizationResponse{
		RepositoryID:  view.RepositoryID.String(),
		PrincipalID:   view.PrincipalID.String(),
		Role:          view.Role.String(),
		Level:         view.Level.String(),
		IsOwner:       view.IsOwner,
		CanRead:       view.CanRead(),
		CanContribute: view.CanContribute(),
		CanWrite:      view.CanWrite(),
		IsAdmin:       view.IsAdmin(),
	}
}

func toEntityInputs(in []api.Entity) []training.EntityInput {
	out := make([]training.EntityInput, 0, len(in))
	for _, e := range in {
		out = append(out, training.EntityInput{Start: e.Start, End: e.End, Entity: e.Entity})
	}
	return out
}
