package server

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/api"
	"github.com/nluhub/nluhub/internal/artifact"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/trainer"
	"github.com/nluhub/nluhub/internal/training"
	"github.com/rs/zerolog/log"
)

var errNoTrainer = fmt.Errorf("%w: no trainer configured", trainer.ErrUnavailable)

// credential returns the authorization record the trainer authenticates
// principalID's requests with, creating it when missing.
func (s *Server) credential(ctx context.Context, repositoryID, principalID uuid.UUID) (uuid.UUID, error) {
	rec, err := s.stores.Authorizations.Ensure(ctx, repositoryID, principalID)
	if err != nil {
		return uuid.Nil, err
	}
	return rec.AuthorizationID, nil
}

// GetVersionReadiness reports whether a version-language should be trained.
// It is recomputed on every call.
func (s *Server) GetVersionReadiness(
	ctx context.Context,
	req *connect.Request[api.GetVersionReadinessRequest],
) (*connect.Response[api.GetVersionReadinessResponse], error) {
	vlID, err := parseID("version_language", req.Msg.VersionLanguageID)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.authorize(ctx, vlID, callerOrAnonymous(ctx), (*models.AuthorizationView).CanRead); err != nil {
		return nil, toConnectError(err)
	}

	report, err := s.training.Readiness(ctx, vlID)
	if err != nil {
		return nil, toConnectError(err)
	}

	blocking, warnings := report.Blocking, report.Warnings
	if blocking == nil {
		blocking = []string{}
	}
	if warnings == nil {
		warnings = []string{}
	}

	return connect.NewResponse(&api.GetVersionReadinessResponse{
		Ready:    report.Ready,
		State:    string(report.State),
		Reason:   report.Reason,
		Blocking: blocking,
		Warnings: warnings,
	}), nil
}

// StartTraining moves a version-language to Training and, when a trainer is
// configured, asks it to train. A trainer that cannot be reached fails the
// training again.
func (s *Server) StartTraining(
	ctx context.Context,
	req *connect.Request[api.StartTrainingRequest],
) (*connect.Response[api.StartTrainingResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	vlID, err := parseID("version_language", req.Msg.VersionLanguageID)
	if err != nil {
		return nil, err
	}

	vl, err := s.training.StartTraining(ctx, vlID, principalID)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &api.StartTrainingResponse{VersionLanguage: toVersionLanguage(vl)}
	if s.trainer == nil {
		return connect.NewResponse(resp), nil
	}

	status, err := s.dispatchTraining(ctx, vl, principalID)
	if err != nil {
		if _, failErr := s.training.FailTraining(ctx, vlID); failErr != nil {
			log.Error().Err(failErr).Str("version_language_id", vlID.String()).Msg("Failed to record training failure")
		}
		return nil, toConnectError(err)
	}
	resp.TrainerStatus = status

	return connect.NewResponse(resp), nil
}

func (s *Server) dispatchTraining(ctx context.Context, vl *models.RepositoryVersionLanguage, principalID uuid.UUID) (string, error) {
	credential, err := s.credential(ctx, vl.RepositoryID, principalID)
	if err != nil {
		return "", err
	}

	trainReq := &trainer.TrainRequest{
		VersionLanguageID: vl.ID,
		Language:          vl.Language,
		InitiatorID:       principalID,
	}
	if vl.TrainedConfig != nil {
		trainReq.Config = *vl.TrainedConfig
	}

	res, err := s.trainer.Train(ctx, credential, trainReq)
	if err != nil {
		return "", err
	}

	log.Info().
		Str("version_language_id", vl.ID.String()).
		Str("status", res.Status).
		Str("task_id", res.TaskID).
		Msg("Training dispatched")

	return res.Status, nil
}

// CompleteTraining stores the trained model and moves the version-language to
// Trained. Writers call it on behalf of the trainer.
func (s *Server) CompleteTraining(
	ctx context.Context,
	req *connect.Request[api.CompleteTrainingRequest],
) (*connect.Response[api.CompleteTrainingResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	vlID, err := parseID("version_language", req.Msg.VersionLanguageID)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.authorize(ctx, vlID, principalID, (*models.AuthorizationView).CanWrite); err != nil {
		return nil, toConnectError(err)
	}

	vl, err := s.training.CompleteTraining(ctx, vlID, req.Msg.Payload)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.CompleteTrainingResponse{VersionLanguage: toVersionLanguage(vl)}), nil
}

// FailTraining moves a training version-language to Failed.
func (s *Server) FailTraining(
	ctx context.Context,
	req *connect.Request[api.FailTrainingRequest],
) (*connect.Response[api.FailTrainingResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	vlID, err := parseID("version_language", req.Msg.VersionLanguageID)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.authorize(ctx, vlID, principalID, (*models.AuthorizationView).CanWrite); err != nil {
		return nil, toConnectError(err)
	}

	vl, err := s.training.FailTraining(ctx, vlID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.FailTrainingResponse{VersionLanguage: toVersionLanguage(vl)}), nil
}

const modelCacheControl = "private, max-age=30"

// GetModel returns the model of the last successful training.
func (s *Server) GetModel(
	ctx context.Context,
	req *connect.Request[api.GetModelRequest],
) (*connect.Response[api.GetModelResponse], error) {
	vlID, err := parseID("version_language", req.Msg.VersionLanguageID)
	if err != nil {
		return nil, err
	}

	payload, err := s.training.Artifact(ctx, vlID, callerOrAnonymous(ctx))
	if err != nil {
		return nil, toConnectError(err)
	}

	checksum := artifact.Checksum(payload)
	resp := connect.NewResponse(&api.GetModelResponse{Checksum: checksum, Payload: payload})
	resp.Header().Set("ETag", fmt.Sprintf(`"%s"`, checksum))
	resp.Header().Set("Cache-Control", modelCacheControl)

	return resp, nil
}

// Analyze parses a sentence with the trained model.
func (s *Server) Analyze(
	ctx context.Context,
	req *connect.Request[api.AnalyzeRequest],
) (*connect.Response[api.AnalyzeResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	vlID, err := parseID("version_language", req.Msg.VersionLanguageID)
	if err != nil {
		return nil, err
	}

	vl, _, err := s.authorize(ctx, vlID, principalID, (*models.AuthorizationView).CanRead)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !vl.HasBeenTrained() {
		return nil, toConnectError(errNotTrained(vl))
	}
	if s.trainer == nil {
		return nil, toConnectError(errNoTrainer)
	}

	credential, err := s.credential(ctx, vl.RepositoryID, principalID)
	if err != nil {
		return nil, toConnectError(err)
	}

	res, err := s.trainer.Analyze(ctx, credential, &trainer.AnalyzeRequest{
		VersionLanguageID: vl.ID,
		Language:          vl.Language,
		Text:              req.Msg.Text,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	entities := make([]api.Entity, 0, len(res.Entities))
	for _, e := range res.Entities {
		entities = append(entities, api.Entity{Start: e.Start, End: e.End, Entity: e.Entity})
	}

	return connect.NewResponse(&api.AnalyzeResponse{
		Intent:   api.Prediction{Name: res.Intent.Name, Confidence: res.Intent.Confidence},
		Entities: entities,
	}), nil
}

// Evaluate asks the trainer to score the trained model. Writers only.
func (s *Server) Evaluate(
	ctx context.Context,
	req *connect.Request[api.EvaluateRequest],
) (*connect.Response[api.EvaluateResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	vlID, err := parseID("version_language", req.Msg.VersionLanguageID)
	if err != nil {
		return nil, err
	}

	vl, _, err := s.authorize(ctx, vlID, principalID, (*models.AuthorizationView).CanWrite)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !vl.HasBeenTrained() {
		return nil, toConnectError(errNotTrained(vl))
	}
	if s.trainer == nil {
		return nil, toConnectError(errNoTrainer)
	}

	credential, err := s.credential(ctx, vl.RepositoryID, principalID)
	if err != nil {
		return nil, toConnectError(err)
	}

	res, err := s.trainer.Evaluate(ctx, credential, &trainer.EvaluateRequest{
		VersionLanguageID: vl.ID,
		Language:          vl.Language,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.EvaluateResponse{
		EvaluationID: res.EvaluationID,
		Accuracy:     res.Accuracy,
		Precision:    res.Precision,
		F1Score:      res.F1Score,
	}), nil
}

func errNotTrained(vl *models.RepositoryVersionLanguage) error {
	return fmt.Errorf("%w: %s", training.ErrNotTrained, vl.ID)
}
