// Package training drives the lifecycle of version-languages: starting,
// completing and failing training, recomputing readiness, and the content
// and configuration mutations readiness depends on.
package training

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/artifact"
	"github.com/nluhub/nluhub/internal/authz"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/readiness"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/nluhub/nluhub/internal/telemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrTrainingInProgress = errors.New("training already in progress")
	ErrNotTraining        = errors.New("version language is not training")
	ErrRequirementsNotMet = errors.New("training requirements not met")
	ErrNotTrained         = errors.New("version language has not been trained")
)

// Manager records training state transitions and answers readiness queries.
// It does not run or supervise training itself.
type Manager struct {
	resolver     *authz.Resolver
	repositories store.RepositoryStore
	versions     store.VersionStore
	examples     store.ExampleStore

	policy          readiness.Policy
	strictReadiness bool
	now             func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithPolicy sets the readiness thresholds.
func WithPolicy(policy readiness.Policy) Option {
	return func(m *Manager) {
		m.policy = policy
	}
}

// WithStrictReadiness makes StartTraining refuse when blocking requirements remain.
func WithStrictReadiness(strict bool) Option {
	return func(m *Manager) {
		m.strictReadiness = strict
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager.
func NewManager(stores *store.Stores, resolver *authz.Resolver, opts ...Option) *Manager {
	m := &Manager{
		resolver:     resolver,
		repositories: stores.Repositories,
		versions:     stores.Versions,
		examples:     stores.Examples,
		policy:       readiness.DefaultPolicy(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.policy.ApplyDefaults()
	return m
}

// load returns a version-language with its repository.
func (m *Manager) load(ctx context.Context, versionLanguageID uuid.UUID) (*models.RepositoryVersionLanguage, *models.Repository, error) {
	vl, err := m.versions.GetLanguage(ctx, versionLanguageID)
	if err != nil {
		return nil, nil, err
	}

	repo, err := m.repositories.Get(ctx, vl.RepositoryID)
	if err != nil {
		return nil, nil, err
	}

	return vl, repo, nil
}

func recordTransition(ctx context.Context, transition string) {
	telemetry.GetMetrics().TrainingTransitionsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("transition", transition)))
}

// StartTraining moves a version-language into Training on behalf of
// initiatorID, who must be able to write to the repository. The repository
// configuration is snapshotted onto the version-language.
func (m *Manager) StartTraining(ctx context.Context, versionLanguageID, initiatorID uuid.UUID) (*models.RepositoryVersionLanguage, error) {
	vl, repo, err := m.load(ctx, versionLanguageID)
	if err != nil {
		return nil, err
	}

	view, err := m.resolver.ResolveRepository(ctx, repo, initiatorID)
	if err != nil {
		return nil, err
	}
	if !view.CanWrite() {
		return nil, authz.ErrPermissionDenied
	}

	if vl.State() == models.TrainingStateTraining {
		return nil, ErrTrainingInProgress
	}

	examples, err := m.examples.ListVisible(ctx, vl.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list examples: %w", err)
	}
	if result := readiness.Evaluate(examples, m.policy); !result.Ready() {
		if m.strictReadiness {
			return nil, fmt.Errorf("%w: %s", ErrRequirementsNotMet, strings.Join(result.Blocking, "; "))
		}
		log.Warn().
			Str("version_language_id", vl.ID.String()).
			Strs("blocking", result.Blocking).
			Msg("Starting training with unmet requirements")
	}

	now := m.now()
	cfg := repo.Config
	initiator := initiatorID
	vl.TrainingStartedAt = &now
	vl.TrainedConfig = &cfg
	vl.TrainedBy = &initiator

	if err := m.versions.UpdateTraining(ctx, vl); err != nil {
		return nil, fmt.Errorf("failed to start training: %w", err)
	}
	if err := m.versions.SetLastTrainedBy(ctx, vl.VersionID, initiatorID); err != nil {
		return nil, fmt.Errorf("failed to record training initiator: %w", err)
	}

	recordTransition(ctx, "start")
	log.Info().
		Str("version_language_id", vl.ID.String()).
		Str("repository_id", repo.RepositoryID.String()).
		Str("initiator_id", initiatorID.String()).
		Str("algorithm", string(cfg.Algorithm)).
		Msg("Training started")

	return vl, nil
}

// CompleteTraining stores the trained model and moves the version-language
// from Training to Trained.
func (m *Manager) CompleteTraining(ctx context.Context, versionLanguageID uuid.UUID, payload []byte) (*models.RepositoryVersionLanguage, error) {
	vl, err := m.versions.GetLanguage(ctx, versionLanguageID)
	if err != nil {
		return nil, err
	}
	if vl.State() != models.TrainingStateTraining {
		return nil, ErrNotTraining
	}

	ref, err := artifact.Encode(payload)
	if err != nil {
		return nil, err
	}

	now := m.now()
	vl.TrainingEndAt = &now
	vl.Artifact = ref
	vl.TotalTrainingEnd++

	if err := m.versions.UpdateTraining(ctx, vl); err != nil {
		return nil, fmt.Errorf("failed to complete training: %w", err)
	}

	recordTransition(ctx, "complete")
	log.Info().
		Str("version_language_id", vl.ID.String()).
		Str("checksum", ref.Checksum).
		Int64("size", ref.Size).
		Int("total_training_end", vl.TotalTrainingEnd).
		Msg("Training completed")

	return vl, nil
}

// FailTraining moves a version-language from Training to Failed. The last
// successful training end is kept.
func (m *Manager) FailTraining(ctx context.Context, versionLanguageID uuid.UUID) (*models.RepositoryVersionLanguage, error) {
	vl, err := m.versions.GetLanguage(ctx, versionLanguageID)
	if err != nil {
		return nil, err
	}
	if vl.State() != models.TrainingStateTraining {
		return nil, ErrNotTraining
	}

	now := m.now()
	vl.FailedAt = &now

	if err := m.versions.UpdateTraining(ctx, vl); err != nil {
		return nil, fmt.Errorf("failed to record training failure: %w", err)
	}

	recordTransition(ctx, "fail")
	log.Warn().
		Str("version_language_id", vl.ID.String()).
		Msg("Training failed")

	return vl, nil
}

// Artifact returns the decoded model of the last successful training.
func (m *Manager) Artifact(ctx context.Context, versionLanguageID, principalID uuid.UUID) ([]byte, error) {
	vl, repo, err := m.load(ctx, versionLanguageID)
	if err != nil {
		return nil, err
	}

	view, err := m.resolver.ResolveRepository(ctx, repo, principalID)
	if err != nil {
		return nil, err
	}
	if !view.CanRead() {
		return nil, authz.ErrPermissionDenied
	}

	if vl.Artifact == nil {
		return nil, ErrNotTrained
	}

	return artifact.Decode(vl.Artifact)
}
