package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/readiness"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/nluhub/nluhub/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Reasons a Report is or is not ready.
const (
	ReasonTraining       = "training"
	ReasonUpToDate       = "up_to_date"
	ReasonBlocked        = "blocked"
	ReasonConfigDrift    = "config_drift"
	ReasonNoContent      = "no_content"
	ReasonNeverTrained   = "never_trained"
	ReasonContentChanged = "content_changed"
	ReasonUnchanged      = "unchanged"
)

// Report is the readiness of a version-language. It is recomputed on every
// read and never stored.
type Report struct {
	VersionLanguageID uuid.UUID
	State             models.TrainingState
	Ready             bool
	Reason            string
	Blocking          []string
	Warnings          []string
}

// Readiness reports whether a version-language should be (re)trained.
//
// A version-language that is training, or trained with neither newer content
// nor configuration drift, is reported not ready without running the evaluator.
func (m *Manager) Readiness(ctx context.Context, versionLanguageID uuid.UUID) (*Report, error) {
	vl, repo, err := m.load(ctx, versionLanguageID)
	if err != nil {
		return nil, err
	}

	report := &Report{VersionLanguageID: vl.ID, State: vl.State()}

	if report.State == models.TrainingStateTraining {
		report.Reason = ReasonTraining
		return report, nil
	}

	stats, err := m.examples.Stats(ctx, vl.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load content stats: %w", err)
	}

	drift, err := m.configDrift(ctx, repo, vl)
	if err != nil {
		return nil, err
	}

	changed := contentChangedSince(stats, vl.TrainingEndAt)
	if report.State == models.TrainingStateTrained && !changed && !drift {
		report.Reason = ReasonUpToDate
		return report, nil
	}

	examples, err := m.examples.ListVisible(ctx, vl.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list examples: %w", err)
	}

	start := time.Now()
	result := readiness.Evaluate(examples, m.policy)
	metrics := telemetry.GetMetrics()
	metrics.ReadinessDuration.Record(ctx, time.Since(start).Seconds())
	metrics.ReadinessEvaluations.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("ready", result.Ready())))

	report.Blocking = result.Blocking
	report.Warnings = result.Warnings

	switch {
	case !result.Ready():
		report.Reason = ReasonBlocked
	case drift:
		report.Ready = true
		report.Reason = ReasonConfigDrift
	case stats.ExamplesAdded == 0 && stats.TranslationsAdded == 0:
		report.Reason = ReasonNoContent
	case !vl.HasBeenTrained():
		report.Ready = true
		report.Reason = ReasonNeverTrained
	case changed:
		report.Ready = true
		report.Reason = ReasonContentChanged
	default:
		report.Reason = ReasonUnchanged
	}

	return report, nil
}

// configDrift compares the current repository configuration with the
// snapshot of the most recent initiated training in the same language. A
// failed previous training also counts as drift.
func (m *Manager) configDrift(ctx context.Context, repo *models.Repository, vl *models.RepositoryVersionLanguage) (bool, error) {
	previous, err := m.versions.LatestTrained(ctx, repo.RepositoryID, vl.Language)
	if err != nil {
		if errors.Is(err, store.ErrVersionLanguageNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load previous training: %w", err)
	}

	if previous.State() == models.TrainingStateFailed {
		return true, nil
	}
	if previous.TrainedConfig == nil {
		return false, nil
	}

	return len(previous.TrainedConfig.Diff(repo.Config)) > 0, nil
}

func contentChangedSince(stats *store.ContentStats, since *time.Time) bool {
	if stats.LastChangeAt == nil {
		return false
	}
	if since == nil {
		return true
	}
	return stats.LastChangeAt.After(*since)
}
