package models

import (
	"time"

	"github.com/google/uuid"
)

// TrainingState is the derived state of a RepositoryVersionLanguage.
type TrainingState string

const (
	TrainingStateFresh    TrainingState = "fresh"
	TrainingStateTraining TrainingState = "training"
	TrainingStateTrained  TrainingState = "trained"
	TrainingStateFailed   TrainingState = "failed"
)

// RepositoryVersion is a named branch of a repository. Exactly one version per
// repository is the default.
type RepositoryVersion struct {
	VersionID     uuid.UUID // UUIDv7
	RepositoryID  uuid.UUID
	Name          string
	IsDefault     bool
	CreatedBy     *uuid.UUID
	LastTrainedBy *uuid.UUID
	CreatedAt     time.Time
}

// ArtifactRef describes a stored trained-model payload.
type ArtifactRef struct {
	Checksum string // base58 CRC64-NVME of the raw payload
	Size     int64  // raw payload size in bytes
	Data     []byte // compressed payload
}

// RepositoryVersionLanguage is the unit of training: one language of one version.
type RepositoryVersionLanguage struct {
	ID           uuid.UUID // UUIDv7
	VersionID    uuid.UUID
	RepositoryID uuid.UUID // denormalized for previous-training lookups
	Language     string

	TrainingStartedAt *time.Time
	TrainingEndAt     *time.Time
	FailedAt          *time.Time

	// TrainedConfig is the repository configuration snapshotted when the last
	// training started.
	TrainedConfig    *TrainingConfig
	TrainedBy        *uuid.UUID
	TotalTrainingEnd int
	Artifact         *ArtifactRef

	CreatedAt time.Time
}

// State derives the lifecycle state from the training timestamps.
func (v *RepositoryVersionLanguage) State() TrainingState {
	if v.TrainingStartedAt == nil {
		return TrainingStateFresh
	}
	started := *v.TrainingStartedAt
	ended := v.TrainingEndAt != nil && !v.TrainingEndAt.Before(started)
	failed := v.FailedAt != nil && !v.FailedAt.Before(started)

	switch {
	case failed && (!ended || v.FailedAt.After(*v.TrainingEndAt)):
		return TrainingStateFailed
	case ended:
		return TrainingStateTrained
	default:
		return TrainingStateTraining
	}
}

// HasBeenTrained reports whether any training cycle ever completed.
func (v *RepositoryVersionLanguage) HasBeenTrained() bool {
	return v.TrainingEndAt != nil
}
