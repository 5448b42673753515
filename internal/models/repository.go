package models

import (
	"time"

	"github.com/google/uuid"
)

// Algorithm selects the NLU pipeline used by the remote trainer.
type Algorithm string

const (
	AlgorithmNeuralNetworkInternal Algorithm = "neural_network_internal"
	AlgorithmNeuralNetworkExternal Algorithm = "neural_network_external"
	AlgorithmTransformerDIET       Algorithm = "transformer_network_diet"
	AlgorithmTransformerDIETBert   Algorithm = "transformer_network_diet_bert"
)

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmNeuralNetworkInternal, AlgorithmNeuralNetworkExternal,
		AlgorithmTransformerDIET, AlgorithmTransformerDIETBert:
		return true
	}
	return false
}

// TrainingConfig is the repository-level configuration a model is trained with.
type TrainingConfig struct {
	Algorithm           Algorithm `json:"algorithm" yaml:"algorithm"`
	UseCompetingIntents bool      `json:"use_competing_intents" yaml:"use_competing_intents"`
	UseNameEntities     bool      `json:"use_name_entities" yaml:"use_name_entities"`
	UseAnalyzeChar      bool      `json:"use_analyze_char" yaml:"use_analyze_char"`
}

// DefaultTrainingConfig returns the configuration new repositories start with.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{Algorithm: AlgorithmNeuralNetworkInternal}
}

// Diff returns the names of the fields that differ between c and other.
func (c TrainingConfig) Diff(other TrainingConfig) []string {
	var changed []string
	if c.Algorithm != other.Algorithm {
		changed = append(changed, "algorithm")
	}
	if c.UseCompetingIntents != other.UseCompetingIntents {
		changed = append(changed, "use_competing_intents")
	}
	if c.UseNameEntities != other.UseNameEntities {
		changed = append(changed, "use_name_entities")
	}
	if c.UseAnalyzeChar != other.UseAnalyzeChar {
		changed = append(changed, "use_analyze_char")
	}
	return changed
}

// Repository is an NLU training repository owned by exactly one principal.
type Repository struct {
	RepositoryID uuid.UUID // UUIDv7
	OwnerID      uuid.UUID // FK to principals, user or organization
	Name         string
	Slug         string
	Language     string // base language
	IsPrivate    bool
	Config       TrainingConfig
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsOwnedBy reports whether principalID is the literal owner.
func (r *Repository) IsOwnedBy(principalID uuid.UUID) bool {
	return principalID != uuid.Nil && r.OwnerID == principalID
}
