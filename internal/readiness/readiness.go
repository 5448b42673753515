// Package readiness evaluates whether the current example set of a
// version-language is fit to train on.
package readiness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nluhub/nluhub/internal/models"
)

const (
	MinExamplesPerIntent = 2
	MinExamplesPerEntity = 2
	RecommendedIntents   = 2
)

// Policy holds the thresholds the evaluator applies. Zero fields fall back to
// the package defaults.
type Policy struct {
	MinExamplesPerIntent int `yaml:"min_examples_per_intent" json:"min_examples_per_intent"`
	MinExamplesPerEntity int `yaml:"min_examples_per_entity" json:"min_examples_per_entity"`
	RecommendedIntents   int `yaml:"recommended_intents" json:"recommended_intents"`
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinExamplesPerIntent: MinExamplesPerIntent,
		MinExamplesPerEntity: MinExamplesPerEntity,
		RecommendedIntents:   RecommendedIntents,
	}
}

// ApplyDefaults fills unset thresholds.
func (p *Policy) ApplyDefaults() {
	if p.MinExamplesPerIntent == 0 {
		p.MinExamplesPerIntent = MinExamplesPerIntent
	}
	if p.MinExamplesPerEntity == 0 {
		p.MinExamplesPerEntity = MinExamplesPerEntity
	}
	if p.RecommendedIntents == 0 {
		p.RecommendedIntents = RecommendedIntents
	}
}

// Validate checks that every threshold is positive.
func (p Policy) Validate() error {
	if p.MinExamplesPerIntent < 1 {
		return fmt.Errorf("min_examples_per_intent must be at least 1")
	}
	if p.MinExamplesPerEntity < 1 {
		return fmt.Errorf("min_examples_per_entity must be at least 1")
	}
	if p.RecommendedIntents < 1 {
		return fmt.Errorf("recommended_intents must be at least 1")
	}
	return nil
}

// Result is the outcome of an evaluation. A non-empty Blocking list means the
// example set is not ready.
type Result struct {
	Blocking []string `json:"blocking"`
	Warnings []string `json:"warnings"`
}

// Ready reports whether there are no blocking requirements.
func (r Result) Ready() bool {
	return len(r.Blocking) == 0
}

// Evaluate checks examples against policy. The caller passes only the
// examples visible in the version-language being evaluated.
//
// Blocking messages are ordered: the missing-intent message first, then
// under-populated intents by name, then under-populated entities by name.
func Evaluate(examples []*models.Example, policy Policy) Result {
	policy.ApplyDefaults()

	result := Result{
		Blocking: []string{},
		Warnings: []string{},
	}

	missingIntent := 0
	intents := make(map[string]int)
	entities := make(map[string]int)

	for _, example := range examples {
		intent := strings.TrimSpace(example.Intent)
		if intent == "" {
			missingIntent++
		} else {
			intents[intent]++
		}

		for _, entity := range example.Entities {
			entities[entity.Entity]++
		}
	}

	if missingIntent > 0 {
		result.Blocking = append(result.Blocking,
			fmt.Sprintf("%d %s without an intent; every example needs one", missingIntent, plural(missingIntent, "example", "examples")))
	}

	for _, intent := range sortedKeys(intents) {
		if count := intents[intent]; count < policy.MinExamplesPerIntent {
			result.Blocking = append(result.Blocking,
				fmt.Sprintf("intent %q has %d %s, needs at least %d", intent, count, plural(count, "example", "examples"), policy.MinExamplesPerIntent))
		}
	}

	for _, entity := range sortedKeys(entities) {
		if count := entities[entity]; count < policy.MinExamplesPerEntity {
			result.Blocking = append(result.Blocking,
				fmt.Sprintf("entity %q has %d annotated %s, needs at least %d", entity, count, plural(count, "example", "examples"), policy.MinExamplesPerEntity))
		}
	}

	if n := len(intents); n > 0 && n < policy.RecommendedIntents {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d %s defined, at least %d are recommended", n, plural(n, "intent", "intents"), policy.RecommendedIntents))
	}

	return result
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
