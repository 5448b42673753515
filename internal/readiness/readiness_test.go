package readiness

import (
	"testing"

	"github.com/nluhub/nluhub/internal/models"
	"github.com/stretchr/testify/require"
)

func example(intent string, entities ...string) *models.Example {
	e := &models.Example{Text: "text", Intent: intent}
	for _, name := range entities {
		e.Entities = append(e.Entities, models.ExampleEntity{Start: 0, End: 4, Entity: name})
	}
	return e
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		examples []*models.Example
		blocking []string
		warnings []string
	}{
		{
			name:     "no examples",
			examples: nil,
			blocking: []string{},
			warnings: []string{},
		},
		{
			name:     "intent with exactly two examples",
			examples: []*models.Example{example("greet"), example("greet"), example("bye"), example("bye")},
			blocking: []string{},
			warnings: []string{},
		},
		{
			name:     "intent with one example",
			examples: []*models.Example{example("greet"), example("bye"), example("bye")},
			blocking: []string{`intent "greet" has 1 example, needs at least 2`},
			warnings: []string{},
		},
		{
			name:     "single intent warns",
			examples: []*models.Example{example("greet"), example("greet")},
			blocking: []string{},
			warnings: []string{"1 intent defined, at least 2 are recommended"},
		},
		{
			name:     "entity annotated once",
			examples: []*models.Example{example("greet", "name"), example("greet"), example("bye"), example("bye")},
			blocking: []string{`entity "name" has 1 annotated example, needs at least 2`},
			warnings: []string{},
		},
		{
			name: "ordering is missing intent, intents, entities",
			examples: []*models.Example{
				example("zeta", "place"),
				example("alpha", "name"),
				example(""),
				example("  "),
			},
			blocking: []string{
				"2 examples without an intent; every example needs one",
				`intent "alpha" has 1 example, needs at least 2`,
				`intent "zeta" has 1 example, needs at least 2`,
				`entity "name" has 1 annotated example, needs at least 2`,
				`entity "place" has 1 annotated example, needs at least 2`,
			},
			warnings: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate(tt.examples, DefaultPolicy())
			require.Equal(t, tt.blocking, result.Blocking)
			require.Equal(t, tt.warnings, result.Warnings)
			require.Equal(t, len(tt.blocking) == 0, result.Ready())
		})
	}
}

func TestEvaluate_EntityClearedBySecondAnnotation(t *testing.T) {
	examples := []*models.Example{example("greet", "name"), example("greet"), example("bye"), example("bye")}
	require.False(t, Evaluate(examples, DefaultPolicy()).Ready())

	examples[1].Entities = []models.ExampleEntity{{Start: 0, End: 4, Entity: "name"}}
	require.True(t, Evaluate(examples, DefaultPolicy()).Ready())
}

func TestEvaluate_DeletionMonotonicity(t *testing.T) {
	t.Run("removing an excess example keeps it ready", func(t *testing.T) {
		examples := []*models.Example{example("greet"), example("greet"), example("greet"), example("bye"), example("bye")}
		require.True(t, Evaluate(examples, DefaultPolicy()).Ready())
		require.True(t, Evaluate(examples[1:], DefaultPolicy()).Ready())
	})

	t.Run("dropping an intent below the minimum blocks", func(t *testing.T) {
		examples := []*models.Example{example("greet"), example("greet"), example("bye"), example("bye")}
		require.True(t, Evaluate(examples, DefaultPolicy()).Ready())

		result := Evaluate(examples[1:], DefaultPolicy())
		require.False(t, result.Ready())
		require.Equal(t, []string{`intent "greet" has 1 example, needs at least 2`}, result.Blocking)
	})

	t.Run("removing the only under-populated example unblocks", func(t *testing.T) {
		examples := []*models.Example{example("greet"), example("bye"), example("bye")}
		require.False(t, Evaluate(examples, DefaultPolicy()).Ready())
		require.True(t, Evaluate(examples[1:], DefaultPolicy()).Ready())
	})
}

func TestEvaluate_Idempotent(t *testing.T) {
	examples := []*models.Example{example("greet", "name"), example("")}
	first := Evaluate(examples, DefaultPolicy())
	second := Evaluate(examples, DefaultPolicy())
	require.Equal(t, first, second)
}

func TestEvaluate_CustomPolicy(t *testing.T) {
	examples := []*models.Example{example("greet"), example("greet"), example("bye"), example("bye")}
	result := Evaluate(examples, Policy{MinExamplesPerIntent: 3})
	require.Len(t, result.Blocking, 2)
	require.Contains(t, result.Blocking[0], "needs at least 3")
}

func TestPolicy_Validate(t *testing.T) {
	p := Policy{}
	p.ApplyDefaults()
	require.NoError(t, p.Validate())
	require.Equal(t, DefaultPolicy(), p)

	require.Error(t, Policy{MinExamplesPerIntent: -1, MinExamplesPerEntity: 1, RecommendedIntents: 1}.Validate())
}
