package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/nluhub/nluhub/internal/api"
	"github.com/nluhub/nluhub/internal/models"
)

// ConfigCmd replaces the training configuration of a repository.
type ConfigCmd struct {
	ClientFlags
	Repository       string `arg:"" help:"Repository ID"`
	Algorithm        string `help:"Training algorithm" default:"neural_network_internal" enum:"neural_network_internal,neural_network_external,transformer_network_diet,transformer_network_diet_bert"`
	CompetingIntents bool   `help:"Use competing intents"`
	NameEntities     bool   `help:"Use name entities"`
	AnalyzeChar      bool   `help:"Analyze characters"`
}

func (c *ConfigCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.newClient(globals)
	if err != nil {
		return err
	}

	res, err := cl.UpdateConfig(ctx, &api.UpdateConfigRequest{
		RepositoryID: c.Repository,
		Config: models.TrainingConfig{
			Algorithm:           models.Algorithm(c.Algorithm),
			UseCompetingIntents: c.CompetingIntents,
			UseNameEntities:     c.NameEntities,
			UseAnalyzeChar:      c.AnalyzeChar,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}

	if len(res.Changed) == 0 {
		fmt.Println("Configuration unchanged.")
		return nil
	}
	fmt.Printf("Changed: %s\n", strings.Join(res.Changed, ", "))
	return nil
}

// VersionCmd manages repository versions.
type VersionCmd struct {
	Create   VersionCreateCmd   `cmd:"" help:"Create a version"`
	Default  VersionDefaultCmd  `cmd:"" help:"Make a version the repository default"`
	Language VersionLanguageCmd `cmd:"" help:"Ensure a version has a language"`
}

type VersionCreateCmd struct {
	ClientFlags
	Repository string `arg:"" help:"Repository ID"`
	Name       string `arg:"" help:"Version name"`
	Default    bool   `help:"Make the new version the default"`
}

func (v *VersionCreateCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := v.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.CreateVersion(ctx, &api.CreateVersionRequest{
		RepositoryID: v.Repository,
		Name:         v.Name,
		IsDefault:    v.Default,
	})
	if err != nil {
		return fmt.Errorf("failed to create version: %w", err)
	}

	fmt.Printf("Version: %s (default: %t)\n", res.VersionID, res.IsDefault)
	return nil
}

type VersionDefaultCmd struct {
	ClientFlags
	Repository string `arg:"" help:"Repository ID"`
	Version    string `arg:"" help:"Version ID"`
}

func (v *VersionDefaultCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := v.newClient(globals)
	if err != nil {
		return err
	}

	_, err = c.SetDefaultVersion(ctx, &api.SetDefaultVersionRequest{
		RepositoryID: v.Repository,
		VersionID:    v.Version,
	})
	if err != nil {
		return fmt.Errorf("failed to set default version: %w", err)
	}

	fmt.Printf("Default version: %s\n", v.Version)
	return nil
}

type VersionLanguageCmd struct {
	ClientFlags
	Version  string `arg:"" help:"Version ID"`
	Language string `arg:"" help:"Language code"`
}

func (v *VersionLanguageCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := v.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.EnsureVersionLanguage(ctx, &api.EnsureVersionLanguageRequest{
		VersionID: v.Version,
		Language:  v.Language,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure language: %w", err)
	}

	printVersionLanguage(res.VersionLanguage)
	return nil
}

// ExampleCmd manages training examples.
type ExampleCmd struct {
	Add    ExampleAddCmd    `cmd:"" help:"Add a training example"`
	Delete ExampleDeleteCmd `cmd:"" help:"Delete a training example"`
}

type ExampleAddCmd struct {
	ClientFlags
	VersionLanguage string   `arg:"" name:"version-language" help:"Version language ID"`
	Text            string   `arg:"" help:"Example text"`
	Intent          string   `help:"Intent label" required:""`
	Entity          []string `help:"Entity span as start:end:name (repeatable)"`
}

func (e *ExampleAddCmd) Run(ctx context.Context, globals *Globals) error {
	entities, err := parseEntities(e.Entity)
	if err != nil {
		return err
	}

	c, err := e.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.AddExample(ctx, &api.AddExampleRequest{
		VersionLanguageID: e.VersionLanguage,
		Text:              e.Text,
		Intent:            e.Intent,
		Entities:          entities,
	})
	if err != nil {
		return fmt.Errorf("failed to add example: %w", err)
	}

	fmt.Printf("Example: %s\n", res.ExampleID)
	return nil
}

// parseEntities reads start:end:name triples.
func parseEntities(specs []string) ([]api.Entity, error) {
	entities := make([]api.Entity, 0, len(specs))
	for _, s := range specs {
		parts := strings.SplitN(s, ":", 3)
		if len(parts) != 3 || parts[2] == "" {
			return nil, fmt.Errorf("invalid entity %q: expected start:end:name", s)
		}
		var start, end int
		if _, err := fmt.Sscanf(parts[0]+" "+parts[1], "%d %d", &start, &end); err != nil {
			return nil, fmt.Errorf("invalid entity %q: %w", s, err)
		}
		entities = append(entities, api.Entity{Start: start, End: end, Entity: parts[2]})
	}
	return entities, nil
}

type ExampleDeleteCmd struct {
	ClientFlags
	VersionLanguage string `arg:"" name:"version-language" help:"Version language ID"`
	Example         string `arg:"" help:"Example ID"`
}

func (e *ExampleDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := e.newClient(globals)
	if err != nil {
		return err
	}

	_, err = c.DeleteExample(ctx, &api.DeleteExampleRequest{
		ExampleID:         e.Example,
		VersionLanguageID: e.VersionLanguage,
	})
	if err != nil {
		return fmt.Errorf("failed to delete example: %w", err)
	}

	fmt.Printf("Deleted %s\n", e.Example)
	return nil
}

// TranslateCmd adds a translation of an example into another version language.
type TranslateCmd struct {
	ClientFlags
	VersionLanguage string `arg:"" name:"version-language" help:"Target version language ID"`
	Example         string `arg:"" help:"Source example ID"`
	Text            string `arg:"" help:"Translated text"`
}

func (t *TranslateCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := t.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.AddTranslation(ctx, &api.AddTranslationRequest{
		ExampleID:         t.Example,
		VersionLanguageID: t.VersionLanguage,
		Text:              t.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to add translation: %w", err)
	}

	fmt.Printf("Translation: %s\n", res.TranslationID)
	return nil
}
