package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/nluhub/nluhub/internal/api"
	"github.com/nluhub/nluhub/internal/client"
)

// ReadinessCmd shows whether a version language can be trained.
type ReadinessCmd struct {
	ClientFlags
	VersionLanguage string `arg:"" name:"version-language" help:"Version language ID"`
	Watch           bool   `help:"Watch for changes (refresh every 5 seconds)" default:"false"`
}

func (r *ReadinessCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := r.newClient(globals)
	if err != nil {
		return err
	}

	if r.Watch {
		return r.watch(ctx, c)
	}
	return r.show(ctx, c)
}

func (r *ReadinessCmd) show(ctx context.Context, c *client.Client) error {
	res, err := c.GetVersionReadiness(ctx, &api.GetVersionReadinessRequest{VersionLanguageID: r.VersionLanguage})
	if err != nil {
		return fmt.Errorf("failed to get readiness: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Ready:\t%t\n", res.Ready)
	fmt.Fprintf(w, "State:\t%s\n", res.State)
	if res.Reason != "" {
		fmt.Fprintf(w, "Reason:\t%s\n", res.Reason)
	}
	for _, b := range res.Blocking {
		fmt.Fprintf(w, "Blocking:\t%s\n", b)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "Warning:\t%s\n", warn)
	}
	return w.Flush()
}

func (r *ReadinessCmd) watch(ctx context.Context, c *client.Client) error {
	fmt.Println("Watching readiness (press Ctrl+C to stop)...")
	fmt.Println()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	if err := r.show(ctx, c); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fmt.Print("\033[2J\033[H")
			if err := r.show(ctx, c); err != nil {
				return err
			}
			fmt.Printf("\nLast updated: %s\n", time.Now().Format("15:04:05"))
		}
	}
}

// TrainCmd requests training of a version language.
type TrainCmd struct {
	ClientFlags
	VersionLanguage string `arg:"" name:"version-language" help:"Version language ID"`
}

func (t *TrainCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := t.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.StartTraining(ctx, &api.StartTrainingRequest{VersionLanguageID: t.VersionLanguage})
	if err != nil {
		return fmt.Errorf("failed to start training: %w", err)
	}

	printVersionLanguage(res.VersionLanguage)
	if res.TrainerStatus != "" {
		fmt.Printf("  Trainer:   %s\n", res.TrainerStatus)
	}
	return nil
}

// CompleteCmd uploads a trained model artifact.
type CompleteCmd struct {
	ClientFlags
	VersionLanguage string `arg:"" name:"version-language" help:"Version language ID"`
	Payload         string `arg:"" type:"existingfile" help:"Model artifact file"`
}

func (cc *CompleteCmd) Run(ctx context.Context, globals *Globals) error {
	payload, err := os.ReadFile(cc.Payload)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	c, err := cc.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.CompleteTraining(ctx, &api.CompleteTrainingRequest{
		VersionLanguageID: cc.VersionLanguage,
		Payload:           payload,
	})
	if err != nil {
		return fmt.Errorf("failed to complete training: %w", err)
	}

	printVersionLanguage(res.VersionLanguage)
	return nil
}

// FailCmd records a failed training run.
type FailCmd struct {
	ClientFlags
	VersionLanguage string `arg:"" name:"version-language" help:"Version language ID"`
}

func (f *FailCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := f.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.FailTraining(ctx, &api.FailTrainingRequest{VersionLanguageID: f.VersionLanguage})
	if err != nil {
		return fmt.Errorf("failed to record training failure: %w", err)
	}

	printVersionLanguage(res.VersionLanguage)
	return nil
}

// ModelCmd downloads the trained model artifact.
type ModelCmd struct {
	ClientFlags
	VersionLanguage string `arg:"" name:"version-language" help:"Version language ID"`
	Output          string `short:"o" help:"Write the artifact to this file" required:""`
}

func (m *ModelCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := m.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.GetModel(ctx, &api.GetModelRequest{VersionLanguageID: m.VersionLanguage})
	if err != nil {
		return fmt.Errorf("failed to get model: %w", err)
	}

	if err := os.WriteFile(m.Output, res.Payload, 0o600); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}

	fmt.Printf("Wrote %d bytes to %s (checksum %s)\n", len(res.Payload), m.Output, res.Checksum)
	return nil
}

// AnalyzeCmd classifies a sentence with the trained model.
type AnalyzeCmd struct {
	ClientFlags
	VersionLanguage string `arg:"" name:"version-language" help:"Version language ID"`
	Text            string `arg:"" help:"Sentence to analyze"`
}

func (a *AnalyzeCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := a.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.Analyze(ctx, &api.AnalyzeRequest{VersionLanguageID: a.VersionLanguage, Text: a.Text})
	if err != nil {
		return fmt.Errorf("failed to analyze: %w", err)
	}

	fmt.Printf("Intent: %s (%.2f)\n", res.Intent.Name, res.Intent.Confidence)
	if len(res.Entities) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tSTART\tEND\tVALUE")
	for _, e := range res.Entities {
		value := ""
		if e.Start >= 0 && e.End <= len(a.Text) && e.Start < e.End {
			value = a.Text[e.Start:e.End]
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", e.Entity, e.Start, e.End, value)
	}
	return w.Flush()
}

// EvaluateCmd scores the trained model against the version's examples.
type EvaluateCmd struct {
	ClientFlags
	VersionLanguage string `arg:"" name:"version-language" help:"Version language ID"`
}

func (e *EvaluateCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := e.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.Evaluate(ctx, &api.EvaluateRequest{VersionLanguageID: e.VersionLanguage})
	if err != nil {
		return fmt.Errorf("failed to evaluate: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Evaluation:\t%s\n", res.EvaluationID)
	fmt.Fprintf(w, "Accuracy:\t%.3f\n", res.Accuracy)
	fmt.Fprintf(w, "Precision:\t%.3f\n", res.Precision)
	fmt.Fprintf(w, "F1:\t%.3f\n", res.F1Score)
	return w.Flush()
}

func printVersionLanguage(vl api.VersionLanguage) {
	fmt.Printf("Version language: %s\n", vl.VersionLanguageID)
	fmt.Printf("  Language:  %s\n", vl.Language)
	fmt.Printf("  State:     %s\n", vl.State)
	fmt.Printf("  Trainings: %d\n", vl.TotalTrainingEnd)
	if vl.ArtifactChecksum != "" {
		fmt.Printf("  Checksum:  %s\n", vl.ArtifactChecksum)
	}
	if vl.TrainingEndAt != nil {
		fmt.Printf("  Trained:   %s\n", vl.TrainingEndAt.Format(time.RFC3339))
	}
}
