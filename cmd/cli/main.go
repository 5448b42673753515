package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/nluhub/nluhub/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Init        commands.InitCmd        `cmd:"" help:"Create a local signing credential"`
		Credentials commands.CredentialsCmd `cmd:"" help:"Manage local credentials"`
		Token       commands.TokenCmd       `cmd:"" help:"Generate a JWT token"`

		Register commands.RegisterCmd `cmd:"" help:"Register the calling principal"`
		Org      commands.OrgCmd      `cmd:"" help:"Manage organizations"`
		Repo     commands.RepoCmd     `cmd:"" help:"Manage repositories"`

		Resolve  commands.ResolveCmd  `cmd:"" help:"Show effective authorization on a repository"`
		Role     commands.RoleCmd     `cmd:"" help:"Set a principal's repository role"`
		Request  commands.RequestCmd  `cmd:"" help:"Request access to a repository"`
		Approve  commands.ApproveCmd  `cmd:"" help:"Approve an access request"`
		Reject   commands.RejectCmd   `cmd:"" help:"Reject an access request"`
		Requests commands.RequestsCmd `cmd:"" help:"List access requests"`

		Config    commands.ConfigCmd    `cmd:"" help:"Update a repository's training configuration"`
		Version   commands.VersionCmd   `cmd:"" help:"Manage versions"`
		Example   commands.ExampleCmd   `cmd:"" help:"Manage training examples"`
		Translate commands.TranslateCmd `cmd:"" help:"Translate an example"`

		Readiness commands.ReadinessCmd `cmd:"" help:"Show training readiness"`
		Train     commands.TrainCmd     `cmd:"" help:"Start training"`
		Complete  commands.CompleteCmd  `cmd:"" help:"Upload a trained model"`
		Fail      commands.FailCmd      `cmd:"" help:"Record a failed training run"`
		Model     commands.ModelCmd     `cmd:"" help:"Download the trained model"`
		Analyze   commands.AnalyzeCmd   `cmd:"" help:"Analyze a sentence"`
		Evaluate  commands.EvaluateCmd  `cmd:"" help:"Evaluate the trained model"`

		Debug       bool             `help:"Enable debug mode."`
		ShowVersion kong.VersionFlag `name:"version" help:"Print version and exit."`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("nluhub"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
