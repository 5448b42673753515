package commands

import (
	"context"
	"fmt"

	"github.com/nluhub/nluhub/internal/api"
)

// RegisterCmd registers the calling principal with the server.
type RegisterCmd struct {
	ClientFlags
	Name  string `arg:"" help:"Display name"`
	Email string `help:"Contact email"`
}

func (r *RegisterCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := r.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.RegisterPrincipal(ctx, &api.RegisterPrincipalRequest{Name: r.Name, Email: r.Email})
	if err != nil {
		return fmt.Errorf("failed to register principal: %w", err)
	}

	fmt.Printf("Principal: %s (%s)\n", res.Principal.Name, res.Principal.PrincipalID)
	return nil
}

// OrgCmd manages organizations.
type OrgCmd struct {
	Create OrgCreateCmd `cmd:"" help:"Create an organization administered by the caller"`
	Role   OrgRoleCmd   `cmd:"" help:"Set a member's organization role"`
}

type OrgCreateCmd struct {
	ClientFlags
	Name string `arg:"" help:"Organization name"`
}

func (o *OrgCreateCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := o.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.CreateOrganization(ctx, &api.CreateOrganizationRequest{Name: o.Name})
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	fmt.Printf("Organization: %s\n", res.OrganizationID)
	return nil
}

type OrgRoleCmd struct {
	ClientFlags
	Organization string `arg:"" help:"Organization ID"`
	Principal    string `arg:"" help:"Member principal ID"`
	Role         string `arg:"" help:"Organization role (nothing, user, contributor, admin, translate)"`
}

func (o *OrgRoleCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := o.newClient(globals)
	if err != nil {
		return err
	}

	_, err = c.SetOrganizationRole(ctx, &api.SetOrganizationRoleRequest{
		OrganizationID: o.Organization,
		PrincipalID:    o.Principal,
		Role:           o.Role,
	})
	if err != nil {
		return fmt.Errorf("failed to set organization role: %w", err)
	}

	fmt.Printf("%s is now %s of %s\n", o.Principal, o.Role, o.Organization)
	return nil
}

// RepoCmd manages repositories.
type RepoCmd struct {
	Create RepoCreateCmd `cmd:"" help:"Create a repository with a default version"`
}

type RepoCreateCmd struct {
	ClientFlags
	Name     string `arg:"" help:"Repository name"`
	Slug     string `help:"URL slug (lowercase)" required:""`
	Language string `help:"Base language code" required:""`
	Owner    string `help:"Organization ID to own the repository"`
	Private  bool   `help:"Create a private repository"`
}

func (r *RepoCreateCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := r.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.CreateRepository(ctx, &api.CreateRepositoryRequest{
		OwnerID:   r.Owner,
		Name:      r.Name,
		Slug:      r.Slug,
		Language:  r.Language,
		IsPrivate: r.Private,
	})
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}

	repo := res.Repository
	fmt.Printf("Repository: %s\n", repo.RepositoryID)
	fmt.Printf("  Owner:    %s\n", repo.OwnerID)
	fmt.Printf("  Slug:     %s\n", repo.Slug)
	fmt.Printf("  Language: %s\n", repo.Language)
	fmt.Printf("  Private:  %t\n", repo.IsPrivate)
	fmt.Printf("  Version:  %s\n", repo.VersionID)
	return nil
}
