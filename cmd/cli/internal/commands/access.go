package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/nluhub/nluhub/internal/api"
)

// ResolveCmd prints the effective authorization of a principal on a repository.
type ResolveCmd struct {
	ClientFlags
	Repository string `arg:"" help:"Repository ID"`
	Principal  string `help:"Principal to resolve (defaults to the caller)"`
}

func (r *ResolveCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := r.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.ResolveAuthorization(ctx, &api.ResolveAuthorizationRequest{
		RepositoryID: r.Repository,
		PrincipalID:  r.Principal,
	})
	if err != nil {
		return fmt.Errorf("failed to resolve authorization: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Principal:\t%s\n", res.PrincipalID)
	fmt.Fprintf(w, "Role:\t%s\n", res.Role)
	fmt.Fprintf(w, "Level:\t%s\n", res.Level)
	fmt.Fprintf(w, "Owner:\t%t\n", res.IsOwner)
	fmt.Fprintf(w, "Read:\t%t\n", res.CanRead)
	fmt.Fprintf(w, "Contribute:\t%t\n", res.CanContribute)
	fmt.Fprintf(w, "Write:\t%t\n", res.CanWrite)
	fmt.Fprintf(w, "Admin:\t%t\n", res.IsAdmin)
	return w.Flush()
}

// RoleCmd sets a principal's role on a repository.
type RoleCmd struct {
	ClientFlags
	Repository string `arg:"" help:"Repository ID"`
	Principal  string `arg:"" help:"Principal ID"`
	Role       string `arg:"" help:"Role (not_set, user, contributor, admin)"`
}

func (r *RoleCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := r.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.SetRole(ctx, &api.SetRoleRequest{
		RepositoryID: r.Repository,
		PrincipalID:  r.Principal,
		Role:         r.Role,
	})
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}

	fmt.Printf("Authorization %s: %s\n", res.AuthorizationID, res.Role)
	return nil
}

// RequestCmd asks for access to a repository.
type RequestCmd struct {
	ClientFlags
	Repository string `arg:"" help:"Repository ID"`
	Text       string `arg:"" help:"Message to the repository admins"`
}

func (r *RequestCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := r.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.CreateAccessRequest(ctx, &api.CreateAccessRequestRequest{
		RepositoryID: r.Repository,
		Text:         r.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to create access request: %w", err)
	}

	fmt.Printf("Request: %s\n", res.Request.RequestID)
	return nil
}

// ApproveCmd approves a pending access request.
type ApproveCmd struct {
	ClientFlags
	Request string `arg:"" help:"Request ID"`
}

func (a *ApproveCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := a.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.ApproveRequest(ctx, &api.ApproveRequestRequest{RequestID: a.Request})
	if err != nil {
		return fmt.Errorf("failed to approve request: %w", err)
	}

	fmt.Printf("Approved %s for %s\n", res.Request.RequestID, res.Request.PrincipalID)
	return nil
}

// RejectCmd rejects and removes a pending access request.
type RejectCmd struct {
	ClientFlags
	Request string `arg:"" help:"Request ID"`
}

func (r *RejectCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := r.newClient(globals)
	if err != nil {
		return err
	}

	if _, err := c.RejectRequest(ctx, &api.RejectRequestRequest{RequestID: r.Request}); err != nil {
		return fmt.Errorf("failed to reject request: %w", err)
	}

	fmt.Printf("Rejected %s\n", r.Request)
	return nil
}

// RequestsCmd lists the access requests of a repository.
type RequestsCmd struct {
	ClientFlags
	Repository string `arg:"" help:"Repository ID"`
}

func (r *RequestsCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := r.newClient(globals)
	if err != nil {
		return err
	}

	res, err := c.ListAccessRequests(ctx, &api.ListAccessRequestsRequest{RepositoryID: r.Repository})
	if err != nil {
		return fmt.Errorf("failed to list access requests: %w", err)
	}

	if len(res.Requests) == 0 {
		fmt.Println("No access requests.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REQUEST\tPRINCIPAL\tSTATUS\tCREATED\tTEXT")
	for _, req := range res.Requests {
		status := "pending"
		if req.ApprovedBy != "" {
			status = "approved"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", req.RequestID, req.PrincipalID, status, req.CreatedAt.Format(time.RFC3339), req.Text)
	}
	return w.Flush()
}
