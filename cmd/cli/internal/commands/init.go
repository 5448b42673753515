package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nluhub/nluhub/cmd/cli/internal/credentials"
)

// InitCmd creates a signing credential and prints its public key.
type InitCmd struct {
	StoreFlags
	Name        string `arg:"" help:"Credential name (e.g. staging)"`
	PrincipalID string `help:"Bind the credential to this principal right away"`
	Server      string `help:"Server URL to bind with --principal-id"`
	Use         bool   `help:"Make it the default credential"`
}

func (c *InitCmd) Run(ctx context.Context) error {
	if c.PrincipalID != "" {
		if _, err := uuid.Parse(c.PrincipalID); err != nil {
			return fmt.Errorf("invalid principal ID %q: %w", c.PrincipalID, err)
		}
	}

	store, err := c.open()
	if err != nil {
		return err
	}

	cred, err := store.Create(c.Name)
	if errors.Is(err, credentials.ErrCredentialExists) {
		return fmt.Errorf("credential %q already exists, remove it with 'nluhub credentials delete %s'", c.Name, c.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}

	if c.PrincipalID != "" {
		bind := CredentialsBindCmd{StoreFlags: c.StoreFlags, Name: c.Name, PrincipalID: c.PrincipalID, Server: c.Server}
		if err := bind.Run(ctx); err != nil {
			return err
		}
	}

	if c.Use {
		if err := store.SetDefault(c.Name); err != nil {
			return fmt.Errorf("failed to set default credential: %w", err)
		}
	}

	publicKeyPEM, err := store.PublicKeyPEM(c.Name)
	if err != nil {
		return fmt.Errorf("failed to load public key: %w", err)
	}

	fmt.Printf("Created credential %s (%s)\n\n", cred.Name, cred.Fingerprint)
	fmt.Println("Start the server with this public key as --jwt-public-key:")
	fmt.Println()
	fmt.Print(publicKeyPEM)
	if c.PrincipalID == "" {
		fmt.Println()
		fmt.Printf("Then bind it: nluhub credentials bind %s --principal-id <PRINCIPAL_ID> --server <URL>\n", c.Name)
	}

	return nil
}
