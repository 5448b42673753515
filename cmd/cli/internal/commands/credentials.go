package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/nluhub/nluhub/cmd/cli/internal/credentials"
)

// CredentialsCmd manages local signing credentials.
type CredentialsCmd struct {
	List      CredentialsListCmd      `cmd:"" help:"List credentials and their bindings"`
	Bind      CredentialsBindCmd      `cmd:"" help:"Bind a credential to a principal and server"`
	Use       CredentialsUseCmd       `cmd:"" help:"Set the default credential"`
	PublicKey CredentialsPublicKeyCmd `cmd:"" name:"public-key" help:"Print the public key for the server's --jwt-public-key"`
	Delete    CredentialsDeleteCmd    `cmd:"" help:"Delete a credential and its key"`
}

// StoreFlags is embedded by every command that opens the store.
type StoreFlags struct {
	CredentialsDir string `help:"Credentials directory (default ~/.nluhub)" env:"NLUHUB_CREDENTIALS_DIR"`
}

func (d StoreFlags) open() (*credentials.Store, error) {
	store, err := credentials.Open(d.CredentialsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	return store, nil
}

type CredentialsListCmd struct {
	StoreFlags
}

func (c *CredentialsListCmd) Run(ctx context.Context) error {
	store, err := c.open()
	if err != nil {
		return err
	}

	creds, def, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list credentials: %w", err)
	}
	if len(creds) == 0 {
		fmt.Println("No credentials. Create one with: nluhub init <NAME>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tNAME\tPRINCIPAL\tSERVER\tFINGERPRINT")
	for _, cred := range creds {
		marker := ""
		if cred.Name == def {
			marker = "*"
		}
		principal := cred.Principal
		if principal == "" {
			principal = "(unbound)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", marker, cred.Name, principal, cred.Server, shortFingerprint(cred.Fingerprint))
	}
	return w.Flush()
}

// CredentialsBindCmd binds a credential to the principal its tokens name.
type CredentialsBindCmd struct {
	StoreFlags
	Name        string `arg:"" help:"Credential name"`
	PrincipalID string `help:"Principal ID to sign tokens for" required:""`
	Server      string `help:"Server URL the credential is used with"`
}

func (c *CredentialsBindCmd) Run(ctx context.Context) error {
	principalID, err := uuid.Parse(c.PrincipalID)
	if err != nil {
		return fmt.Errorf("invalid principal ID %q: %w", c.PrincipalID, err)
	}

	store, err := c.open()
	if err != nil {
		return err
	}

	cred, err := store.Bind(c.Name, principalID, c.Server)
	if err != nil {
		return fmt.Errorf("failed to bind credential %q: %w", c.Name, err)
	}

	fmt.Printf("Credential %q signs for principal %s", cred.Name, cred.Principal)
	if cred.Server != "" {
		fmt.Printf(" on %s", cred.Server)
	}
	fmt.Println()
	return nil
}

// CredentialsUseCmd sets the default credential.
type CredentialsUseCmd struct {
	StoreFlags
	Name string `arg:"" help:"Credential name"`
}

func (c *CredentialsUseCmd) Run(ctx context.Context) error {
	store, err := c.open()
	if err != nil {
		return err
	}

	if err := store.SetDefault(c.Name); err != nil {
		return fmt.Errorf("failed to set default credential %q: %w", c.Name, err)
	}

	fmt.Printf("Default credential set to %q.\n", c.Name)
	return nil
}

// CredentialsPublicKeyCmd prints the PKIX public key of a credential.
type CredentialsPublicKeyCmd struct {
	StoreFlags
	Name string `arg:"" help:"Credential name"`
}

func (c *CredentialsPublicKeyCmd) Run(ctx context.Context) error {
	store, err := c.open()
	if err != nil {
		return err
	}

	publicKeyPEM, err := store.PublicKeyPEM(c.Name)
	if err != nil {
		return fmt.Errorf("failed to load public key of %q: %w", c.Name, err)
	}

	fmt.Print(publicKeyPEM)
	return nil
}

// CredentialsDeleteCmd removes a credential and its private key.
type CredentialsDeleteCmd struct {
	StoreFlags
	Name string `arg:"" help:"Credential name"`
}

func (c *CredentialsDeleteCmd) Run(ctx context.Context) error {
	store, err := c.open()
	if err != nil {
		return err
	}

	if err := store.Delete(c.Name); err != nil {
		return fmt.Errorf("failed to delete credential %q: %w", c.Name, err)
	}

	// tokens signed earlier stay valid until they expire
	fmt.Printf("Credential %q deleted.\n", c.Name)
	return nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12] + "..."
	}
	return fp
}
