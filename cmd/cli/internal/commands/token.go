package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/auth"
)

// TokenCmd prints a bearer token for a principal.
type TokenCmd struct {
	Subject    string        `help:"Principal ID to issue the token for" required:""`
	TTL        time.Duration `help:"Token lifetime" default:"1h"`
	SigningKey string        `help:"Path to the PEM-encoded ES256 signing key" env:"NLUHUB_SIGNING_KEY"`
	Credential string        `help:"Credential whose key signs the token when --signing-key is empty"`
	StoreFlags
}

func (t *TokenCmd) Run(ctx context.Context) error {
	principalID, err := uuid.Parse(t.Subject)
	if err != nil {
		return fmt.Errorf("invalid subject %q: %w", t.Subject, err)
	}

	signingKeyPEM, err := t.signingKey()
	if err != nil {
		return err
	}

	token, expiresAt, err := auth.IssueToken(signingKeyPEM, principalID, t.TTL)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println(token)
	return nil
}

func (t *TokenCmd) signingKey() (string, error) {
	if t.SigningKey != "" {
		data, err := os.ReadFile(t.SigningKey)
		if err != nil {
			return "", fmt.Errorf("failed to read signing key: %w", err)
		}
		return string(data), nil
	}

	store, err := t.open()
	if err != nil {
		return "", err
	}

	cred, err := store.Resolve(t.Credential, "")
	if err != nil {
		return "", fmt.Errorf("no --signing-key or credential: %w", err)
	}

	return store.SigningKeyPEM(cred.Name)
}
