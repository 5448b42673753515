package commands

import (
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	"github.com/google/uuid"
	"github.com/nluhub/nluhub/cmd/cli/internal/credentials"
	"github.com/nluhub/nluhub/internal/client"
)

type Globals struct {
	Debug   bool
	Version string
}

// ClientFlags select the server and the identity requests are made as.
type ClientFlags struct {
	Server     string        `help:"Server URL, defaults to the credential's server" env:"NLUHUB_SERVER"`
	Credential string        `help:"Credential used to sign tokens (bound to --server, else the default, when empty)" env:"NLUHUB_CREDENTIAL"`
	Principal  string        `help:"Principal ID sent as X-Principal-ID instead of a token (servers started with --no-auth)" env:"NLUHUB_PRINCIPAL_ID"`
	Timeout    time.Duration `help:"Request timeout" default:"30s"`
	CacheDir   string        `help:"Cache model downloads in this directory" env:"NLUHUB_CACHE_DIR"`
	StoreFlags
}

// newClient builds a client that authenticates with the selected credential,
// or with the development principal header when --principal is set.
func (f *ClientFlags) newClient(globals *Globals) (*client.Client, error) {
	otelInterceptor, err := otelconnect.NewInterceptor()
	if err != nil {
		return nil, fmt.Errorf("failed to create interceptor: %w", err)
	}
	interceptors := []connect.Interceptor{otelInterceptor}
	server := f.Server

	if f.Principal != "" {
		principalID, err := uuid.Parse(f.Principal)
		if err != nil {
			return nil, fmt.Errorf("invalid principal ID %q: %w", f.Principal, err)
		}
		interceptors = append(interceptors, client.NewPrincipalInterceptor(principalID))
	} else {
		cred, signingKeyPEM, err := f.loadCredential()
		if err != nil {
			return nil, err
		}
		principalID, err := cred.PrincipalID()
		if err != nil {
			return nil, fmt.Errorf("credential %q has an invalid principal ID: %w", cred.Name, err)
		}
		if server == "" {
			server = cred.Server
		}
		interceptors = append(interceptors, client.NewTokenInterceptor(signingKeyPEM, principalID, client.DefaultTokenTTL))
	}

	if server == "" {
		return nil, errors.New("no server URL: pass --server or bind one to the credential")
	}

	config := client.Config{
		ServerURL:   server,
		Timeout:     f.Timeout,
		Debug:       globals.Debug,
		CacheModels: f.CacheDir != "",
		CacheDir:    f.CacheDir,
	}
	return client.New(config, connect.WithInterceptors(interceptors...)), nil
}

// loadCredential resolves --credential, then the credential bound to
// --server, then the default.
func (f *ClientFlags) loadCredential() (*credentials.Credential, string, error) {
	store, err := f.open()
	if err != nil {
		return nil, "", err
	}

	cred, err := store.Resolve(f.Credential, f.Server)
	switch {
	case errors.Is(err, credentials.ErrNoDefaultCredential):
		return nil, "", fmt.Errorf("%w\n\nSelect one with --credential, bind one to the server or set a default:\n"+
			"  nluhub credentials use <NAME>", err)
	case errors.Is(err, credentials.ErrAmbiguousServer):
		return nil, "", fmt.Errorf("%w\n\nSelect one with --credential", err)
	case err != nil:
		return nil, "", fmt.Errorf("failed to resolve credential: %w", err)
	}

	if !cred.IsBound() {
		return nil, "", fmt.Errorf("%w: run 'nluhub credentials bind %s --principal-id <PRINCIPAL_ID>'", credentials.ErrCredentialNotBound, cred.Name)
	}

	signingKeyPEM, err := store.SigningKeyPEM(cred.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load signing key: %w", err)
	}

	return cred, signingKeyPEM, nil
}
