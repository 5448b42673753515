// Package credentials keeps the CLI's token signing keys and the principal
// and server each key is bound to.
//
// The layout under the base directory is:
//
//	credentials.yaml   bindings and the default credential
//	keys/<name>.pem    EC P-256 private key, mode 0600
package credentials

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var (
	ErrCredentialNotFound  = errors.New("credential not found")
	ErrCredentialExists    = errors.New("credential already exists")
	ErrCredentialNotBound  = errors.New("credential not bound to a principal")
	ErrNoDefaultCredential = errors.New("no default credential set")
	ErrAmbiguousServer     = errors.New("several credentials are bound to the server")
	ErrInvalidName         = errors.New("invalid credential name")
	ErrInvalidServer       = errors.New("invalid server URL")
	ErrInvalidPrivateKey   = errors.New("invalid private key")
)

const (
	indexFile = "credentials.yaml"
	keysDir   = "keys"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,62}$`)

// Credential describes one signing key. Principal and Server are empty until
// the credential is bound.
type Credential struct {
	Name        string    `yaml:"name"`
	Fingerprint string    `yaml:"fingerprint"`
	Principal   string    `yaml:"principal,omitempty"`
	Server      string    `yaml:"server,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
	BoundAt     time.Time `yaml:"bound_at,omitempty"`
}

// IsBound reports whether the credential names the principal it signs for.
func (c *Credential) IsBound() bool {
	return c.Principal != ""
}

// PrincipalID parses the bound principal.
func (c *Credential) PrincipalID() (uuid.UUID, error) {
	if !c.IsBound() {
		return uuid.Nil, ErrCredentialNotBound
	}
	return uuid.Parse(c.Principal)
}

type index struct {
	Default     string        `yaml:"default,omitempty"`
	Credentials []*Credential `yaml:"credentials"`
}

func (ix *index) find(name string) (*Credential, int) {
	for i, cred := range ix.Credentials {
		if cred.Name == name {
			return cred, i
		}
	}
	return nil, -1
}

// Store reads and writes credentials under one base directory. It is not
// safe for concurrent use by several processes.
type Store struct {
	baseDir string
	now     func() time.Time
}

// Open returns the store rooted at baseDir, creating it if needed. An empty
// baseDir means ~/.nluhub.
func Open(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".nluhub")
	}

	if err := os.MkdirAll(filepath.Join(baseDir, keysDir), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	return &Store{baseDir: baseDir, now: time.Now}, nil
}

// Create generates a P-256 signing key named name. The first credential
// becomes the default.
func (s *Store) Create(name string) (*Credential, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	ix, err := s.load()
	if err != nil {
		return nil, err
	}
	if cred, _ := ix.find(name); cred != nil {
		return nil, ErrCredentialExists
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	fingerprint, err := fingerprintOf(&key.PublicKey)
	if err != nil {
		return nil, err
	}

	keyPath := s.keyPath(name)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write private key: %w", err)
	}

	cred := &Credential{Name: name, Fingerprint: fingerprint, CreatedAt: s.now().UTC()}
	ix.Credentials = append(ix.Credentials, cred)
	slices.SortFunc(ix.Credentials, func(a, b *Credential) int { return strings.Compare(a.Name, b.Name) })
	if ix.Default == "" {
		ix.Default = name
	}

	if err := s.save(ix); err != nil {
		_ = os.Remove(keyPath)
		return nil, err
	}

	log.Debug().Str("name", name).Str("fingerprint", fingerprint).Msg("Credential created")
	return cred, nil
}

// Get returns the credential called name.
func (s *Store) Get(name string) (*Credential, error) {
	ix, err := s.load()
	if err != nil {
		return nil, err
	}
	cred, _ := ix.find(name)
	if cred == nil {
		return nil, ErrCredentialNotFound
	}
	return cred, nil
}

// List returns every credential ordered by name, and the default's name.
func (s *Store) List() ([]*Credential, string, error) {
	ix, err := s.load()
	if err != nil {
		return nil, "", err
	}
	return ix.Credentials, ix.Default, nil
}

// Bind records the principal name signs tokens for and the server it is used
// with. An empty server keeps the current one.
func (s *Store) Bind(name string, principalID uuid.UUID, server string) (*Credential, error) {
	if principalID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty principal", ErrCredentialNotBound)
	}

	ix, err := s.load()
	if err != nil {
		return nil, err
	}
	cred, _ := ix.find(name)
	if cred == nil {
		return nil, ErrCredentialNotFound
	}

	if server != "" {
		normalized, err := NormalizeServer(server)
		if err != nil {
			return nil, err
		}
		cred.Server = normalized
	}
	cred.Principal = principalID.String()
	cred.BoundAt = s.now().UTC()

	if err := s.save(ix); err != nil {
		return nil, err
	}

	log.Debug().Str("name", name).Str("principal_id", cred.Principal).Str("server", cred.Server).Msg("Credential bound")
	return cred, nil
}

// SetDefault makes name the credential used when none is selected.
func (s *Store) SetDefault(name string) error {
	ix, err := s.load()
	if err != nil {
		return err
	}
	if cred, _ := ix.find(name); cred == nil {
		return ErrCredentialNotFound
	}
	ix.Default = name
	return s.save(ix)
}

// Delete removes the credential and its key. Deleting the default leaves no
// default.
func (s *Store) Delete(name string) error {
	ix, err := s.load()
	if err != nil {
		return err
	}
	_, i := ix.find(name)
	if i < 0 {
		return ErrCredentialNotFound
	}

	ix.Credentials = slices.Delete(ix.Credentials, i, i+1)
	if ix.Default == name {
		ix.Default = ""
	}
	if err := s.save(ix); err != nil {
		return err
	}

	if err := os.Remove(s.keyPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove private key: %w", err)
	}
	return nil
}

// Resolve picks the credential for a request. An explicit name wins. Otherwise
// the one credential bound to server is used, falling back to the default.
func (s *Store) Resolve(name, server string) (*Credential, error) {
	if name != "" {
		return s.Get(name)
	}

	ix, err := s.load()
	if err != nil {
		return nil, err
	}

	if server != "" {
		normalized, err := NormalizeServer(server)
		if err != nil {
			return nil, err
		}

		var matches []*Credential
		for _, cred := range ix.Credentials {
			if cred.Server == normalized {
				matches = append(matches, cred)
			}
		}
		switch len(matches) {
		case 0:
		case 1:
			return matches[0], nil
		default:
			for _, cred := range matches {
				if cred.Name == ix.Default {
					return cred, nil
				}
			}
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousServer, normalized)
		}
	}

	if ix.Default == "" {
		return nil, ErrNoDefaultCredential
	}
	cred, _ := ix.find(ix.Default)
	if cred == nil {
		return nil, ErrNoDefaultCredential
	}
	return cred, nil
}

// SigningKeyPEM returns the PEM-encoded private key of name.
func (s *Store) SigningKeyPEM(name string) (string, error) {
	if _, err := s.Get(name); err != nil {
		return "", err
	}

	data, err := os.ReadFile(s.keyPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: key file for %q is missing", ErrCredentialNotFound, name)
		}
		return "", fmt.Errorf("failed to read private key: %w", err)
	}
	if _, err := parsePrivateKey(data); err != nil {
		return "", err
	}
	return string(data), nil
}

// PublicKeyPEM returns the PKIX public key of name, the form the server's
// --jwt-public-key expects.
func (s *Store) PublicKeyPEM(name string) (string, error) {
	keyPEM, err := s.SigningKeyPEM(name)
	if err != nil {
		return "", err
	}
	key, err := parsePrivateKey([]byte(keyPEM))
	if err != nil {
		return "", err
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// NormalizeServer lowercases scheme and host and drops a trailing slash so
// equal servers compare equal.
func NormalizeServer(server string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(server))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", ErrInvalidServer, server)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery, u.Fragment = "", ""
	return u.String(), nil
}

func (s *Store) keyPath(name string) string {
	return filepath.Join(s.baseDir, keysDir, name+".pem")
}

func (s *Store) load() (*index, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return &index{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", indexFile, err)
	}

	var ix index
	if err := yaml.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", indexFile, err)
	}
	return &ix, nil
}

// save replaces the index through a rename so readers never see a partial
// file.
func (s *Store) save(ix *index) error {
	data, err := yaml.Marshal(ix)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", indexFile, err)
	}

	tmp, err := os.CreateTemp(s.baseDir, indexFile+".*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", indexFile, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", indexFile, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", indexFile, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.baseDir, indexFile)); err != nil {
		return fmt.Errorf("failed to save %s: %w", indexFile, err)
	}
	return nil
}

func parsePrivateKey(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPrivateKey
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return key, nil
}

// fingerprintOf is the base58 SHA-256 of the PKIX public key.
func fingerprintOf(pub *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return base58.Encode(sum[:]), nil
}
