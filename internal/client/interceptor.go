package client

import (
	"context"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/auth"
	"github.com/rs/zerolog/log"
)

// DefaultTokenTTL is the lifetime of tokens minted by TokenInterceptor.
const DefaultTokenTTL = time.Hour

// refreshWindow is how long before expiry a cached token is replaced.
const refreshWindow = 5 * time.Minute

// TokenInterceptor signs a bearer token for a principal and attaches it to
// every request. Tokens are cached until shortly before they expire.
type TokenInterceptor struct {
	signingKeyPEM string
	principalID   uuid.UUID
	ttl           time.Duration

	mu          sync.RWMutex
	cachedToken string
	tokenExpiry time.Time
}

// NewTokenInterceptor creates a TokenInterceptor. A zero ttl uses
// DefaultTokenTTL.
func NewTokenInterceptor(signingKeyPEM string, principalID uuid.UUID, ttl time.Duration) *TokenInterceptor {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenInterceptor{
		signingKeyPEM: signingKeyPEM,
		principalID:   principalID,
		ttl:           ttl,
	}
}

// WrapUnary implements connect.Interceptor.
func (i *TokenInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		token, err := i.getToken()
		if err != nil {
			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		}
		req.Header().Set("Authorization", "Bearer "+token)
		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *TokenInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler is not used for client interceptors.
func (i *TokenInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// getToken returns a cached token or signs a new one.
func (i *TokenInterceptor) getToken() (string, error) {
	i.mu.RLock()
	if i.cachedToken != "" && time.Now().Add(refreshWindow).Before(i.tokenExpiry) {
		token := i.cachedToken
		i.mu.RUnlock()
		return token, nil
	}
	i.mu.RUnlock()

	i.mu.Lock()
	defer i.mu.Unlock()

	// Double-check after acquiring write lock
	if i.cachedToken != "" && time.Now().Add(refreshWindow).Before(i.tokenExpiry) {
		return i.cachedToken, nil
	}

	token, expiry, err := auth.IssueToken(i.signingKeyPEM, i.principalID, i.ttl)
	if err != nil {
		return "", err
	}

	i.cachedToken = token
	i.tokenExpiry = expiry

	log.Debug().
		Str("principal_id", i.principalID.String()).
		Time("expiry", expiry).
		Msg("cached new JWT token")

	return token, nil
}

// NewPrincipalInterceptor names the caller with the development header
// accepted by servers running without token verification.
func NewPrincipalInterceptor(principalID uuid.UUID) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if principalID != uuid.Nil {
				req.Header().Set(auth.PrincipalHeader, principalID.String())
			}
			return next(ctx, req)
		}
	}
}

// WithPrincipal returns a copy of ctx whose requests are made as principalID
// when the client uses NewContextPrincipalInterceptor.
func WithPrincipal(ctx context.Context, principalID uuid.UUID) context.Context {
	return context.WithValue(ctx, principalKey{}, principalID)
}

type principalKey struct{}

// NewContextPrincipalInterceptor is NewPrincipalInterceptor with the
// principal taken from the request context set by WithPrincipal.
func NewContextPrincipalInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if principalID, ok := ctx.Value(principalKey{}).(uuid.UUID); ok && principalID != uuid.Nil {
				req.Header().Set(auth.PrincipalHeader, principalID.String())
			}
			return next(ctx, req)
		}
	}
}
