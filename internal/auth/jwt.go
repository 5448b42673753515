package auth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"net/http"

	"connectrpc.com/authn"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type jwtVerifier struct {
	publicKey *ecdsa.PublicKey
	parser    *jwt.Parser
}

func newJWTVerifierFromPEM(publicKeyPEM string) (*jwtVerifier, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not provided")
	}

	publicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, err
	}

	return &jwtVerifier{
		publicKey: publicKey,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuer(Issuer),
		),
	}, nil
}

// verify parses tokenStr and returns the principal named by its subject.
func (v *jwtVerifier) verify(tokenStr string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := v.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return v.publicKey, nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	principalID, err := uuid.Parse(claims.Subject)
	if err != nil || principalID == uuid.Nil {
		return uuid.Nil, errors.New("subject is not a principal ID")
	}

	return principalID, nil
}

// NewJWTAuthFunc returns an authn.AuthFunc that validates Bearer JWTs.
//
// Requests without a bearer token are let through as the anonymous principal;
// a token that is present but invalid is rejected. On success the principal ID
// is available through PrincipalFromContext.
func NewJWTAuthFunc(publicKeyPEM string) (authn.AuthFunc, error) {
	v, err := newJWTVerifierFromPEM(publicKeyPEM)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, req *http.Request) (any, error) {
		if req.URL.Path == "/health" {
			return nil, nil
		}

		tokenStr, ok := authn.BearerToken(req)
		if !ok {
			return nil, nil
		}

		principalID, err := v.verify(tokenStr)
		if err != nil {
			log.Debug().Err(err).Msg("JWT verification failed")
			return nil, authn.Errorf("invalid token")
		}

		return principalID, nil
	}, nil
}

// NoAuthFunc treats every request as anonymous unless it carries an
// X-Principal-ID header. It is meant for local development only.
func NoAuthFunc(ctx context.Context, req *http.Request) (any, error) {
	if raw := req.Header.Get(PrincipalHeader); raw != "" {
		principalID, err := uuid.Parse(raw)
		if err != nil {
			return nil, authn.Errorf("invalid %s header", PrincipalHeader)
		}
		return principalID, nil
	}
	return nil, nil
}
