package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is the iss claim of every token the service accepts.
const Issuer = "nluhub"

// IssueToken creates a signed JWT for principalID.
// signingKeyPEM is the PEM-encoded ECDSA P-256 private key.
func IssueToken(signingKeyPEM string, principalID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	signingKey, err := jwt.ParseECPrivateKeyFromPEM([]byte(signingKeyPEM))
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &jwt.RegisteredClaims{
		Subject:   principalID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Issuer:    Issuer,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(signingKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}
