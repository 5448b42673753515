// Package auth authenticates callers and carries their principal ID through
// the request context.
package auth

import (
	"context"

	"connectrpc.com/authn"
	"github.com/google/uuid"
)

// PrincipalHeader names the caller in development mode.
const PrincipalHeader = "X-Principal-ID"

// PrincipalFromContext returns the authenticated principal, or uuid.Nil for
// anonymous callers.
func PrincipalFromContext(ctx context.Context) uuid.UUID {
	if principalID, ok := authn.GetInfo(ctx).(uuid.UUID); ok {
		return principalID
	}
	return uuid.Nil
}
