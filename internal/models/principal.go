package models

import (
	"time"

	"github.com/google/uuid"
)

// Principal represents an identity that can hold authorization: a human user
// or an organization acting as a pseudo-user (the "bot" owner of repositories).
type Principal struct {
	PrincipalID    uuid.UUID // UUIDv7
	Name           string    // Display name
	Email          *string   // Contact address used for notifications
	IsOrganization bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
