package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the stored, coarse-grained grant a principal holds on a repository.
// The zero value is RoleNotSet.
type Role int

const (
	RoleNotSet Role = iota
	RoleUser
	RoleContributor
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleNotSet:      "not_set",
	RoleUser:        "user",
	RoleContributor: "contributor",
	RoleAdmin:       "admin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether r is one of the declared repository roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole converts a role name into a Role.
func ParseRole(s string) (Role, bool) {
	for role, name := range roleNames {
		if name == s {
			return role, true
		}
	}
	return RoleNotSet, false
}

// MaxRole returns the higher of two roles.
func MaxRole(a, b Role) Role {
	if a > b {
		return a
	}
	return b
}

// Level is the effective capability tier resolved from role, ownership and
// repository visibility.
type Level int

const (
	LevelNothing Level = iota
	LevelReader
	LevelContributor
	LevelAdmin
)

var levelNames = map[Level]string{
	LevelNothing:     "nothing",
	LevelReader:      "reader",
	LevelContributor: "contributor",
	LevelAdmin:       "admin",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// LevelForRole derives the effective level of a non-owner principal.
func LevelForRole(role Role, isPrivate bool) Level {
	switch role {
	case RoleUser:
		return LevelReader
	case RoleContributor:
		return LevelContributor
	case RoleAdmin:
		return LevelAdmin
	default:
		if isPrivate {
			return LevelNothing
		}
		return LevelReader
	}
}

// RepositoryAuthorization is the per (repository, principal) grant record.
// AuthorizationID doubles as the bearer credential presented to the trainer.
type RepositoryAuthorization struct {
	AuthorizationID uuid.UUID // UUIDv7
	RepositoryID    uuid.UUID
	PrincipalID     uuid.UUID
	Role            Role
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AuthorizationView is the resolved authorization of a principal on a repository.
type AuthorizationView struct {
	RepositoryID uuid.UUID
	PrincipalID  uuid.UUID // uuid.Nil for anonymous callers
	Role         Role
	Level        Level
	IsOwner      bool

	// Authorization is the backing record, nil for owners and anonymous callers.
	Authorization *RepositoryAuthorization
}

// CanRead reports whether the principal may read the repository.
func (v *AuthorizationView) CanRead() bool {
	return v.Level >= LevelReader
}

// CanContribute reports whether the principal may add or change content.
func (v *AuthorizationView) CanContribute() bool {
	return v.Level >= LevelContributor
}

// CanWrite reports whether the principal may change configuration and train.
func (v *AuthorizationView) CanWrite() bool {
	return v.Level == LevelAdmin
}

// IsAdmin reports whether the principal may manage authorizations.
func (v *AuthorizationView) IsAdmin() bool {
	return v.Level == LevelAdmin
}

// AccessRequest is a pending or approved request for repository access.
// ApprovedBy is write-once.
type AccessRequest struct {
	RequestID    uuid.UUID // UUIDv7
	RepositoryID uuid.UUID
	PrincipalID  uuid.UUID
	Text         string
	ApprovedBy   *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsApproved returns true once an approver has been recorded.
func (r *AccessRequest) IsApproved() bool {
	return r.ApprovedBy != nil
}
