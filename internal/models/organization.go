package models

import (
	"time"

	"github.com/google/uuid"
)

// OrgRole is the role a member principal holds inside an organization.
// The zero value is OrgRoleNothing.
type OrgRole int

const (
	OrgRoleNothing OrgRole = iota
	OrgRoleUser
	OrgRoleContributor
	OrgRoleAdmin
	// OrgRoleTranslate is the translate-only tier. It sorts above admin but
	// never grants write access on the organization's repositories.
	OrgRoleTranslate
)

var orgRoleNames = map[OrgRole]string{
	OrgRoleNothing:     "nothing",
	OrgRoleUser:        "user",
	OrgRoleContributor: "contributor",
	OrgRoleAdmin:       "admin",
	OrgRoleTranslate:   "translate",
}

func (r OrgRole) String() string {
	if name, ok := orgRoleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether r is one of the declared organization roles.
func (r OrgRole) Valid() bool {
	_, ok := orgRoleNames[r]
	return ok
}

// ParseOrgRole converts a role name into an OrgRole.
func ParseOrgRole(s string) (OrgRole, bool) {
	for role, name := range orgRoleNames {
		if name == s {
			return role, true
		}
	}
	return OrgRoleNothing, false
}

// RepositoryRole maps an organization role onto the repository role scale.
// Roles outside the user..admin range have no repository counterpart.
func (r OrgRole) RepositoryRole() Role {
	switch r {
	case OrgRoleUser:
		return RoleUser
	case OrgRoleContributor:
		return RoleContributor
	case OrgRoleAdmin:
		return RoleAdmin
	default:
		return RoleNotSet
	}
}

// Organization is a principal that owns repositories and grants roles to its members.
// OrgID is the organization's own PrincipalID.
type Organization struct {
	OrgID     uuid.UUID // UUIDv7, FK to principals
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrganizationAuthorization grants a member principal a role inside an organization.
type OrganizationAuthorization struct {
	OrgID       uuid.UUID
	PrincipalID uuid.UUID
	Role        OrgRole
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
