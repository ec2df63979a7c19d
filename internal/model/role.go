package model

import (
	"fmt"
	"strings"
)

// Role identifies a user's job function. It is assigned when the account is
// created and never changes during a session.
type Role string

const (
	// RoleAdmin is the elevated role. It passes every capability check and
	// never needs a stored PermissionSet.
	RoleAdmin Role = "admin"

	// RoleManager configures settings and permissions for the other roles.
	RoleManager Role = "manager"

	// RoleUser is the plain staff role issuing and receiving tools.
	RoleUser Role = "user"
)

// AllRoles lists every role known to the system.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleUser}

// ConfigurableRoles lists the roles whose PermissionSet is stored and editable.
var ConfigurableRoles = []Role{RoleManager, RoleUser}

// ParseRole converts a raw role string into a Role.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if r.Valid() {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// IsElevated reports whether r bypasses permission lookups entirely.
func (r Role) IsElevated() bool {
	return r == RoleAdmin
}

func (r Role) String() string { return string(r) }
