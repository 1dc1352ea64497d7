package domain

import "fmt"

// Role is the closed set of access levels. It is the single canonical
// definition shared by the store schema, token claims, and authorization
// checks.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleAuditor  Role = "auditor"
	RoleViewer   Role = "viewer"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleOperator, RoleAuditor, RoleViewer}

// ParseRole validates s as a role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("domain: unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleAuditor, RoleViewer:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
