package models

// Role is the caller role carried in identity provider custom claims.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// DefaultRole is assigned when a verified token carries no role claim.
const DefaultRole = RoleUser

var knownRoles = map[Role]struct{}{
	RoleAdmin: {},
	RoleUser:  {},
}

// ParseRole converts a claim value into a Role.
// Empty values resolve to DefaultRole. The boolean reports whether the role is known.
func ParseRole(value string) (Role, bool) {
	if value == "" {
		return DefaultRole, true
	}
	role := Role(value)
	return role, role.Valid()
}

// Valid reports whether r is one of the declared roles
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

// String implements fmt.Stringer
func (r Role) String() string {
	return string(r)
}

// RoleNames converts a role set to plain strings for responses and logs
func RoleNames(roles []Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return names
}

// Roles returns the declared roles
func Roles() []Role {
	return []Role{RoleAdmin, RoleUser}
}
