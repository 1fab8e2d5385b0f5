package models

// AuthContext is the verified caller identity attached to a request
type AuthContext struct {
	SubjectID string
	Role      Role
	Email     string
}

// IsAdmin reports whether the caller holds the admin role
func (a AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// RequestMeta carries request attributes recorded in the audit trail
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}
