package models

import (
	"time"
)

// UserRecord is a user as stored by the identity provider
type UserRecord struct {
	UID              string                 `json:"uid" db:"uid"`
	Email            string                 `json:"email,omitempty" db:"email"`
	DisplayName      string                 `json:"displayName,omitempty" db:"display_name"`
	CustomClaims     map[string]interface{} `json:"customClaims,omitempty" db:"custom_claims"`
	EmailVerified    bool                   `json:"emailVerified" db:"email_verified"`
	Disabled         bool                   `json:"disabled" db:"disabled"`
	TokensValidAfter *time.Time             `json:"-" db:"tokens_valid_after"` // tokens issued earlier are revoked
	CreatedAt        time.Time              `json:"-" db:"created_at"`
	UpdatedAt        time.Time              `json:"-" db:"updated_at"`
}

// RevokedBefore reports whether a token issued at issuedAt predates the
// user's revocation timestamp.
func (u *UserRecord) RevokedBefore(issuedAt time.Time) bool {
	if u == nil || u.TokensValidAfter == nil {
		return false
	}
	return issuedAt.Before(*u.TokensValidAfter)
}
