package identity

import "errors"

var (
	// ErrInvalidToken is returned when the token fails verification for any
	// reason other than expiry or revocation
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked is returned when the token was issued before the user's
	// sessions were revoked
	ErrTokenRevoked = errors.New("token revoked")

	// ErrUserNotFound is returned when the provider has no such user
	ErrUserNotFound = errors.New("user not found")

	// ErrJWKSFetchFailed is returned when the signing key set cannot be fetched
	ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")
)
