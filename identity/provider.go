package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/upb/identity-gateway/config"
	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/repositories"
	"go.uber.org/zap"
)

// Provider is the identity provider surface used by the HTTP layer
type Provider interface {
	// VerifyToken returns ErrTokenExpired, ErrTokenRevoked or ErrInvalidToken on failure
	VerifyToken(ctx context.Context, token string) (*DecodedToken, error)
	// GetUser returns ErrUserNotFound when the uid is unknown
	GetUser(ctx context.Context, uid string) (*models.UserRecord, error)
	// SetCustomClaims replaces the user's custom claims
	SetCustomClaims(ctx context.Context, uid string, claims map[string]interface{}) error
	// DeleteUser returns ErrUserNotFound when the uid is unknown
	DeleteUser(ctx context.Context, uid string) error
}

// TokenVerifier checks a raw bearer token
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*DecodedToken, error)
}

// Client implements Provider on top of a token verifier and the user directory
type Client struct {
	verifier     TokenVerifier
	users        repositories.UserRepository
	checkRevoked bool
	logger       *zap.Logger
}

var _ Provider = (*Client)(nil)

// NewClient creates a provider client
func NewClient(verifier TokenVerifier, users repositories.UserRepository, checkRevoked bool, logger *zap.Logger) *Client {
	return &Client{
		verifier:     verifier,
		users:        users,
		checkRevoked: checkRevoked,
		logger:       logger,
	}
}

// NewVerifier builds the token verifier selected by cfg.Mode
func NewVerifier(ctx context.Context, cfg config.IdentityConfig, httpClient *http.Client, logger *zap.Logger) (TokenVerifier, error) {
	if !cfg.Configured() {
		logger.Warn("identity provider not configured, all bearer tokens will be rejected",
			zap.String("mode", cfg.Mode))
		return RejectAll{}, nil
	}

	switch cfg.Mode {
	case config.IdentityModeOIDC:
		return NewOIDCVerifier(ctx, OIDCConfig{
			Issuer:     cfg.Issuer,
			Audience:   cfg.Audience,
			RoleClaim:  cfg.RoleClaim,
			HTTPClient: httpClient,
		}, logger)
	case config.IdentityModeJWKS:
		return NewJWKSVerifier(JWKSConfig{
			KeySetURL:  cfg.KeySetURL(),
			Issuer:     cfg.Issuer,
			Audience:   cfg.Audience,
			RoleClaim:  cfg.RoleClaim,
			CacheTTL:   cfg.JWKSCacheTTL,
			HTTPClient: httpClient,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown identity mode %q", cfg.Mode)
	}
}

// VerifyToken verifies the token and, when enabled, checks the subject
// against the directory for disabled accounts and revoked sessions
func (c *Client) VerifyToken(ctx context.Context, token string) (*DecodedToken, error) {
	decoded, err := c.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if !c.checkRevoked {
		return decoded, nil
	}

	user, err := c.users.GetByUID(ctx, decoded.UID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
		}
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if user.Disabled {
		return nil, fmt.Errorf("%w: user disabled", ErrInvalidToken)
	}
	if user.RevokedBefore(decoded.IssuedAt) {
		return nil, ErrTokenRevoked
	}

	return decoded, nil
}

// GetUser fetches a user record
func (c *Client) GetUser(ctx context.Context, uid string) (*models.UserRecord, error) {
	user, err := c.users.GetByUID(ctx, uid)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

// SetCustomClaims replaces a user's custom claims
func (c *Client) SetCustomClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	if err := c.users.SetCustomClaims(ctx, uid, claims); err != nil {
		return translate(err)
	}
	c.logger.Info("custom claims set", zap.String("uid", uid))
	return nil
}

// DeleteUser removes a user
func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	if err := c.users.Delete(ctx, uid); err != nil {
		return translate(err)
	}
	c.logger.Info("user deleted", zap.String("uid", uid))
	return nil
}

func translate(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrUserNotFound, err)
	}
	return err
}

// RejectAll is the verifier installed when no identity provider is configured
type RejectAll struct{}

// Verify always fails with ErrInvalidToken
func (RejectAll) Verify(context.Context, string) (*DecodedToken, error) {
	return nil, fmt.Errorf("%w: identity provider not configured", ErrInvalidToken)
}
