package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
)

// OIDCConfig holds configuration for OIDCVerifier
type OIDCConfig struct {
	Issuer     string
	Audience   string // client ID; the check is skipped when empty
	RoleClaim  string
	HTTPClient *http.Client
}

// OIDCVerifier validates ID tokens using the issuer's discovery document
type OIDCVerifier struct {
	verifier   *oidc.IDTokenVerifier
	roleClaim  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOIDCVerifier discovers the issuer and returns a verifier bound to its keys
func NewOIDCVerifier(ctx context.Context, cfg OIDCConfig, logger *zap.Logger) (*OIDCVerifier, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.RoleClaim == "" {
		cfg.RoleClaim = "role"
	}
	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover issuer: %w", err)
	}

	logger.Info("OIDC issuer discovered", zap.String("issuer", cfg.Issuer))

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{
			ClientID:          cfg.Audience,
			SkipClientIDCheck: cfg.Audience == "",
		}),
		roleClaim:  cfg.RoleClaim,
		httpClient: cfg.HTTPClient,
		logger:     logger,
	}, nil
}

// Verify validates the ID token and returns the decoded identity
func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (*DecodedToken, error) {
	if v.httpClient != nil {
		ctx = oidc.ClientContext(ctx, v.httpClient)
	}

	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := map[string]interface{}{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	decoded, err := decodeClaims(claims, v.roleClaim)
	if err != nil {
		return nil, err
	}
	decoded.UID = idToken.Subject
	decoded.IssuedAt = idToken.IssuedAt
	decoded.ExpiresAt = idToken.Expiry
	return decoded, nil
}
