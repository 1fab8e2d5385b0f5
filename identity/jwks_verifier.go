package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/maypok86/otter"
	"go.uber.org/zap"
)

var signingMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}

// JWKSConfig holds configuration for JWKSVerifier
type JWKSConfig struct {
	KeySetURL  string
	Issuer     string // checked when set
	Audience   string // checked when set
	RoleClaim  string
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// JWKSVerifier validates signed JWTs against a remote JSON Web Key Set
type JWKSVerifier struct {
	keySetURL  string
	roleClaim  string
	httpClient *http.Client
	parser     *jwt.Parser
	logger     *zap.Logger

	// signing keys by kid; verified tokens are never cached
	keys    otter.Cache[string, jose.JSONWebKey]
	fetchMu sync.Mutex
}

// NewJWKSVerifier creates a new JWKS-backed token verifier
func NewJWKSVerifier(cfg JWKSConfig, logger *zap.Logger) (*JWKSVerifier, error) {
	if cfg.KeySetURL == "" {
		return nil, errors.New("key set URL is required")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.RoleClaim == "" {
		cfg.RoleClaim = "role"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	keys, err := otter.
		MustBuilder[string, jose.JSONWebKey](256).
		CollectStats().
		WithTTL(cfg.CacheTTL).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key cache: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(signingMethods),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &JWKSVerifier{
		keySetURL:  cfg.KeySetURL,
		roleClaim:  cfg.RoleClaim,
		httpClient: cfg.HTTPClient,
		parser:     jwt.NewParser(opts...),
		logger:     logger,
		keys:       keys,
	}, nil
}

// Verify validates the token signature and registered claims and returns the
// decoded identity
func (v *JWKSVerifier) Verify(ctx context.Context, raw string) (*DecodedToken, error) {
	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("kid header not found")
		}
		key, err := v.signingKey(ctx, kid)
		if err != nil {
			return nil, err
		}
		return key.Key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return decodeClaims(claims, v.roleClaim)
}

// signingKey returns the cached key for kid, refreshing the key set once on a miss
func (v *JWKSVerifier) signingKey(ctx context.Context, kid string) (jose.JSONWebKey, error) {
	if key, ok := v.keys.Get(kid); ok {
		return key, nil
	}

	v.fetchMu.Lock()
	defer v.fetchMu.Unlock()

	// another request may have refreshed while we waited
	if key, ok := v.keys.Get(kid); ok {
		return key, nil
	}

	set, err := v.FetchJWKS(ctx)
	if err != nil {
		return jose.JSONWebKey{}, err
	}
	for _, key := range set.Keys {
		if key.KeyID == "" || !key.Valid() || !key.IsPublic() {
			continue
		}
		v.keys.Set(key.KeyID, key)
	}

	if key, ok := v.keys.Get(kid); ok {
		return key, nil
	}
	return jose.JSONWebKey{}, fmt.Errorf("key with kid %s not found in JWKS", kid)
}

// FetchJWKS fetches the key set from the provider
func (v *JWKSVerifier) FetchJWKS(ctx context.Context) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.keySetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrJWKSFetchFailed, resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS: %w", err)
	}

	v.logger.Debug("fetched signing keys",
		zap.String("url", v.keySetURL),
		zap.Int("keys", len(set.Keys)))

	return &set, nil
}

// InvalidateCache drops all cached signing keys
func (v *JWKSVerifier) InvalidateCache() {
	v.keys.Clear()
}

// GetCacheStats returns key cache statistics
func (v *JWKSVerifier) GetCacheStats() map[string]interface{} {
	stats := v.keys.Stats()
	return map[string]interface{}{
		"cached_keys_count": v.keys.Size(),
		"hits":              stats.Hits(),
		"misses":            stats.Misses(),
	}
}
