package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/identity-gateway/models"
	"go.uber.org/zap"
)

const testAudience = "identity-gateway"

type keyServer struct {
	*httptest.Server
	key     *rsa.PrivateKey
	kid     string
	fetches atomic.Int32
}

func newKeyServer(t *testing.T) *keyServer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := &keyServer{key: key, kid: "kid-1"}
	ks.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/openid-configuration":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"issuer":                                ks.URL,
				"jwks_uri":                              ks.URL + "/.well-known/jwks.json",
				"id_token_signing_alg_values_supported": []string{"RS256"},
			})
		case "/.well-known/jwks.json":
			ks.fetches.Add(1)
			_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{
				Keys: []jose.JSONWebKey{{
					Key:       &ks.key.PublicKey,
					KeyID:     ks.kid,
					Algorithm: string(jose.RS256),
					Use:       "sig",
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ks.Close)
	return ks
}

func (ks *keyServer) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = ks.kid
	signed, err := token.SignedString(ks.key)
	require.NoError(t, err)
	return signed
}

func (ks *keyServer) claims(sub string, extra map[string]interface{}) jwt.MapClaims {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": ks.URL,
		"aud": testAudience,
		"sub": sub,
		"iat": now.Add(-time.Minute).Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	return claims
}

func newTestJWKSVerifier(t *testing.T, ks *keyServer) *JWKSVerifier {
	t.Helper()
	v, err := NewJWKSVerifier(JWKSConfig{
		KeySetURL: ks.URL + "/.well-known/jwks.json",
		Issuer:    ks.URL,
		Audience:  testAudience,
		RoleClaim: "role",
	}, zap.NewNop())
	require.NoError(t, err)
	return v
}

func TestJWKSVerifier_Verify(t *testing.T) {
	ctx := context.Background()
	ks := newKeyServer(t)

	t.Run("valid token", func(t *testing.T) {
		v := newTestJWKSVerifier(t, ks)
		raw := ks.sign(t, ks.claims("user-1", map[string]interface{}{"role": "admin", "email": "a@example.com"}))

		decoded, err := v.Verify(ctx, raw)
		require.NoError(t, err)
		assert.Equal(t, "user-1", decoded.UID)
		assert.Equal(t, models.RoleAdmin, decoded.Role)
		assert.Equal(t, "a@example.com", decoded.Email)
		assert.False(t, decoded.IssuedAt.IsZero())
		assert.True(t, decoded.ExpiresAt.After(time.Now()))
	})

	t.Run("token without role claim", func(t *testing.T) {
		v := newTestJWKSVerifier(t, ks)
		decoded, err := v.Verify(ctx, ks.sign(t, ks.claims("user-2", nil)))
		require.NoError(t, err)
		assert.Equal(t, models.Role(""), decoded.Role)
	})

	t.Run("expired token", func(t *testing.T) {
		v := newTestJWKSVerifier(t, ks)
		claims := ks.claims("user-1", nil)
		claims["iat"] = time.Now().Add(-2 * time.Hour).Unix()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()

		_, err := v.Verify(ctx, ks.sign(t, claims))
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong audience", func(t *testing.T) {
		v := newTestJWKSVerifier(t, ks)
		claims := ks.claims("user-1", nil)
		claims["aud"] = "someone-else"

		_, err := v.Verify(ctx, ks.sign(t, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		v := newTestJWKSVerifier(t, ks)
		claims := ks.claims("user-1", nil)
		claims["iss"] = "https://evil.example.com"

		_, err := v.Verify(ctx, ks.sign(t, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		v := newTestJWKSVerifier(t, ks)
		claims := ks.claims("", nil)
		delete(claims, "sub")

		_, err := v.Verify(ctx, ks.sign(t, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("signed by unknown key", func(t *testing.T) {
		v := newTestJWKSVerifier(t, ks)
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		token := jwt.NewWithClaims(jwt.SigningMethodRS256, ks.claims("user-1", nil))
		token.Header["kid"] = ks.kid
		raw, err := token.SignedString(other)
		require.NoError(t, err)

		_, err = v.Verify(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown kid", func(t *testing.T) {
		v := newTestJWKSVerifier(t, ks)
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, ks.claims("user-1", nil))
		token.Header["kid"] = "rotated-away"
		raw, err := token.SignedString(ks.key)
		require.NoError(t, err)

		_, err = v.Verify(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("HMAC token rejected", func(t *testing.T) {
		v := newTestJWKSVerifier(t, ks)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, ks.claims("user-1", nil))
		token.Header["kid"] = ks.kid
		raw, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = v.Verify(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		v := newTestJWKSVerifier(t, ks)
		_, err := v.Verify(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestJWKSVerifier_KeyCache(t *testing.T) {
	ctx := context.Background()
	ks := newKeyServer(t)
	v := newTestJWKSVerifier(t, ks)

	for i := 0; i < 3; i++ {
		_, err := v.Verify(ctx, ks.sign(t, ks.claims("user-1", nil)))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), ks.fetches.Load(), "keys should be fetched once")

	stats := v.GetCacheStats()
	assert.Contains(t, stats, "cached_keys_count")
	assert.Contains(t, stats, "hits")
	assert.Contains(t, stats, "misses")

	v.InvalidateCache()
	_, err := v.Verify(ctx, ks.sign(t, ks.claims("user-1", nil)))
	require.NoError(t, err)
	assert.Equal(t, int32(2), ks.fetches.Load())
}

func TestJWKSVerifier_FetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	v, err := NewJWKSVerifier(JWKSConfig{KeySetURL: server.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = v.FetchJWKS(context.Background())
	assert.ErrorIs(t, err, ErrJWKSFetchFailed)
}

func TestNewJWKSVerifier_RequiresURL(t *testing.T) {
	_, err := NewJWKSVerifier(JWKSConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestOIDCVerifier_Verify(t *testing.T) {
	ctx := context.Background()
	ks := newKeyServer(t)

	v, err := NewOIDCVerifier(ctx, OIDCConfig{
		Issuer:    ks.URL,
		Audience:  testAudience,
		RoleClaim: "app_role",
	}, zap.NewNop())
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		decoded, err := v.Verify(ctx, ks.sign(t, ks.claims("user-1", map[string]interface{}{"app_role": "admin"})))
		require.NoError(t, err)
		assert.Equal(t, "user-1", decoded.UID)
		assert.Equal(t, models.RoleAdmin, decoded.Role)
		assert.False(t, decoded.IssuedAt.IsZero())
	})

	t.Run("expired token", func(t *testing.T) {
		claims := ks.claims("user-1", nil)
		claims["exp"] = time.Now().Add(-time.Hour).Unix()

		_, err := v.Verify(ctx, ks.sign(t, claims))
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := ks.claims("user-1", nil)
		claims["aud"] = "other"

		_, err := v.Verify(ctx, ks.sign(t, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestDecodeClaims(t *testing.T) {
	t.Run("non-string role ignored", func(t *testing.T) {
		decoded, err := decodeClaims(map[string]interface{}{"sub": "u", "role": 42.0}, "role")
		require.NoError(t, err)
		assert.Equal(t, models.Role(""), decoded.Role)
	})

	t.Run("json number timestamps", func(t *testing.T) {
		decoded, err := decodeClaims(map[string]interface{}{"sub": "u", "iat": json.Number("1700000000")}, "role")
		require.NoError(t, err)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), decoded.IssuedAt)
	})
}
