package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/identity-gateway/config"
	"github.com/upb/identity-gateway/identity"
	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/utils"
	"go.uber.org/zap"
)

// MockTokenVerifier is a mock implementation of TokenVerifier
type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) VerifyToken(ctx context.Context, token string) (*identity.DecodedToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.DecodedToken), args.Error(1)
}

func newMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return NewAuthMiddleware(verifier, utils.NewErrorResponder(zap.NewNop(), false), zap.NewNop())
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestAuthenticate(t *testing.T) {
	t.Run("valid token attaches auth context", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		verifier.On("VerifyToken", mock.Anything, "valid-token").
			Return(&identity.DecodedToken{UID: "user-123", Role: models.RoleAdmin, Email: "a@example.com"}, nil)

		handler := newMiddleware(verifier).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, ok := AuthContextFrom(r.Context())
			require.True(t, ok)
			assert.Equal(t, "user-123", auth.SubjectID)
			assert.Equal(t, models.RoleAdmin, auth.Role)
			assert.Equal(t, "a@example.com", auth.Email)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		verifier.AssertExpectations(t)
	})

	t.Run("missing role defaults to user", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		verifier.On("VerifyToken", mock.Anything, "t").Return(&identity.DecodedToken{UID: "user-1"}, nil)

		var got models.AuthContext
		handler := newMiddleware(verifier).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = AuthContextFrom(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer t")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, models.RoleUser, got.Role)
	})

	t.Run("undeclared role is kept and never matches a role set", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		verifier.On("VerifyToken", mock.Anything, "t").Return(&identity.DecodedToken{UID: "user-1", Role: models.Role("superuser")}, nil)

		m := newMiddleware(verifier)
		r := chi.NewRouter()
		r.With(m.Authenticate, m.Authorize([]models.Role{models.RoleAdmin}, false)).
			Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

		req := httptest.NewRequest(http.MethodGet, "/users/456", nil)
		req.Header.Set("Authorization", "Bearer t")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "superuser", decodeBody(t, w)["userRole"])
	})

	rejections := []struct {
		name      string
		header    string
		verifyErr error
		wantError string
	}{
		{name: "missing header", header: "", wantError: "Authorization header missing or invalid"},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantError: "Authorization header missing or invalid"},
		{name: "lowercase bearer", header: "bearer token", wantError: "Authorization header missing or invalid"},
		{name: "bearer without space", header: "Bearer", wantError: "Authorization header missing or invalid"},
		{name: "empty token", header: "Bearer ", wantError: "Token missing"},
		{name: "expired", header: "Bearer t", verifyErr: identity.ErrTokenExpired, wantError: "Token expired"},
		{name: "revoked", header: "Bearer t", verifyErr: identity.ErrTokenRevoked, wantError: "Token revoked"},
		{name: "invalid", header: "Bearer t", verifyErr: fmt.Errorf("%w: bad signature", identity.ErrInvalidToken), wantError: "Invalid token"},
		{name: "unexpected provider failure", header: "Bearer t", verifyErr: fmt.Errorf("directory unavailable"), wantError: "Invalid token"},
	}

	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			verifier := new(MockTokenVerifier)
			if tt.verifyErr != nil {
				verifier.On("VerifyToken", mock.Anything, "t").Return(nil, tt.verifyErr)
			}

			handler := newMiddleware(verifier).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tt.wantError, body["error"])
			assert.Equal(t, utils.TypeAuthentication, body["type"])
			if tt.verifyErr == nil {
				verifier.AssertNotCalled(t, "VerifyToken", mock.Anything, mock.Anything)
			}
		})
	}
}

// authorizeRouter mounts a protected /users/{id} route behind a fixed caller
func authorizeRouter(caller *models.AuthContext, mw func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if caller != nil {
				req = req.WithContext(WithAuthContext(req.Context(), *caller))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.With(mw).Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestAuthorize(t *testing.T) {
	m := newMiddleware(new(MockTokenVerifier))
	adminOnly := m.Authorize([]models.Role{models.RoleAdmin}, false)
	adminOrSelf := m.Authorize([]models.Role{models.RoleAdmin}, true)

	admin := &models.AuthContext{SubjectID: "admin-1", Role: models.RoleAdmin}
	user := &models.AuthContext{SubjectID: "123", Role: models.RoleUser}

	tests := []struct {
		name       string
		caller     *models.AuthContext
		mw         func(http.Handler) http.Handler
		path       string
		wantStatus int
	}{
		{name: "admin allowed on admin-only route", caller: admin, mw: adminOnly, path: "/users/999", wantStatus: http.StatusOK},
		{name: "user denied on admin-only route even for own id", caller: user, mw: adminOnly, path: "/users/123", wantStatus: http.StatusForbidden},
		{name: "user allowed for own id", caller: user, mw: adminOrSelf, path: "/users/123", wantStatus: http.StatusOK},
		{name: "user denied for other id", caller: user, mw: adminOrSelf, path: "/users/456", wantStatus: http.StatusForbidden},
		{name: "admin allowed for other id", caller: admin, mw: adminOrSelf, path: "/users/456", wantStatus: http.StatusOK},
		{name: "missing auth context is denied", caller: nil, mw: adminOrSelf, path: "/users/123", wantStatus: http.StatusForbidden},
		{name: "admin role without subject allowed", caller: &models.AuthContext{Role: models.RoleAdmin}, mw: adminOnly, path: "/users/123", wantStatus: http.StatusOK},
		{name: "empty subject never matches same user", caller: &models.AuthContext{Role: models.RoleUser}, mw: adminOrSelf, path: "/users/123", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			authorizeRouter(tt.caller, tt.mw).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}

	t.Run("denial reports required and actual roles", func(t *testing.T) {
		w := httptest.NewRecorder()
		authorizeRouter(user, adminOrSelf).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/456", nil))

		require.Equal(t, http.StatusForbidden, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Insufficient permissions", body["error"])
		assert.Equal(t, utils.TypeAuthorization, body["type"])
		assert.Equal(t, []interface{}{"admin"}, body["requiredRoles"])
		assert.Equal(t, "user", body["userRole"])
		assert.Len(t, body, 4)
	})

	t.Run("missing auth context reports required roles only", func(t *testing.T) {
		w := httptest.NewRecorder()
		authorizeRouter(nil, adminOrSelf).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/123", nil))

		require.Equal(t, http.StatusForbidden, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Insufficient permissions", body["error"])
		assert.Equal(t, utils.TypeAuthorization, body["type"])
		assert.Equal(t, []interface{}{"admin"}, body["requiredRoles"])
		assert.NotContains(t, body, "userRole")
	})

	t.Run("empty id never matches", func(t *testing.T) {
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(WithAuthContext(req.Context(), models.AuthContext{SubjectID: "123", Role: models.RoleUser})))
			})
		})
		r.With(adminOrSelf).Get("/profile", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profile", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestWithAuthContext(t *testing.T) {
	ctx := WithAuthContext(context.Background(), models.AuthContext{SubjectID: "first", Role: models.RoleUser})
	ctx = WithAuthContext(ctx, models.AuthContext{SubjectID: "second", Role: models.RoleAdmin})

	auth, ok := AuthContextFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "first", auth.SubjectID)

	_, ok = AuthContextFrom(context.Background())
	assert.False(t, ok)
}

func TestRequestMeta(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		wantIP     string
	}{
		{name: "ipv4 with port", remoteAddr: "10.0.0.1:5000", wantIP: "10.0.0.1"},
		{name: "full ipv6 with port", remoteAddr: "[2001:0db8:85a3:0000:0000:8a2e:0370:7334]:65535", wantIP: "2001:0db8:85a3:0000:0000:8a2e:0370:7334"},
		{name: "bare address from RealIP", remoteAddr: "2001:db8::1", wantIP: "2001:db8::1"},
		{name: "empty", remoteAddr: "", wantIP: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("User-Agent", "curl/8.0")

			meta := RequestMeta(req)
			assert.Equal(t, tt.wantIP, meta.IPAddress)
			assert.LessOrEqual(t, len(meta.IPAddress), 45, "must fit audit_logs.ip_address")
			assert.Equal(t, "curl/8.0", meta.UserAgent)
		})
	}

	t.Run("behind RealIP", func(t *testing.T) {
		var got models.RequestMeta
		handler := chimw.RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = RequestMeta(r)
		}))

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "[2001:0db8:85a3:0000:0000:8a2e:0370:7334]:65535"
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "2001:0db8:85a3:0000:0000:8a2e:0370:7334", got.IPAddress)
	})
}

func TestRateLimiter(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("disabled", func(t *testing.T) {
		handler := RateLimiter(config.RateLimitConfig{})(ok)
		for i := 0; i < 10; i++ {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("bucket exhausted", func(t *testing.T) {
		handler := RateLimiter(config.RateLimitConfig{Requests: 2, Interval: time.Hour})(ok)

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			codes = append(codes, w.Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})
}

func TestRequestLogger(t *testing.T) {
	handler := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
