package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/identity-gateway/identity"
	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/services"
	"github.com/upb/identity-gateway/utils"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// TokenVerifier verifies bearer tokens with the identity provider
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*identity.DecodedToken, error)
}

// AuthMiddleware provides authentication and authorization middleware
type AuthMiddleware struct {
	verifier  TokenVerifier
	responder *utils.ErrorResponder
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier, responder *utils.ErrorResponder, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:  verifier,
		responder: responder,
		logger:    logger,
	}
}

// Authenticate requires a valid bearer token and attaches the caller's
// AuthContext to the request
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := chimw.GetReqID(ctx)

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			m.logger.Warn("missing or malformed authorization header",
				zap.String("request_id", requestID))
			m.responder.Respond(w, r, services.ErrMissingAuthHeader)
			return
		}

		token := strings.TrimPrefix(header, bearerPrefix)
		if token == "" {
			m.logger.Warn("empty bearer token", zap.String("request_id", requestID))
			m.responder.Respond(w, r, services.ErrTokenMissing)
			return
		}

		decoded, err := m.verifier.VerifyToken(ctx, token)
		if err != nil {
			m.logger.Warn("token verification failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			m.responder.Respond(w, r, verificationError(err))
			return
		}

		role, known := models.ParseRole(decoded.Role.String())
		if !known {
			m.logger.Warn("token carries an undeclared role",
				zap.String("request_id", requestID),
				zap.String("uid", decoded.UID),
				zap.String("role", role.String()))
		}

		auth := models.AuthContext{
			SubjectID: decoded.UID,
			Role:      role,
			Email:     decoded.Email,
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("uid", auth.SubjectID),
			zap.String("role", auth.Role.String()))

		next.ServeHTTP(w, r.WithContext(WithAuthContext(ctx, auth)))
	})
}

// verificationError maps provider failures to 401 responses. The reason is
// carried only in the message.
func verificationError(err error) error {
	switch {
	case errors.Is(err, identity.ErrTokenExpired):
		return services.WrapError(services.ErrTokenExpired, err)
	case errors.Is(err, identity.ErrTokenRevoked):
		return services.WrapError(services.ErrTokenRevoked, err)
	default:
		return services.WrapError(services.ErrInvalidToken, err)
	}
}
