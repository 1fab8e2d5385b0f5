package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/services"
	"go.uber.org/zap"
)

// ResourceIDParam is the path parameter compared with the caller for
// same-user access
const ResourceIDParam = "id"

// Authorize admits callers whose role is in allowedRoles or, when
// allowSameUser is set, callers requesting their own resource. Everything
// else, including a request with no AuthContext, gets 403. It must run after
// Authenticate and inside a route that declares {id}.
func (m *AuthMiddleware) Authorize(allowedRoles []models.Role, allowSameUser bool) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		allowed[role] = struct{}{}
	}
	required := models.RoleNames(allowedRoles)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := chimw.GetReqID(r.Context())

			auth, ok := AuthContextFrom(r.Context())
			if !ok {
				m.logger.Error("authorization reached without authentication",
					zap.String("request_id", requestID))
			}

			if _, ok := allowed[auth.Role]; ok && auth.Role != "" {
				next.ServeHTTP(w, r)
				return
			}

			if allowSameUser && auth.SubjectID != "" {
				if resourceID := chi.URLParam(r, ResourceIDParam); resourceID == auth.SubjectID {
					next.ServeHTTP(w, r)
					return
				}
			}

			m.logger.Warn("access denied",
				zap.String("request_id", requestID),
				zap.String("uid", auth.SubjectID),
				zap.String("role", auth.Role.String()),
				zap.Strings("required_roles", required))

			m.responder.Respond(w, r, services.ErrInsufficientPermissions.
				WithDetail("requiredRoles", required).
				WithDetail("userRole", auth.Role.String()))
		})
	}
}
