package middleware

import (
	"context"
	"net"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/identity-gateway/models"
)

// Context key type to avoid collisions
type contextKey string

// AuthContextKey is the context key for the verified caller
const AuthContextKey contextKey = "auth_context"

// WithAuthContext attaches the caller identity. An identity already present
// is kept; it is set once per request.
func WithAuthContext(ctx context.Context, auth models.AuthContext) context.Context {
	if _, ok := AuthContextFrom(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, AuthContextKey, auth)
}

// AuthContextFrom returns the caller identity, if the request was authenticated
func AuthContextFrom(ctx context.Context) (models.AuthContext, bool) {
	auth, ok := ctx.Value(AuthContextKey).(models.AuthContext)
	return auth, ok
}

// RequestMeta collects the request attributes recorded in the audit trail
func RequestMeta(r *http.Request) models.RequestMeta {
	return models.RequestMeta{
		RequestID: chimw.GetReqID(r.Context()),
		IPAddress: clientIP(r.RemoteAddr),
		UserAgent: r.UserAgent(),
	}
}

// clientIP drops the port from a host:port address. Addresses already
// rewritten by RealIP carry no port and are returned unchanged.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
