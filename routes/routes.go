package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/justinas/alice"
	"github.com/upb/identity-gateway/app"
	"github.com/upb/identity-gateway/handlers"
	"github.com/upb/identity-gateway/internal/observability"
	"github.com/upb/identity-gateway/middleware"
	"github.com/upb/identity-gateway/models"
)

var adminOnly = []models.Role{models.RoleAdmin}

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	r.Use(cors.Handler(corsOptions(deps.Config.Server.AllowedOrigins)))

	health := deps.HealthHandler
	r.Get("/health", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	auth := deps.AuthMiddleware
	authenticated := alice.New(auth.Authenticate)
	adminOrSelf := authenticated.Append(auth.Authorize(adminOnly, true))
	admin := authenticated.Append(auth.Authorize(adminOnly, false))

	handle := func(fn handlers.HandlerFunc) http.Handler {
		return handlers.Handle(deps.Responder, fn)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimiter(deps.Config.RateLimit))

		r.Route("/users", func(r chi.Router) {
			users := deps.UserHandler
			r.Method(http.MethodGet, "/profile", authenticated.Then(handle(users.GetProfile)))
			r.Method(http.MethodGet, "/{id}", adminOrSelf.Then(handle(users.GetUserByID)))
			r.Method(http.MethodDelete, "/{id}", admin.Then(handle(users.DeleteUser)))
		})

		r.Route("/admin", func(r chi.Router) {
			admins := deps.AdminHandler
			r.Method(http.MethodPost, "/setCustomClaims", admin.Then(handle(admins.SetCustomClaims)))
			r.Method(http.MethodGet, "/users/{uid}", admin.Then(handle(admins.GetUserDetails)))
		})
	})

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.NotFound)

	return observability.HTTPHandler(r, deps.Config.Observability)
}

// corsOptions allows only the configured origins. Bearer tokens travel in
// the Authorization header, so cookies are never shared cross-origin.
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}
	// An empty list means every origin to the cors package
	if len(origins) == 0 {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return opts
}
