package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/upb/identity-gateway/config"
	"github.com/upb/identity-gateway/handlers"
	"github.com/upb/identity-gateway/identity"
	"github.com/upb/identity-gateway/internal/observability"
	"github.com/upb/identity-gateway/middleware"
	"github.com/upb/identity-gateway/repositories"
	"github.com/upb/identity-gateway/repositories/postgres"
	"github.com/upb/identity-gateway/services"
	"github.com/upb/identity-gateway/services/audit"
	"github.com/upb/identity-gateway/utils"
	"go.uber.org/zap"
)

// auditStopTimeout bounds how long shutdown waits for queued audit entries
const auditStopTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	AuditLogs repositories.AuditRepository

	// Identity provider
	Identity *identity.Client
	verifier identity.TokenVerifier

	// Services
	AuditService *audit.AuditService
	UserService  *services.UserService
	AdminService *services.AdminService

	// HTTP
	Responder      *utils.ErrorResponder
	AuthMiddleware *middleware.AuthMiddleware
	UserHandler    *handlers.UserHandler
	AdminHandler   *handlers.AdminHandler
	HealthHandler  *handlers.HealthHandler
}

// NewDependencies opens the database and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesWithFactory(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesWithFactory wires dependencies around an already opened database
func NewDependenciesWithFactory(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	if err := deps.DB.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initAudit(); err != nil {
		return nil, fmt.Errorf("failed to start audit service: %w", err)
	}

	if err := deps.initIdentity(ctx, cfg); err != nil {
		_ = deps.AuditService.Stop(auditStopTimeout)
		return nil, fmt.Errorf("failed to initialize identity provider: %w", err)
	}

	deps.initHTTP(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()
	d.Users = repos.Users
	d.AuditLogs = repos.AuditLogs
	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initAudit() error {
	d.AuditService = audit.NewAuditService(d.AuditLogs, d.Logger, audit.DefaultConfig())
	return d.AuditService.Start()
}

func (d *Dependencies) initIdentity(ctx context.Context, cfg *config.Config) error {
	httpClient := &http.Client{
		Timeout:   cfg.Identity.HTTPTimeout,
		Transport: observability.HTTPTransport(nil, cfg.Observability),
	}

	verifier, err := identity.NewVerifier(ctx, cfg.Identity, httpClient, d.Logger)
	if err != nil {
		return err
	}

	d.verifier = verifier
	d.Identity = identity.NewClient(verifier, d.Users, cfg.Identity.CheckRevoked, d.Logger)
	d.Logger.Info("identity provider initialized",
		zap.String("mode", cfg.Identity.Mode),
		zap.String("issuer", cfg.Identity.Issuer),
		zap.Bool("check_revoked", cfg.Identity.CheckRevoked))
	return nil
}

func (d *Dependencies) initHTTP(cfg *config.Config) {
	d.UserService = services.NewUserService(d.Identity, d.AuditService, d.Logger)
	d.AdminService = services.NewAdminService(d.Identity, d.AuditService, d.Logger)

	d.Responder = utils.NewErrorResponder(d.Logger, !cfg.IsProduction())
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Identity, d.Responder, d.Logger)

	d.UserHandler = handlers.NewUserHandler(d.UserService, d.Logger)
	d.AdminHandler = handlers.NewAdminHandler(d.AdminService, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB, d.Logger)
	if keyCache, ok := d.verifier.(handlers.KeyCacheReporter); ok {
		d.HealthHandler.WithKeyCache(keyCache)
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.AuditService != nil {
		if err := d.AuditService.Stop(auditStopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
