package services

import (
	"context"

	"github.com/upb/identity-gateway/identity"
	"github.com/upb/identity-gateway/models"
	"go.uber.org/zap"
)

// AdminService implements the administrative operations
type AdminService struct {
	provider identity.Provider
	audit    AuditRecorder
	logger   *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(provider identity.Provider, audit AuditRecorder, logger *zap.Logger) *AdminService {
	return &AdminService{
		provider: provider,
		audit:    audit,
		logger:   logger,
	}
}

// SetCustomClaims replaces the custom claims of uid. A role claim, when
// present, must name a known role.
func (s *AdminService) SetCustomClaims(ctx context.Context, caller models.AuthContext, uid string, claims map[string]interface{}, meta models.RequestMeta) error {
	if uid == "" || claims == nil {
		return ErrMissingClaimsFields
	}
	if raw, ok := claims["role"]; ok {
		name, isString := raw.(string)
		if _, known := models.ParseRole(name); !isString || name == "" || !known {
			return ErrUnknownRole.WithDetail("allowedRoles", models.RoleNames(models.Roles()))
		}
	}

	if err := s.provider.SetCustomClaims(ctx, uid, claims); err != nil {
		return providerError(err)
	}

	s.logger.Info("custom claims set",
		zap.String("uid", uid),
		zap.String("set_by", caller.SubjectID),
		zap.String("request_id", meta.RequestID))

	if s.audit != nil {
		if err := s.audit.LogCustomClaimsSet(caller, uid, claims, meta); err != nil {
			s.logger.Warn("failed to record audit event", zap.Error(err), zap.String("uid", uid))
		}
	}
	return nil
}

// GetUserDetails fetches a user record for administrators
func (s *AdminService) GetUserDetails(ctx context.Context, uid string) (*models.UserRecord, error) {
	if uid == "" {
		return nil, ErrUserIDRequired
	}
	user, err := s.provider.GetUser(ctx, uid)
	if err != nil {
		return nil, providerError(err)
	}
	return user, nil
}
