package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/identity-gateway/identity"
	"github.com/upb/identity-gateway/models"
	"go.uber.org/zap"
)

// AuditRecorder records administrative mutations
type AuditRecorder interface {
	LogCustomClaimsSet(actor models.AuthContext, targetUID string, claims map[string]interface{}, meta models.RequestMeta) error
	LogUserDeleted(actor models.AuthContext, targetUID string, meta models.RequestMeta) error
}

// Profile is the caller's own identity
type Profile struct {
	Message string
	UserID  string
	Role    models.Role
}

// UserService implements the user-facing operations
type UserService struct {
	provider identity.Provider
	audit    AuditRecorder
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(provider identity.Provider, audit AuditRecorder, logger *zap.Logger) *UserService {
	return &UserService{
		provider: provider,
		audit:    audit,
		logger:   logger,
	}
}

// Profile returns the caller's own subject id and role
func (s *UserService) Profile(caller models.AuthContext) (*Profile, error) {
	if caller.SubjectID == "" {
		return nil, ErrNotAuthenticated
	}
	return &Profile{
		Message: fmt.Sprintf("User profile for user ID: %s", caller.SubjectID),
		UserID:  caller.SubjectID,
		Role:    caller.Role,
	}, nil
}

// GetUser fetches the user identified by uid
func (s *UserService) GetUser(ctx context.Context, uid string) (*models.UserRecord, error) {
	user, err := s.provider.GetUser(ctx, uid)
	if err != nil {
		return nil, providerError(err)
	}
	return user, nil
}

// DeleteUser deletes the user identified by uid. The caller must carry a role.
func (s *UserService) DeleteUser(ctx context.Context, caller models.AuthContext, uid string, meta models.RequestMeta) error {
	if caller.Role == "" {
		return ErrRoleNotFound
	}
	if uid == "" {
		return ErrUserIDRequired
	}

	if err := s.provider.DeleteUser(ctx, uid); err != nil {
		return providerError(err)
	}

	s.logger.Info("user deleted",
		zap.String("uid", uid),
		zap.String("deleted_by", caller.SubjectID),
		zap.String("request_id", meta.RequestID))

	if s.audit != nil {
		if err := s.audit.LogUserDeleted(caller, uid, meta); err != nil {
			s.logger.Warn("failed to record audit event", zap.Error(err), zap.String("uid", uid))
		}
	}
	return nil
}

// providerError maps identity provider failures onto domain errors
func providerError(err error) error {
	if errors.Is(err, identity.ErrUserNotFound) {
		return WrapError(ErrUserNotFound, err)
	}
	return WrapInternal(err)
}
