package repositories

import (
	"context"
	"errors"

	"github.com/upb/identity-gateway/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("record not found")

// UserRepository handles the user directory backing the identity provider
type UserRepository interface {
	// GetByUID retrieves a user by provider UID. Returns ErrNotFound when missing.
	GetByUID(ctx context.Context, uid string) (*models.UserRecord, error)

	// SetCustomClaims replaces the user's custom claims wholesale
	SetCustomClaims(ctx context.Context, uid string, claims map[string]interface{}) error

	// Delete removes the user
	Delete(ctx context.Context, uid string) error
}

// AuditRepository handles audit log persistence
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users     UserRepository
	AuditLogs AuditRepository
}
