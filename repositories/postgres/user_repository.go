package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/repositories"
	"go.uber.org/zap"
)

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByUID retrieves a user by provider UID
func (r *UserRepository) GetByUID(ctx context.Context, uid string) (*models.UserRecord, error) {
	query := `
		SELECT uid, email, display_name, custom_claims, email_verified, disabled,
		       tokens_valid_after, created_at, updated_at
		FROM identity_users
		WHERE uid = $1
	`

	var (
		user        models.UserRecord
		email       sql.NullString
		displayName sql.NullString
		claims      []byte
		validAfter  sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, uid).Scan(
		&user.UID,
		&email,
		&displayName,
		&claims,
		&user.EmailVerified,
		&user.Disabled,
		&validAfter,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", uid, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Email = email.String
	user.DisplayName = displayName.String
	if validAfter.Valid {
		t := validAfter.Time
		user.TokensValidAfter = &t
	}
	if len(claims) > 0 {
		if err := json.Unmarshal(claims, &user.CustomClaims); err != nil {
			return nil, fmt.Errorf("failed to decode custom claims: %w", err)
		}
	}

	return &user, nil
}

// SetCustomClaims replaces the user's custom claims
func (r *UserRepository) SetCustomClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	if claims == nil {
		claims = map[string]interface{}{}
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return fmt.Errorf("failed to encode custom claims: %w", err)
	}

	query := `
		UPDATE identity_users
		SET custom_claims = $2, updated_at = CURRENT_TIMESTAMP
		WHERE uid = $1
	`

	result, err := r.db.ExecContext(ctx, query, uid, payload)
	if err != nil {
		return fmt.Errorf("failed to set custom claims: %w", err)
	}
	if err := requireRow(result, uid); err != nil {
		return err
	}

	r.logger.Debug("custom claims updated", zap.String("uid", uid))
	return nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, uid string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM identity_users WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := requireRow(result, uid); err != nil {
		return err
	}

	r.logger.Debug("user deleted", zap.String("uid", uid))
	return nil
}

func requireRow(result sql.Result, uid string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %s: %w", uid, repositories.ErrNotFound)
	}
	return nil
}
