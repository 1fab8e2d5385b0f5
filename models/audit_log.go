package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionCustomClaimsSet AuditAction = "custom_claims_set"
	AuditActionUserDeleted     AuditAction = "user_deleted"
)

// AuditLog represents an audit trail entry for an administrative mutation
type AuditLog struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Action    AuditAction     `json:"action" db:"action"`
	ActorUID  string          `json:"actor_uid" db:"actor_uid"`
	ActorRole Role            `json:"actor_role" db:"actor_role"`
	TargetUID string          `json:"target_uid" db:"target_uid"`
	Details   json.RawMessage `json:"details,omitempty" db:"details"` // JSONB
	IPAddress string          `json:"ip_address" db:"ip_address"`
	UserAgent string          `json:"user_agent" db:"user_agent"`
	RequestID string          `json:"request_id" db:"request_id"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(action AuditAction, actorUID string, actorRole Role, targetUID string) *AuditLog {
	return &AuditLog{
		ID:        uuid.New(),
		Action:    action,
		ActorUID:  actorUID,
		ActorRole: actorRole,
		TargetUID: targetUID,
		Timestamp: time.Now().UTC(),
	}
}

// WithRequest adds request metadata to the audit log
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}

// WithDetails adds details to the audit log.
// Values that cannot be marshalled are dropped.
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}
