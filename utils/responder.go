package utils

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/identity-gateway/services"
	"go.uber.org/zap"
)

// Wire discriminators for the "type" field
const (
	TypeAuthentication = "AuthenticationError"
	TypeAuthorization  = "AuthorizationError"
	TypeValidation     = "ValidationError"
	TypeNotFound       = "NotFoundError"
)

// ErrorResponder maps errors onto structured JSON responses
type ErrorResponder struct {
	logger       *zap.Logger
	exposeDetail bool
}

// NewErrorResponder creates a responder. exposeDetail adds the underlying
// error text to 500 responses and must be off in production.
func NewErrorResponder(logger *zap.Logger, exposeDetail bool) *ErrorResponder {
	return &ErrorResponder{logger: logger, exposeDetail: exposeDetail}
}

// Respond writes the response for err
func (e *ErrorResponder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	status, body := e.classify(err)
	requestID := chimw.GetReqID(r.Context())

	if status >= http.StatusInternalServerError {
		e.logger.Error("request failed",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	} else {
		e.logger.Debug("request rejected",
			zap.String("request_id", requestID),
			zap.Int("status", status),
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.String("reason", body.Error))
	}

	if writeErr := WriteError(w, status, body); writeErr != nil {
		e.logger.Error("failed to write error response",
			zap.String("request_id", requestID),
			zap.Error(writeErr))
	}
}

func (e *ErrorResponder) classify(err error) (int, ErrorResponse) {
	message := services.GetErrorMessage(err)
	details := services.GetErrorDetails(err)

	switch {
	case services.IsUnauthenticatedError(err):
		return http.StatusUnauthorized, ErrorResponse{Error: message, Type: TypeAuthentication}

	case services.IsForbiddenError(err):
		body := ErrorResponse{Error: message, Type: TypeAuthorization}
		if roles, ok := details["requiredRoles"].([]string); ok {
			body.RequiredRoles = roles
		}
		if role, ok := details["userRole"].(string); ok {
			body.UserRole = role
		}
		return http.StatusForbidden, body

	case services.IsValidationError(err):
		body := ErrorResponse{Error: message, Type: TypeValidation}
		if fields := GetValidationFields(err); fields != nil {
			body.Fields = fields
		}
		if roles, ok := details["allowedRoles"].([]string); ok {
			body.AllowedRoles = roles
		}
		return http.StatusBadRequest, body

	case IsValidationError(err):
		return http.StatusBadRequest, ErrorResponse{
			Error:  err.Error(),
			Type:   TypeValidation,
			Fields: GetValidationFields(err),
		}

	case services.IsNotFoundError(err):
		return http.StatusNotFound, ErrorResponse{Error: message, Type: TypeNotFound}

	default:
		body := ErrorResponse{Error: "Internal Server Error"}
		if e.exposeDetail {
			body.Detail = err.Error()
		}
		return http.StatusInternalServerError, body
	}
}
