package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/identity-gateway/middleware"
	"github.com/upb/identity-gateway/services"
	"github.com/upb/identity-gateway/utils"
	"go.uber.org/zap"
)

// SetCustomClaimsRequest is the body of POST /admin/setCustomClaims
type SetCustomClaimsRequest struct {
	UID    string                 `json:"uid" validate:"required"`
	Claims map[string]interface{} `json:"claims" validate:"required"`
}

// SetCustomClaimsResponse echoes the applied claims
type SetCustomClaimsResponse struct {
	Message string                 `json:"message"`
	Success bool                   `json:"success"`
	UID     string                 `json:"uid"`
	Claims  map[string]interface{} `json:"claims"`
}

// UserDetails is the record returned to administrators
type UserDetails struct {
	UID          string                 `json:"uid"`
	Email        string                 `json:"email,omitempty"`
	DisplayName  string                 `json:"displayName,omitempty"`
	CustomClaims map[string]interface{} `json:"customClaims,omitempty"`
}

// UserDetailsResponse is the body of GET /admin/users/{uid}
type UserDetailsResponse struct {
	Success bool        `json:"success"`
	Data    UserDetails `json:"data"`
}

// AdminHandler handles the admin routes
type AdminHandler struct {
	admin  *services.AdminService
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(admin *services.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		logger: logger,
	}
}

// SetCustomClaims handles POST /api/v1/admin/setCustomClaims
func (h *AdminHandler) SetCustomClaims(w http.ResponseWriter, r *http.Request) error {
	var req SetCustomClaimsRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		return services.WrapError(services.ErrInvalidBody, err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return services.WrapError(services.ErrMissingClaimsFields, err)
	}

	caller, _ := middleware.AuthContextFrom(r.Context())
	if err := h.admin.SetCustomClaims(r.Context(), caller, req.UID, req.Claims, middleware.RequestMeta(r)); err != nil {
		return err
	}

	return utils.WriteOK(w, SetCustomClaimsResponse{
		Message: fmt.Sprintf("Custom claims set for user: %s", req.UID),
		Success: true,
		UID:     req.UID,
		Claims:  req.Claims,
	})
}

// GetUserDetails handles GET /api/v1/admin/users/{uid}
func (h *AdminHandler) GetUserDetails(w http.ResponseWriter, r *http.Request) error {
	user, err := h.admin.GetUserDetails(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		return err
	}

	return utils.WriteOK(w, UserDetailsResponse{
		Success: true,
		Data: UserDetails{
			UID:          user.UID,
			Email:        user.Email,
			DisplayName:  user.DisplayName,
			CustomClaims: user.CustomClaims,
		},
	})
}
