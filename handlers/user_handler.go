package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/identity-gateway/middleware"
	"github.com/upb/identity-gateway/models"
	"github.com/upb/identity-gateway/services"
	"github.com/upb/identity-gateway/utils"
	"go.uber.org/zap"
)

// ProfileResponse is the body of GET /users/profile
type ProfileResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
	Role    string `json:"role"`
}

// UserView holds the fields any authorized caller may see
type UserView struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// AdminUserView adds the fields only administrators may see
type AdminUserView struct {
	UserView
	CustomClaims  map[string]interface{} `json:"customClaims,omitempty"`
	EmailVerified bool                   `json:"emailVerified"`
	Disabled      bool                   `json:"disabled"`
}

// UserResponse is the body of GET /users/{id}
type UserResponse struct {
	Message     string      `json:"message"`
	User        interface{} `json:"user"`
	RequestedBy string      `json:"requestedBy"`
}

// DeleteUserResponse is the body of DELETE /users/{id}
type DeleteUserResponse struct {
	Message   string `json:"message"`
	DeletedBy string `json:"deletedBy"`
	Role      string `json:"role"`
}

// UserHandler handles the user routes
type UserHandler struct {
	users  *services.UserService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// GetProfile handles GET /api/v1/users/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) error {
	caller, _ := middleware.AuthContextFrom(r.Context())

	profile, err := h.users.Profile(caller)
	if err != nil {
		return err
	}

	return utils.WriteOK(w, ProfileResponse{
		Message: profile.Message,
		UserID:  profile.UserID,
		Role:    profile.Role.String(),
	})
}

// GetUserByID handles GET /api/v1/users/{id}. Administrators receive the
// extended view.
func (h *UserHandler) GetUserByID(w http.ResponseWriter, r *http.Request) error {
	caller, _ := middleware.AuthContextFrom(r.Context())
	id := chi.URLParam(r, "id")

	h.logger.Debug("fetching user",
		zap.String("uid", id),
		zap.String("requested_by", caller.SubjectID),
		zap.String("role", caller.Role.String()))

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		return err
	}

	return utils.WriteOK(w, UserResponse{
		Message:     "User details retrieved successfully",
		User:        viewFor(caller, user),
		RequestedBy: caller.SubjectID,
	})
}

// DeleteUser handles DELETE /api/v1/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) error {
	caller, _ := middleware.AuthContextFrom(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.users.DeleteUser(r.Context(), caller, id, middleware.RequestMeta(r)); err != nil {
		return err
	}

	return utils.WriteOK(w, DeleteUserResponse{
		Message:   fmt.Sprintf("User %s deleted by admin", id),
		DeletedBy: caller.SubjectID,
		Role:      caller.Role.String(),
	})
}

func viewFor(caller models.AuthContext, user *models.UserRecord) interface{} {
	basic := UserView{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
	if !caller.IsAdmin() {
		return basic
	}
	return AdminUserView{
		UserView:      basic,
		CustomClaims:  user.CustomClaims,
		EmailVerified: user.EmailVerified,
		Disabled:      user.Disabled,
	}
}
