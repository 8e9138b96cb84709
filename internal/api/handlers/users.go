package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kamalsharma29/crm-dashboard/internal/api/dto"
	"github.com/kamalsharma29/crm-dashboard/internal/api/middleware"
	"github.com/kamalsharma29/crm-dashboard/internal/auth"
	"github.com/kamalsharma29/crm-dashboard/internal/authz"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
	"github.com/kamalsharma29/crm-dashboard/internal/users"
)

type UserHandler struct {
	users  *users.Service
	auth   auth.Authenticator
	logger *slog.Logger
}

func NewUserHandler(usersService *users.Service, authService auth.Authenticator, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: usersService, auth: authService, logger: logger}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context(), middleware.GetPrincipal(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]dto.UserDTO, 0, len(list))
	for i := range list {
		out = append(out, dto.NewUserDTO(&list[i]))
	}
	writeJSON(w, http.StatusOK, dto.UsersResponse{Users: out})
}

// Create adds an account of any role. The gateway already limits this
// route to admins; the capability check here covers direct mounting.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := middleware.GetPrincipal(r.Context()).Require(authz.ManageUsers); err != nil {
		writeAuthzError(w, err)
		return
	}

	var req dto.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	role := models.RoleEmployee
	if req.Role != "" {
		role = models.Role(strings.TrimSpace(req.Role))
	}

	user, err := h.auth.CreateAccount(r.Context(), auth.AccountInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		if writeAccountError(w, err) {
			return
		}
		internalError(w, r, h.logger, "creating user failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.UserMutationResponse{
		Message: "User created successfully",
		User:    dto.NewUserDTO(user),
	})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "User not found")
	if !ok {
		return
	}
	h.get(w, r, id)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "User not found")
	if !ok {
		return
	}
	h.update(w, r, id)
}

// Me returns the signed-in user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, middleware.GetUserID(r.Context()))
}

// UpdateMe lets any signed-in user edit their own profile. Role and
// active flag changes are dropped for non-admins.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, middleware.GetUserID(r.Context()))
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "User not found")
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), middleware.GetPrincipal(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "User deleted successfully"})
}

func (h *UserHandler) get(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	user, err := h.users.Get(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UserResponse{User: dto.NewUserDTO(user)})
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req dto.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Update(r.Context(), middleware.GetPrincipal(r.Context()), id, users.UpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		IsActive: req.IsActive,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserMutationResponse{
		Message: "User updated successfully",
		User:    dto.NewUserDTO(user),
	})
}

func (h *UserHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case writeAuthzError(w, err):
	case errors.Is(err, users.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, users.ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already in use")
	case errors.Is(err, users.ErrSelfDelete):
		writeError(w, http.StatusBadRequest, "Cannot delete your own account")
	case errors.Is(err, users.ErrOwnsLeads):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{
			Error:   "User has assigned leads",
			Message: "Reassign or delete the user's leads first",
		})
	case errors.Is(err, users.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Message: err.Error()})
	default:
		internalError(w, r, h.logger, "user request failed", err)
	}
}
