package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/kamalsharma29/crm-dashboard/internal/api/dto"
	"github.com/kamalsharma29/crm-dashboard/internal/api/middleware"
	"github.com/kamalsharma29/crm-dashboard/internal/auth"
)

const sessionCookie = "token"

type AuthHandler struct {
	authService  auth.Authenticator
	cookieSecure bool
	logger       *slog.Logger
	now          func() time.Time
}

func NewAuthHandler(authService auth.Authenticator, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cookieSecure: cookieSecure, logger: logger, now: time.Now}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	resp, err := h.authService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if writeAccountError(w, err) {
			return
		}
		internalError(w, r, h.logger, "registration failed", err)
		return
	}

	h.setSession(w, resp.Token)
	writeJSON(w, http.StatusCreated, dto.AuthResponse{Token: resp.Token, User: dto.NewUserDTO(resp.User)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			middleware.RecordLoginFailure("invalid")
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, auth.ErrInactiveUser):
			middleware.RecordLoginFailure("inactive")
			writeError(w, http.StatusForbidden, "Account is inactive")
		case errors.Is(err, auth.ErrAccountLocked):
			middleware.RecordLoginFailure("locked")
			if until := h.authService.LockedUntil(req.Email); !until.IsZero() {
				secs := int(math.Ceil(until.Sub(h.now()).Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
			}
			writeJSON(w, http.StatusLocked, dto.ErrorResponse{
				Error:   "Account locked",
				Message: "Too many failed login attempts. Please try again later.",
			})
		default:
			internalError(w, r, h.logger, "login failed", err)
		}
		return
	}

	h.setSession(w, resp.Token)
	writeJSON(w, http.StatusOK, dto.AuthResponse{Token: resp.Token, User: dto.NewUserDTO(resp.User)})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.authService.SessionDuration() / time.Second),
	})
}

// writeAccountError maps account creation failures shared by registration
// and admin user creation.
func writeAccountError(w http.ResponseWriter, err error) bool {
	var weak *auth.WeakPasswordError
	switch {
	case errors.Is(err, auth.ErrUserExists):
		writeError(w, http.StatusConflict, "User already exists")
	case errors.Is(err, auth.ErrInvalidEmail):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"email": "Invalid email address"},
		})
	case errors.Is(err, auth.ErrInvalidRole):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"role": "Invalid role"},
		})
	case errors.As(err, &weak):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"password": weak.Reason},
		})
	default:
		return false
	}
	return true
}
